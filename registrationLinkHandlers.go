package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/camps_backend/models"
	"github.com/gin-gonic/gin"
)

func listRegistrationLinksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		links, err := models.ListRegistrationLinks(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, links)
	}
}

func getRegistrationLinkHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		link, err := models.GetRegistrationLink(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, link)
	}
}

func createRegistrationLinkHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewRegistrationLink
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		link, err := models.CreateRegistrationLink(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, link)
	}
}

func updateRegistrationLinkHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var input models.NewRegistrationLink
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		link, err := models.UpdateRegistrationLink(c.Request.Context(), id, &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, link)
	}
}

func deleteRegistrationLinkHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		link, err := models.DeleteRegistrationLink(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, link)
	}
}

func toggleActiveRegistrationLinkHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "is_active is required"})
			return
		}
		link, err := models.ToggleActiveRegistrationLink(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, link)
	}
}

// resolveRegistrationLinkHandler is the public form-bootstrap endpoint. No
// session: the token alone scopes the lookup.
func resolveRegistrationLinkHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		resolved, err := models.ResolveRegistrationLink(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, resolved)
	}
}

// publicRegistrationHandler is the public self-registration endpoint.
func publicRegistrationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		var input models.NewRegistration
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		registration, err := models.CreateRegistrationFromLink(c.Request.Context(), token, &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, registration)
	}
}
