package main

import (
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/models"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type sendIdCardRequest struct {
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Name       string `json:"name"`
	CamperCode string `json:"camperCode"`
	QrBase64   string `json:"qrBase64"`
	Body       string `json:"body"`
}

// sendIdCardHandler queues an ID-card email for a camper. Delivery happens
// through the outbox, so a provider outage never fails this request.
func sendIdCardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var req sendIdCardRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		ctx := c.Request.Context()
		registration, err := models.GetRegistration(ctx, id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}

		// The request may override recipient and display fields; the
		// registration fills in the rest.
		if req.To == "" {
			req.To = registration.Email
		}
		if req.To == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "registration has no email; provide \"to\""})
			return
		}
		if !utils.IsValidEmail(req.To) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid recipient email"})
			return
		}
		if req.Name == "" {
			req.Name = registration.Name
		}
		if req.CamperCode == "" {
			req.CamperCode = registration.CamperCode
		}
		if req.Subject == "" {
			req.Subject = "Your camp ID card (" + req.CamperCode + ")"
		}

		organizationId, _ := utils.GetOrganizationIdFromContext(ctx)
		payload := models.EmailPayload{
			To:         req.To,
			Subject:    req.Subject,
			Name:       req.Name,
			CamperCode: req.CamperCode,
			QrBase64:   req.QrBase64,
			Body:       req.Body,
		}

		db := config.GetDB()
		var messageId int
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			messageId, err = models.PublishNotificationWithId(ctx, tx, organizationId, time.Now().UTC(),
				registration.ID, models.NotificationReferenceTypeIdCard,
				models.NotificationChannelEmail, payload, models.NotificationActionCreate)
			return err
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"success":   true,
			"message":   "email queued for delivery",
			"messageId": strconv.Itoa(messageId),
		})
	}
}

type outboxReplayRequest struct {
	RecordId int `json:"record_id"`
}

// outboxReplayHandler re-arms a DEAD or stuck outbox row so the dispatcher
// picks it up on the next poll. Admin only.
func outboxReplayHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req outboxReplayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if req.RecordId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "record_id is required"})
			return
		}

		organizationId, ok := utils.GetOrganizationIdFromContext(c.Request.Context())
		if !ok || organizationId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		db := config.GetDB()
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}
		now := time.Now().UTC()
		result := db.WithContext(c.Request.Context()).
			Model(&models.NotificationRecord{}).
			Where("id = ? AND organization_id = ?", req.RecordId, organizationId).
			Updates(map[string]interface{}{
				"publish_status":     models.OutboxPublishStatusFailed,
				"publish_attempts":   0,
				"next_attempt_at":    &now,
				"locked_at":          nil,
				"locked_by":          nil,
				"last_publish_error": nil,
			})
		if result.Error != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": result.Error.Error()})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "outbox record not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"record_id":       req.RecordId,
			"publish_status":  models.OutboxPublishStatusFailed,
			"next_attempt_at": now.Format(time.RFC3339Nano),
		})
	}
}
