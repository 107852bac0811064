package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/models"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxUploadSizeBytes int64 = 5 * 1024 * 1024

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

var attachmentMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
	"image/jpeg": true,
	"image/png":  true,
}

// uploadAttachmentHandler accepts a multipart file plus reference_type and
// reference_id form fields, uploads the object (and a thumbnail for images),
// then records the attachment row.
func uploadAttachmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		ctx := c.Request.Context()

		organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
		if !ok || organizationId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		referenceType := strings.TrimSpace(c.PostForm("reference_type"))
		referenceId, err := strconv.Atoi(strings.TrimSpace(c.PostForm("reference_id")))
		if referenceType == "" || err != nil || referenceId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reference_type and reference_id are required"})
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}
		if int64(len(data)) > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}

		mimeType := http.DetectContentType(data)
		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		if mimeType == "application/zip" {
			switch ext {
			case ".docx":
				mimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
			case ".xlsx":
				mimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
			}
		}
		if !attachmentMimeTypes[mimeType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
			return
		}

		objectKey := path.Join(organizationId, referenceType, uuid.New().String()+ext)
		if err := utils.UploadBytesToGCS(ctx, objectKey, mimeType, data); err != nil {
			config.LogError(logger, "uploads.go", "uploadAttachmentHandler", "UploadBytesToGCS", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
			return
		}

		var thumbnailKey *string
		if imageMimeTypes[mimeType] {
			key, err := createThumbnail(ctx, objectKey, data)
			if err != nil {
				// Thumbnail is cosmetic; keep the attachment.
				config.LogError(logger, "uploads.go", "uploadAttachmentHandler", "createThumbnail", objectKey, err)
			} else {
				thumbnailKey = &key
			}
		}

		attachment, err := models.CreateAttachment(ctx, referenceType, referenceId,
			fileHeader.Filename, objectKey, thumbnailKey, mimeType, int64(len(data)))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		logger.WithFields(logrus.Fields{
			"organization_id": organizationId,
			"object_key":      objectKey,
			"mime_type":       mimeType,
			"size":            len(data),
		}).Info("[upload.complete]")

		c.JSON(http.StatusCreated, attachment)
	}
}

func listAttachmentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		referenceType := strings.TrimSpace(c.Query("reference_type"))
		referenceId, err := intQuery(c, "reference_id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if referenceType == "" || referenceId == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reference_type and reference_id are required"})
			return
		}
		attachments, err := models.ListAttachments(c.Request.Context(), referenceType, *referenceId)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, attachments)
	}
}

func deleteAttachmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		attachment, err := models.DeleteAttachment(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, attachment)
	}
}

func createThumbnail(ctx context.Context, objectKey string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	thumbnail := imaging.Resize(img, 200, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
		return "", err
	}

	thumbnailKey := thumbnailObjectKey(objectKey)
	if err := utils.UploadBytesToGCS(ctx, thumbnailKey, "image/jpeg", buf.Bytes()); err != nil {
		return "", err
	}
	return thumbnailKey, nil
}

func thumbnailObjectKey(objectKey string) string {
	ext := filepath.Ext(objectKey)
	base := strings.TrimSuffix(objectKey, ext)
	return base + "_thumb.jpg"
}
