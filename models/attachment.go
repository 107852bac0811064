package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
)

// Attachment is an uploaded file (medical form, receipt photo, consent
// letter) stored in GCS and linked to a domain record.
type Attachment struct {
	ID                  int       `gorm:"primary_key" json:"id"`
	OrganizationId      string    `gorm:"index;not null" json:"organization_id"`
	ReferenceType       string    `gorm:"size:30;not null;index:idx_attachment_ref" json:"reference_type"`
	ReferenceId         int       `gorm:"not null;index:idx_attachment_ref" json:"reference_id"`
	FileName            string    `gorm:"size:255;not null" json:"file_name"`
	ObjectName          string    `gorm:"size:255;not null" json:"object_name"`
	ThumbnailObjectName *string   `gorm:"size:255" json:"thumbnail_object_name"`
	ContentType         string    `gorm:"size:100" json:"content_type"`
	Size                int64     `json:"size"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// AttachmentResponse adds resolvable URLs.
type AttachmentResponse struct {
	Attachment
	Url          string `json:"url"`
	ThumbnailUrl string `json:"thumbnail_url,omitempty"`
}

var attachmentReferenceTypes = map[string]bool{
	"registrations": true,
	"camps":         true,
	"purchases":     true,
	"pledges":       true,
}

func (a Attachment) ToResponse() *AttachmentResponse {
	response := AttachmentResponse{
		Attachment: a,
		Url:        utils.BuildObjectAccessURL(a.ObjectName),
	}
	if a.ThumbnailObjectName != nil {
		response.ThumbnailUrl = utils.BuildObjectAccessURL(*a.ThumbnailObjectName)
	}
	return &response
}

func validateAttachmentReference(ctx context.Context, organizationId string, referenceType string, referenceId int) error {
	if !attachmentReferenceTypes[referenceType] {
		return errors.New("invalid reference type")
	}

	var err error
	switch referenceType {
	case "registrations":
		err = utils.ValidateResourceId[Registration](ctx, organizationId, referenceId)
	case "camps":
		err = utils.ValidateResourceId[Camp](ctx, organizationId, referenceId)
	case "purchases":
		err = utils.ValidateResourceId[Purchase](ctx, organizationId, referenceId)
	case "pledges":
		err = utils.ValidateResourceId[Pledge](ctx, organizationId, referenceId)
	}
	if err != nil {
		return errors.New("referenced record not found")
	}
	return nil
}

// CreateAttachment records an already-uploaded object. The handler uploads
// to GCS first; a DB failure here orphans the object at worst.
func CreateAttachment(ctx context.Context, referenceType string, referenceId int,
	fileName string, objectName string, thumbnailObjectName *string,
	contentType string, size int64) (*AttachmentResponse, error) {

	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := validateAttachmentReference(ctx, organizationId, referenceType, referenceId); err != nil {
		return nil, err
	}

	attachment := Attachment{
		OrganizationId:      organizationId,
		ReferenceType:       referenceType,
		ReferenceId:         referenceId,
		FileName:            fileName,
		ObjectName:          objectName,
		ThumbnailObjectName: thumbnailObjectName,
		ContentType:         contentType,
		Size:                size,
	}

	if err := db.WithContext(ctx).Create(&attachment).Error; err != nil {
		return nil, err
	}

	return attachment.ToResponse(), nil
}

func ListAttachments(ctx context.Context, referenceType string, referenceId int) ([]*AttachmentResponse, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	if !attachmentReferenceTypes[referenceType] {
		return nil, errors.New("invalid reference type")
	}

	db := config.GetDB()
	var attachments []*Attachment
	err := db.WithContext(ctx).
		Where("organization_id = ? AND reference_type = ? AND reference_id = ?",
			organizationId, referenceType, referenceId).
		Order("created_at DESC").
		Find(&attachments).Error
	if err != nil {
		return nil, err
	}

	responses := make([]*AttachmentResponse, 0, len(attachments))
	for _, attachment := range attachments {
		responses = append(responses, attachment.ToResponse())
	}
	return responses, nil
}

// DeleteAttachment removes the row and then the GCS objects. Object
// deletion failures are logged, not surfaced: the row is already gone.
func DeleteAttachment(ctx context.Context, id int) (*Attachment, error) {
	logger := config.GetLogger()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	attachment, err := utils.FetchModel[Attachment](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(attachment).Error; err != nil {
		return nil, err
	}

	if err := utils.DeleteObjectFromGCS(ctx, attachment.ObjectName); err != nil {
		config.LogError(logger, "Attachment", "DeleteAttachment", "Failed to delete object", attachment.ObjectName, err)
	}
	if attachment.ThumbnailObjectName != nil {
		if err := utils.DeleteObjectFromGCS(ctx, *attachment.ThumbnailObjectName); err != nil {
			config.LogError(logger, "Attachment", "DeleteAttachment", "Failed to delete thumbnail", *attachment.ThumbnailObjectName, err)
		}
	}

	return attachment, nil
}
