package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Outbox publish statuses for NotificationRecord.PublishStatus.
// Keep these as strings (DB values).
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// NotificationRecord is a transactional-outbox row. Domain writes append a
// record inside their own DB transaction; delivery (email provider or
// Pub/Sub) is performed asynchronously by the outbox dispatcher after commit.
type NotificationRecord struct {
	ID             int                       `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	OrganizationId string                    `gorm:"size:64;not null;index" json:"organization_id"`
	OccurredAt     time.Time                 `gorm:"index;not null" json:"occurred_at"`
	ReferenceId    int                       `json:"reference_id"`
	ReferenceType  NotificationReferenceType `gorm:"type:enum('RG','PM','PL','PF','IDC')" json:"reference_type"`
	Action         NotificationAction        `gorm:"type:enum('C','U','D')" json:"action"`
	Channel        NotificationChannel       `gorm:"type:enum('Email','Event');not null;default:'Event'" json:"channel"`
	Payload        []byte                    `gorm:"type:blob" json:"payload"`

	// Publish happens after commit via the dispatcher.
	PublishStatus     string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt       *time.Time `gorm:"index" json:"published_at"`
	ProviderMessageId *string    `gorm:"size:255" json:"provider_message_id"`
	PublishAttempts   int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt     *time.Time `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt          *time.Time `gorm:"index" json:"locked_at"`
	LockedBy          *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError  *string    `gorm:"type:text" json:"last_publish_error"`
	CorrelationId     string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// EmailPayload is the provider-facing contract for Email-channel rows.
// Field names match the transactional-email relay request shape.
type EmailPayload struct {
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Name       string `json:"name"`
	CamperCode string `json:"camperCode"`
	QrBase64   string `json:"qrBase64,omitempty"`
	Body       string `json:"body,omitempty"`
}

// PublishNotification appends an outbox row inside the caller's transaction.
// It does NOT deliver anything; the dispatcher handles that after commit.
func PublishNotification(ctx context.Context, tx *gorm.DB, organizationId string, occurredAt time.Time, refId int, refType NotificationReferenceType, channel NotificationChannel, payload interface{}, action NotificationAction) error {
	_, err := PublishNotificationWithId(ctx, tx, organizationId, occurredAt, refId, refType, channel, payload, action)
	return err
}

// PublishNotificationWithId surfaces the created row's id for callers that
// report it back, such as the ID-card endpoint's messageId.
func PublishNotificationWithId(ctx context.Context, tx *gorm.DB, organizationId string, occurredAt time.Time, refId int, refType NotificationReferenceType, channel NotificationChannel, payload interface{}, action NotificationAction) (int, error) {

	payloadInByte, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	record := NotificationRecord{
		OrganizationId: organizationId,
		OccurredAt:     occurredAt,
		ReferenceId:    refId,
		ReferenceType:  refType,
		Action:         action,
		Channel:        channel,
		Payload:        payloadInByte,
		PublishStatus:  OutboxPublishStatusPending,
		CorrelationId:  correlationIdFromContextOrNew(ctx),
	}
	if err := tx.Create(&record).Error; err != nil {
		return 0, err
	}
	return record.ID, nil
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

// ConvertToCampEvent maps an outbox row to the Pub/Sub wire format.
func ConvertToCampEvent(record NotificationRecord) config.CampEventMessage {
	return config.CampEventMessage{
		ID:             record.ID,
		OrganizationId: record.OrganizationId,
		OccurredAt:     record.OccurredAt,
		ReferenceId:    record.ReferenceId,
		ReferenceType:  string(record.ReferenceType),
		Action:         string(record.Action),
		Payload:        record.Payload,
		CorrelationId:  record.CorrelationId,
	}
}
