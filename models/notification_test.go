package models

import (
	"context"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"github.com/DATA-DOG/go-sqlmock"
)

// The ID-card endpoint reports the outbox row id back to the caller, so the
// insert id must surface through the publish helper.
func TestPublishNotificationWithIdReturnsRecordId(t *testing.T) {
	mock := mockDatabase(t)
	mock.ExpectExec("INSERT INTO .notification_records.").
		WillReturnResult(sqlmock.NewResult(42, 1))

	payload := EmailPayload{To: "camper@example.com", Subject: "Your ID card"}
	id, err := PublishNotificationWithId(context.Background(), config.GetDB(), "org-1",
		time.Now(), 7, NotificationReferenceTypeIdCard, NotificationChannelEmail, payload, NotificationActionCreate)
	if err != nil {
		t.Fatalf("PublishNotificationWithId: %v", err)
	}
	if id != 42 {
		t.Errorf("record id = %d, want 42", id)
	}
}
