package main

import (
	"net/http/httptest"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func withMockedDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}
	config.SetDB(db)
	t.Cleanup(func() {
		config.SetDB(nil)
		_ = sqlDB.Close()
	})
	return mock
}

func replayRequest(body string, organizationId string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest("POST", "/outbox/replay", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if organizationId != "" {
		req = req.WithContext(utils.SetOrganizationIdInContext(req.Context(), organizationId))
	}
	c.Request = req
	return c
}

// A replayed row must go back to FAILED with a zeroed attempt counter, or the
// dispatcher re-kills it on the first claim.
func TestOutboxReplayResetsAttemptCounter(t *testing.T) {
	mock := withMockedDB(t)

	mock.ExpectExec("UPDATE .notification_records. SET").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 0, "FAILED", sqlmock.AnyArg(), 7, "org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	c := replayRequest(`{"record_id": 7}`, "org-1")
	outboxReplayHandler()(c)

	if c.Writer.Status() != 200 {
		t.Fatalf("status = %d, want 200", c.Writer.Status())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestOutboxReplayUnknownRecord(t *testing.T) {
	mock := withMockedDB(t)

	mock.ExpectExec("UPDATE .notification_records. SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	c := replayRequest(`{"record_id": 99}`, "org-1")
	outboxReplayHandler()(c)

	if c.Writer.Status() != 404 {
		t.Fatalf("status = %d, want 404", c.Writer.Status())
	}
}

func TestOutboxReplayRequiresOrganization(t *testing.T) {
	withMockedDB(t)

	c := replayRequest(`{"record_id": 7}`, "")
	outboxReplayHandler()(c)

	if c.Writer.Status() != 401 {
		t.Fatalf("status = %d, want 401", c.Writer.Status())
	}
}
