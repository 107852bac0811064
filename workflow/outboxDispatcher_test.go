package workflow

import (
	"context"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/models"
	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockedDispatcher(t *testing.T) (*OutboxDispatcher, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

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

	d := NewOutboxDispatcher(db, nil, nil)
	return d, mock
}

func claimedRows(id int, attempts int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "organization_id", "channel", "publish_status", "publish_attempts"}).
		AddRow(id, "org-1", "Email", "PENDING", attempts)
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	d := &OutboxDispatcher{
		InitialBackoff: 5 * time.Second,
		MaxBackoff:     10 * time.Minute,
	}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
		{7, 320 * time.Second},
		{8, 10 * time.Minute},
		{9, 10 * time.Minute},
		{50, 10 * time.Minute},
	}
	for _, tc := range cases {
		if got := d.backoffFor(tc.attempt); got != tc.want {
			t.Errorf("backoffFor(%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}

func TestDispatcherDefaults(t *testing.T) {
	d := NewOutboxDispatcher(nil, nil, nil)

	if d.DispatcherID == "" {
		t.Error("dispatcher id should be assigned")
	}
	if d.MaxAttempts <= 0 {
		t.Error("max attempts must be positive so poison rows go terminal")
	}
	if d.LockTimeout <= 0 {
		t.Error("lock timeout must be positive so stale claims are reclaimed")
	}

	// A nil DB is a no-op, not a panic; Run must exit when cancelled.
	d.dispatchOnce(nil)
}

// A PENDING row is claimed under SKIP LOCKED, flipped to PROCESSING with its
// attempt counter bumped, and marked FAILED with a retry schedule when the
// provider is unavailable.
func TestDispatchOnceClaimsAndRetriesOnDeliveryFailure(t *testing.T) {
	d, mock := newMockedDispatcher(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM .notification_records. .* FOR UPDATE SKIP LOCKED").
		WillReturnRows(claimedRows(4, 0))
	mock.ExpectExec("UPDATE .notification_records. SET").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), models.OutboxPublishStatusProcessing, sqlmock.AnyArg(), 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Mailer is nil, so the Email channel fails delivery after the claim.
	mock.ExpectExec("UPDATE .notification_records. SET").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), models.OutboxPublishStatusFailed, sqlmock.AnyArg(), 4).
		WillReturnResult(sqlmock.NewResult(0, 1))

	d.dispatchOnce(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

// A row already at MaxAttempts goes terminal inside the claim transaction and
// is never handed to delivery.
func TestDispatchOnceMovesPoisonRowToDead(t *testing.T) {
	d, mock := newMockedDispatcher(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM .notification_records. .* FOR UPDATE SKIP LOCKED").
		WillReturnRows(claimedRows(9, d.MaxAttempts))
	mock.ExpectExec("UPDATE .notification_records. SET").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), models.OutboxPublishStatusDead, sqlmock.AnyArg(), 9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	d.dispatchOnce(context.Background())

	// No delivery attempt and no markSent/markFailed update may follow.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
