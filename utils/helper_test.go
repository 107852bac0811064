package utils

import (
	"context"
	"testing"
)

func TestOrganizationLockFailsClosedWithoutRedis(t *testing.T) {
	lock, err := OrganizationLock(context.Background(), "org-1", "RegistrationCapacity:1", "Registration", "CreateRegistration")
	if err == nil {
		t.Fatal("expected an error when the lock backend is unavailable")
	}
	if lock != nil {
		t.Error("no lock may be handed out on failure")
	}
}
