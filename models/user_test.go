package models

import (
	"context"
	"testing"

	"bitbucket.org/mmdatafocus/camps_backend/utils"
	"github.com/DATA-DOG/go-sqlmock"
)

func TestGetAllUsersRequiresOrganization(t *testing.T) {
	mockDatabase(t)

	if _, err := GetAllUsers(context.Background()); err == nil {
		t.Fatal("expected an error without an organization in the context")
	}
}

func TestGetAllUsersScopesToOrganization(t *testing.T) {
	mock := mockDatabase(t)
	mock.ExpectQuery("SELECT .* FROM .users. WHERE organization_id = ?").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}))

	ctx := utils.SetOrganizationIdInContext(context.Background(), "org-1")
	if _, err := GetAllUsers(ctx); err != nil {
		t.Fatalf("GetAllUsers: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

// The created user always lands in the session's organization regardless of
// anything the request body carried.
func TestCreateUserForcesSessionOrganization(t *testing.T) {
	mock := mockDatabase(t)
	mock.ExpectQuery("SELECT count.* FROM .users.").WillReturnRows(countRows(0))
	mock.ExpectExec("INSERT INTO .users.").WillReturnResult(sqlmock.NewResult(1, 1))

	ctx := utils.SetOrganizationIdInContext(context.Background(), "org-1")
	input := &NewUser{
		Username: "thandar",
		Password: "S3cret!pass",
		Role:     UserRoleStaff,
		IsActive: utils.NewTrue(),
	}

	user, err := CreateUser(ctx, input)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.OrganizationId != "org-1" {
		t.Errorf("OrganizationId = %q, want org-1", user.OrganizationId)
	}
	if user.Password != "" {
		t.Error("password must be blanked on the response")
	}
}

// A malformed stored hash must fail closed, not let the login through.
func TestLoginRejectsMalformedStoredHash(t *testing.T) {
	mock := mockDatabase(t)
	mock.ExpectQuery("SELECT .* FROM .users. WHERE username = ?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password", "is_active", "organization_id"}).
			AddRow(1, "thandar", "not-a-bcrypt-hash", true, ""))

	_, err := Login(context.Background(), "thandar", "whatever")
	if err == nil || err.Error() != "invalid username or password" {
		t.Errorf("expected invalid username or password, got %v", err)
	}
}
