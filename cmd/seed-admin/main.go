// seed-admin bootstraps a deployment: it creates the first organization if
// none exists, then creates or updates the admin user inside it.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
//
// Env overrides: SEED_ORG_NAME, SEED_ADMIN_USERNAME, SEED_ADMIN_PASSWORD.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/models"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
	"gorm.io/gorm"
)

const (
	defaultOrgName       = "Camp Administration"
	defaultAdminUsername = "campAdmin"
	defaultAdminName     = "Camp Admin"
)

func envOrDefault(key string, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	orgName := envOrDefault("SEED_ORG_NAME", defaultOrgName)
	adminUsername := envOrDefault("SEED_ADMIN_USERNAME", defaultAdminUsername)
	adminPassword := strings.TrimSpace(os.Getenv("SEED_ADMIN_PASSWORD"))
	if adminPassword == "" {
		fmt.Fprintln(os.Stderr, "SEED_ADMIN_PASSWORD is required")
		os.Exit(2)
	}

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Seed")
	ctx = utils.SetUsernameInContext(ctx, adminUsername)
	ctx = utils.SetIsAdminInContext(ctx, true)
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	var org models.Organization
	err := db.WithContext(ctx).Model(&models.Organization{}).First(&org).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup organization: %v\n", err)
			os.Exit(1)
		}
		created, err := models.CreateOrganization(ctx, &models.NewOrganization{Name: orgName})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create organization: %v\n", err)
			os.Exit(1)
		}
		org = *created
		fmt.Printf("Created organization: %q (%s)\n", org.Name, org.ID)
	}

	organizationId := org.ID.String()
	ctx = utils.SetOrganizationIdInContext(ctx, organizationId)

	hashed, err := utils.HashPassword(adminPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}
	hashedStr := string(hashed)

	var existing models.User
	err = db.WithContext(ctx).Model(&models.User{}).Where("username = ?", adminUsername).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		u := models.User{
			Username:       adminUsername,
			Name:           defaultAdminName,
			Password:       hashedStr,
			IsActive:       utils.NewTrue(),
			Role:           models.UserRoleAdmin,
			OrganizationId: organizationId,
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created admin user: username=%q (role=Admin)\n", adminUsername)
		return
	}

	// Update existing user: ensure password and admin role
	if err := db.WithContext(ctx).Model(&models.User{}).Where("username = ?", adminUsername).Updates(map[string]any{
		"password":        hashedStr,
		"name":            defaultAdminName,
		"is_active":       utils.NewTrue(),
		"organization_id": organizationId,
		"role":            models.UserRoleAdmin,
	}).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
		os.Exit(1)
	}
	_ = existing.RemoveInstanceRedis()
	fmt.Printf("Updated admin user: username=%q (role=Admin)\n", adminUsername)
}
