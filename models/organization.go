package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization is the tenant. Every tenant-scoped row carries its ID in
// organization_id, enforced by the tenant guard plugin.
type Organization struct {
	ID           uuid.UUID `gorm:"type:char(36);primary_key" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email        string    `gorm:"size:100" json:"email"`
	Phone        string    `gorm:"size:20" json:"phone"`
	Address      string    `gorm:"type:text" json:"address"`
	Timezone     string    `gorm:"size:50;default:'Asia/Yangon'" json:"timezone"`
	CurrencyCode string    `gorm:"size:10;default:'MMK'" json:"currency_code"`
	IsActive     *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewOrganization struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	Timezone     string `json:"timezone"`
	CurrencyCode string `json:"currency_code"`
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (o *Organization) StoreRedis() error {
	return config.SetRedisObject("Organization:"+o.ID.String(), o, 0)
}

func (o *Organization) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("Organization:" + o.ID.String())
}

func CreateOrganization(ctx context.Context, input *NewOrganization) (*Organization, error) {
	db := config.GetDB()

	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email")
	}

	org := Organization{
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Address:      input.Address,
		Timezone:     input.Timezone,
		CurrencyCode: input.CurrencyCode,
		IsActive:     utils.NewTrue(),
	}
	if org.Timezone == "" {
		org.Timezone = "Asia/Yangon"
	}
	if org.CurrencyCode == "" {
		org.CurrencyCode = "MMK"
	}

	// Organizations are not tenant-scoped rows themselves.
	scopeless := utils.SetSkipTenantScopeInContext(ctx, true)
	if err := db.WithContext(scopeless).Create(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// GetOrganizationById reads from Redis first, then the DB, caching the result.
func GetOrganizationById(ctx context.Context, id string) (*Organization, error) {

	var result Organization

	exists, err := config.GetRedisObject("Organization:"+id, &result)
	if err != nil {
		return nil, err
	}

	if !exists {
		db := config.GetDB()
		err := db.WithContext(ctx).Where("id = ?", id).First(&result).Error
		if err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		if err := result.StoreRedis(); err != nil {
			return nil, err
		}
	}
	return &result, nil
}

// GetOrganization resolves the caller's own organization from the context.
func GetOrganization(ctx context.Context) (*Organization, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	return GetOrganizationById(ctx, organizationId)
}

func UpdateOrganization(ctx context.Context, id string, input *NewOrganization) (*Organization, error) {
	db := config.GetDB()

	var org Organization
	if err := db.WithContext(ctx).Where("id = ?", id).First(&org).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email")
	}

	err := db.WithContext(ctx).Model(&org).Updates(map[string]interface{}{
		"Name":         input.Name,
		"Email":        input.Email,
		"Phone":        input.Phone,
		"Address":      input.Address,
		"Timezone":     input.Timezone,
		"CurrencyCode": input.CurrencyCode,
	}).Error
	if err != nil {
		return nil, err
	}

	// stale cache
	if err := org.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	return &org, nil
}
