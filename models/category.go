package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
	"github.com/shopspring/decimal"
)

// Category groups campers (youth, adult, volunteer...). FeeOverride, when
// set, replaces the camp's base fee for registrations in this category.
type Category struct {
	ID             int              `gorm:"primary_key" json:"id"`
	OrganizationId string           `gorm:"index;not null" json:"organization_id"`
	Name           string           `gorm:"size:100;not null" json:"name" binding:"required"`
	Description    string           `gorm:"size:255" json:"description"`
	FeeOverride    *decimal.Decimal `gorm:"type:decimal(20,4)" json:"fee_override"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCategory struct {
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	FeeOverride *decimal.Decimal `json:"fee_override"`
}

func (c Category) GetCursor() string {
	return c.CreatedAt.String()
}

func (input *NewCategory) validate(ctx context.Context, organizationId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Category](ctx, organizationId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Category](ctx, organizationId, "name", input.Name, id); err != nil {
		return err
	}
	if input.FeeOverride != nil && input.FeeOverride.IsNegative() {
		return errors.New("fee override must not be negative")
	}
	return nil
}

func CreateCategory(ctx context.Context, input *NewCategory) (*Category, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, 0); err != nil {
		return nil, err
	}

	category := Category{
		OrganizationId: organizationId,
		Name:           input.Name,
		Description:    input.Description,
		FeeOverride:    input.FeeOverride,
	}

	if err := db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[Category](organizationId); err != nil {
		return nil, err
	}
	return &category, nil
}

func UpdateCategory(ctx context.Context, id int, input *NewCategory) (*Category, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, id); err != nil {
		return nil, err
	}

	category, err := utils.FetchModel[Category](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(category).Updates(map[string]interface{}{
		"Name":        input.Name,
		"Description": input.Description,
		"FeeOverride": input.FeeOverride,
	}).Error
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[Category](organizationId); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[Category](id); err != nil {
		return nil, err
	}
	return category, nil
}

func DeleteCategory(ctx context.Context, id int) (*Category, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	category, err := utils.FetchModel[Category](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	regCount, err := utils.ResourceCountWhere[Registration](ctx, organizationId, "category_id = ?", id)
	if err != nil {
		return nil, err
	}
	if regCount > 0 {
		return nil, errors.New("category is referenced by registrations")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(category).Error; err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[Category](organizationId); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[Category](id); err != nil {
		return nil, err
	}
	return category, nil
}

func GetCategory(ctx context.Context, id int) (*Category, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	return utils.FetchModel[Category](ctx, organizationId, id)
}

func ListCategories(ctx context.Context) ([]*Category, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	results, err := utils.RetrieveRedisList[Category](organizationId)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results, err = utils.FetchAllModels[Category](ctx, organizationId)
		if err != nil {
			return nil, err
		}
		if err := utils.StoreRedisList[Category](results, organizationId); err != nil {
			return nil, err
		}
	}
	return results, nil
}
