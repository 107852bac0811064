package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
)

type Church struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"index;not null" json:"organization_id"`
	Name           string    `gorm:"size:150;not null" json:"name" binding:"required"`
	City           string    `gorm:"size:100" json:"city"`
	ContactName    string    `gorm:"size:100" json:"contact_name"`
	ContactPhone   string    `gorm:"size:20" json:"contact_phone"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewChurch struct {
	Name         string `json:"name" binding:"required"`
	City         string `json:"city"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
}

func (c Church) GetCursor() string {
	return c.CreatedAt.String()
}

func (input *NewChurch) validate(ctx context.Context, organizationId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Church](ctx, organizationId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Church](ctx, organizationId, "name", input.Name, id); err != nil {
		return err
	}
	if input.ContactPhone != "" {
		if err := utils.ValidatePhoneNumber(input.ContactPhone, utils.CountryCode); err != nil {
			return err
		}
	}
	return nil
}

func CreateChurch(ctx context.Context, input *NewChurch) (*Church, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, 0); err != nil {
		return nil, err
	}

	church := Church{
		OrganizationId: organizationId,
		Name:           input.Name,
		City:           input.City,
		ContactName:    input.ContactName,
		ContactPhone:   input.ContactPhone,
	}

	if err := db.WithContext(ctx).Create(&church).Error; err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[Church](organizationId); err != nil {
		return nil, err
	}
	return &church, nil
}

func UpdateChurch(ctx context.Context, id int, input *NewChurch) (*Church, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, id); err != nil {
		return nil, err
	}

	church, err := utils.FetchModel[Church](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(church).Updates(map[string]interface{}{
		"Name":         input.Name,
		"City":         input.City,
		"ContactName":  input.ContactName,
		"ContactPhone": input.ContactPhone,
	}).Error
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[Church](organizationId); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[Church](id); err != nil {
		return nil, err
	}
	return church, nil
}

func DeleteChurch(ctx context.Context, id int) (*Church, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	church, err := utils.FetchModel[Church](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	regCount, err := utils.ResourceCountWhere[Registration](ctx, organizationId, "church_id = ?", id)
	if err != nil {
		return nil, err
	}
	if regCount > 0 {
		return nil, errors.New("church is referenced by registrations")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(church).Error; err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[Church](organizationId); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[Church](id); err != nil {
		return nil, err
	}
	return church, nil
}

func GetChurch(ctx context.Context, id int) (*Church, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	return utils.FetchModel[Church](ctx, organizationId, id)
}

func ListChurches(ctx context.Context) ([]*Church, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	results, err := utils.RetrieveRedisList[Church](organizationId)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results, err = utils.FetchAllModels[Church](ctx, organizationId)
		if err != nil {
			return nil, err
		}
		if err := utils.StoreRedisList[Church](results, organizationId); err != nil {
			return nil, err
		}
	}
	return results, nil
}
