package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
	"gorm.io/gorm"
)

// InventoryItem tracks equipment stock per camp (chairs, mattresses,
// sound gear). Quantity moves through AdjustInventoryQuantity and can
// never go negative.
type InventoryItem struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"index;not null" json:"organization_id"`
	CampId         int       `gorm:"index;not null" json:"camp_id"`
	Name           string    `gorm:"size:150;not null" json:"name"`
	Unit           string    `gorm:"size:30" json:"unit"`
	Quantity       int       `gorm:"not null;default:0" json:"quantity"`
	// Stock at or below this level flags the item for restock; 0 disables.
	LowStockThreshold int       `gorm:"not null;default:0" json:"low_stock_threshold"`
	IsLowStock        bool      `gorm:"-" json:"is_low_stock"`
	Location          string    `gorm:"size:150" json:"location"`
	Notes             string    `gorm:"type:text" json:"notes"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInventoryItem struct {
	CampId            int    `json:"camp_id" binding:"required"`
	Name              string `json:"name" binding:"required"`
	Unit              string `json:"unit"`
	Quantity          int    `json:"quantity"`
	LowStockThreshold int    `json:"low_stock_threshold"`
	Location          string `json:"location"`
	Notes             string `json:"notes"`
}

func (i InventoryItem) GetCursor() string {
	return i.CreatedAt.String()
}

func (i *InventoryItem) refreshLowStock() {
	i.IsLowStock = i.LowStockThreshold > 0 && i.Quantity <= i.LowStockThreshold
}

func (input *NewInventoryItem) validate(ctx context.Context, organizationId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[InventoryItem](ctx, organizationId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Camp](ctx, organizationId, input.CampId); err != nil {
		return errors.New("camp not found")
	}
	if input.Quantity < 0 {
		return errors.New("quantity must not be negative")
	}
	if input.LowStockThreshold < 0 {
		return errors.New("low stock threshold must not be negative")
	}
	return nil
}

func CreateInventoryItem(ctx context.Context, input *NewInventoryItem) (*InventoryItem, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, 0); err != nil {
		return nil, err
	}

	item := InventoryItem{
		OrganizationId:    organizationId,
		CampId:            input.CampId,
		Name:              input.Name,
		Unit:              input.Unit,
		Quantity:          input.Quantity,
		LowStockThreshold: input.LowStockThreshold,
		Location:          input.Location,
		Notes:             input.Notes,
	}

	if err := db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}

	item.refreshLowStock()
	return &item, nil
}

func UpdateInventoryItem(ctx context.Context, id int, input *NewInventoryItem) (*InventoryItem, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, id); err != nil {
		return nil, err
	}

	item, err := utils.FetchModel[InventoryItem](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(item).Updates(map[string]interface{}{
		"CampId":            input.CampId,
		"Name":              input.Name,
		"Unit":              input.Unit,
		"Quantity":          input.Quantity,
		"LowStockThreshold": input.LowStockThreshold,
		"Location":          input.Location,
		"Notes":             input.Notes,
	}).Error
	if err != nil {
		return nil, err
	}

	item.refreshLowStock()
	return item, nil
}

func DeleteInventoryItem(ctx context.Context, id int) (*InventoryItem, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	item, err := utils.FetchModel[InventoryItem](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(item).Error; err != nil {
		return nil, err
	}

	return item, nil
}

func GetInventoryItem(ctx context.Context, id int) (*InventoryItem, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	item, err := utils.FetchModel[InventoryItem](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}
	item.refreshLowStock()
	return item, nil
}

func ListInventoryItems(ctx context.Context, campId *int) ([]*InventoryItem, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("organization_id = ?", organizationId)
	if campId != nil && *campId > 0 {
		dbCtx.Where("camp_id = ?", *campId)
	}
	var items []*InventoryItem
	if err := dbCtx.Order("name").Find(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		item.refreshLowStock()
	}
	return items, nil
}

// AdjustInventoryQuantity applies a signed delta. The guard in the UPDATE
// keeps concurrent adjustments from driving the stock below zero.
func AdjustInventoryQuantity(ctx context.Context, id int, delta int) (*InventoryItem, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	if delta == 0 {
		return nil, errors.New("delta must not be zero")
	}

	item, err := utils.FetchModel[InventoryItem](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	result := db.WithContext(ctx).Model(&InventoryItem{}).
		Where("organization_id = ? AND id = ? AND quantity + ? >= 0", organizationId, id, delta).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, errors.New("adjustment would make the quantity negative")
	}

	item.Quantity += delta
	item.refreshLowStock()
	return item, nil
}
