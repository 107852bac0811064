package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
	"github.com/shopspring/decimal"
)

// Purchase is a camp expense line. Total is always derived server-side
// from quantity and unit price; client-supplied totals are ignored.
type Purchase struct {
	ID             int              `gorm:"primary_key" json:"id"`
	OrganizationId string           `gorm:"index;not null" json:"organization_id"`
	CampId         int              `gorm:"index;not null" json:"camp_id"`
	ItemName       string           `gorm:"size:150;not null" json:"item_name"`
	Category       PurchaseCategory `gorm:"size:20;not null" json:"category"`
	Quantity       decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice      decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	Total          decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"total"`
	PurchaseDate   time.Time        `gorm:"index;not null" json:"purchase_date"`
	Supplier       string           `gorm:"size:150" json:"supplier"`
	Notes          string           `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`

	Camp Camp `json:"camp"`
}

type NewPurchase struct {
	CampId       int              `json:"camp_id" binding:"required"`
	ItemName     string           `json:"item_name" binding:"required"`
	Category     PurchaseCategory `json:"category" binding:"required"`
	Quantity     decimal.Decimal  `json:"quantity" binding:"required"`
	UnitPrice    decimal.Decimal  `json:"unit_price" binding:"required"`
	PurchaseDate time.Time        `json:"purchase_date" binding:"required"`
	Supplier     string           `json:"supplier"`
	Notes        string           `json:"notes"`
}

type PurchasesEdge Edge[Purchase]
type PurchasesConnection struct {
	Edges    []*PurchasesEdge `json:"edges"`
	PageInfo *PageInfo        `json:"pageInfo"`
}

// returns decoded cursor string
func (p Purchase) GetCursor() string {
	return p.CreatedAt.String()
}

func (p Purchase) GetId() int {
	return p.ID
}

func (input *NewPurchase) validate(ctx context.Context, organizationId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Purchase](ctx, organizationId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Camp](ctx, organizationId, input.CampId); err != nil {
		return errors.New("camp not found")
	}
	if !input.Category.IsValid() {
		return errors.New("invalid purchase category")
	}
	if !input.Quantity.IsPositive() {
		return errors.New("quantity must be positive")
	}
	if input.UnitPrice.IsNegative() {
		return errors.New("unit price must not be negative")
	}
	return nil
}

func CreatePurchase(ctx context.Context, input *NewPurchase) (*Purchase, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, 0); err != nil {
		return nil, err
	}

	purchase := Purchase{
		OrganizationId: organizationId,
		CampId:         input.CampId,
		ItemName:       input.ItemName,
		Category:       input.Category,
		Quantity:       input.Quantity,
		UnitPrice:      input.UnitPrice,
		Total:          input.Quantity.Mul(input.UnitPrice),
		PurchaseDate:   input.PurchaseDate,
		Supplier:       input.Supplier,
		Notes:          input.Notes,
	}

	if err := db.WithContext(ctx).Create(&purchase).Error; err != nil {
		return nil, err
	}

	return &purchase, nil
}

func UpdatePurchase(ctx context.Context, id int, input *NewPurchase) (*Purchase, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, id); err != nil {
		return nil, err
	}

	purchase, err := utils.FetchModel[Purchase](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(purchase).Updates(map[string]interface{}{
		"CampId":       input.CampId,
		"ItemName":     input.ItemName,
		"Category":     input.Category,
		"Quantity":     input.Quantity,
		"UnitPrice":    input.UnitPrice,
		"Total":        input.Quantity.Mul(input.UnitPrice),
		"PurchaseDate": input.PurchaseDate,
		"Supplier":     input.Supplier,
		"Notes":        input.Notes,
	}).Error
	if err != nil {
		return nil, err
	}

	return purchase, nil
}

func DeletePurchase(ctx context.Context, id int) (*Purchase, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	purchase, err := utils.FetchModel[Purchase](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(purchase).Error; err != nil {
		return nil, err
	}

	return purchase, nil
}

func GetPurchase(ctx context.Context, id int) (*Purchase, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	return utils.FetchModel[Purchase](ctx, organizationId, id, "Camp")
}

func PaginatePurchase(ctx context.Context, limit *int, after *string,
	campId *int, category *PurchaseCategory, itemName *string,
	fromDate *time.Time, toDate *time.Time) (*PurchasesConnection, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("organization_id = ?", organizationId).Preload("Camp")
	if campId != nil && *campId > 0 {
		dbCtx.Where("camp_id = ?", *campId)
	}
	if category != nil && *category != "" {
		dbCtx.Where("category = ?", *category)
	}
	if itemName != nil && *itemName != "" {
		dbCtx.Where("item_name LIKE ?", "%"+*itemName+"%")
	}
	if fromDate != nil {
		dbCtx.Where("purchase_date >= ?", *fromDate)
	}
	if toDate != nil {
		dbCtx.Where("purchase_date <= ?", *toDate)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Purchase](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}

	var purchasesConnection PurchasesConnection
	purchasesConnection.PageInfo = pageInfo
	for _, edge := range edges {
		purchaseEdge := PurchasesEdge(edge)
		purchasesConnection.Edges = append(purchasesConnection.Edges, &purchaseEdge)
	}

	return &purchasesConnection, err
}

// GetTotalPurchasesForCamp sums camp spending for the summary report.
func GetTotalPurchasesForCamp(ctx context.Context, campId int) (*decimal.Decimal, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	var total decimal.Decimal
	result := db.WithContext(ctx).Model(&Purchase{}).
		Where("organization_id = ? AND camp_id = ?", organizationId, campId).
		Select("COALESCE(SUM(total), 0)").
		Scan(&total)
	if result.Error != nil {
		return nil, result.Error
	}
	return &total, nil
}
