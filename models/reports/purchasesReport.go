package reports

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/models"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
	"github.com/shopspring/decimal"
)

type PurchaseExportRow struct {
	PurchaseId   int             `json:"PurchaseId"`
	PurchaseDate time.Time       `json:"PurchaseDate"`
	ItemName     string          `json:"ItemName"`
	Category     string          `json:"Category"`
	CampName     string          `json:"CampName"`
	Quantity     decimal.Decimal `json:"Quantity"`
	UnitPrice    decimal.Decimal `json:"UnitPrice"`
	Total        decimal.Decimal `json:"Total"`
	Supplier     string          `json:"Supplier"`
}

var PurchaseExportHeadings = []string{
	"Purchase Id", "Purchase Date", "Item", "Category",
	"Camp", "Quantity", "Unit Price", "Total", "Supplier",
}

func (r PurchaseExportRow) GetCellValues() []interface{} {
	return []interface{}{
		r.PurchaseId,
		r.PurchaseDate.Format("2006-01-02"),
		r.ItemName,
		r.Category,
		r.CampName,
		r.Quantity.String(),
		r.UnitPrice.StringFixed(2),
		r.Total.StringFixed(2),
		r.Supplier,
	}
}

// GetPurchasesReport lists camp spending in the window. One purchase,
// one row.
func GetPurchasesReport(ctx context.Context, campId *int, category *models.PurchaseCategory,
	fromDate *models.MyDateString, toDate *models.MyDateString) ([]*PurchaseExportRow, error) {

	sqlT := `
SELECT
    purchases.id AS purchase_id,
    purchases.purchase_date,
    purchases.item_name,
    purchases.category,
    camps.name AS camp_name,
    purchases.quantity,
    purchases.unit_price,
    purchases.total,
    purchases.supplier
FROM
    purchases
        JOIN
    camps ON camps.id = purchases.camp_id
WHERE
    purchases.organization_id = @organizationId
    {{- if .campId }} AND purchases.camp_id = @campId {{- end }}
    {{- if .category }} AND purchases.category = @category {{- end }}
    {{- if .fromDate }} AND purchases.purchase_date >= @fromDate {{- end }}
    {{- if .toDate }} AND purchases.purchase_date <= @toDate {{- end }}
ORDER BY purchases.purchase_date, purchases.id;
`

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	organization, err := models.GetOrganization(ctx)
	if err != nil {
		return nil, err
	}
	if err := fromDate.StartOfDayUTCTime(organization.Timezone); err != nil {
		return nil, err
	}
	if err := toDate.EndOfDayUTCTime(organization.Timezone); err != nil {
		return nil, err
	}

	if campId != nil && *campId != 0 {
		if err := utils.ValidateResourceId[models.Camp](ctx, organizationId, *campId); err != nil {
			return nil, errors.New("camp not found")
		}
	}
	if category != nil && *category != "" && !category.IsValid() {
		return nil, errors.New("invalid purchase category")
	}

	// generating sql from template
	sql, err := utils.ExecTemplate(sqlT, map[string]interface{}{
		"campId":   utils.DereferencePtr(campId),
		"category": string(utils.DereferencePtr(category)),
		"fromDate": fromDate != nil,
		"toDate":   toDate != nil,
	})
	if err != nil {
		return nil, err
	}

	var records []*PurchaseExportRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"organizationId": organizationId,
		"campId":         campId,
		"category":       category,
		"fromDate":       fromDate,
		"toDate":         toDate,
	}).Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}
