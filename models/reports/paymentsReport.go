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

type PaymentExportRow struct {
	PaymentId       int             `json:"PaymentId"`
	PaymentDate     time.Time       `json:"PaymentDate"`
	CamperCode      string          `json:"CamperCode"`
	CamperName      string          `json:"CamperName"`
	CampName        string          `json:"CampName"`
	Amount          decimal.Decimal `json:"Amount"`
	PaymentMode     string          `json:"PaymentMode"`
	ReferenceNumber string          `json:"ReferenceNumber"`
}

var PaymentExportHeadings = []string{
	"Payment Id", "Payment Date", "Camper Code", "Camper Name",
	"Camp", "Amount", "Payment Mode", "Reference Number",
}

func (r PaymentExportRow) GetCellValues() []interface{} {
	return []interface{}{
		r.PaymentId,
		r.PaymentDate.Format("2006-01-02"),
		r.CamperCode,
		r.CamperName,
		r.CampName,
		r.Amount.StringFixed(2),
		r.PaymentMode,
		r.ReferenceNumber,
	}
}

// GetPaymentsReport lists every payment in the window joined to its camper
// and camp. One payment, one row.
func GetPaymentsReport(ctx context.Context, campId *int, fromDate *models.MyDateString, toDate *models.MyDateString) ([]*PaymentExportRow, error) {

	sqlT := `
SELECT
    payments.id AS payment_id,
    payments.payment_date,
    registrations.camper_code,
    registrations.name AS camper_name,
    camps.name AS camp_name,
    payments.amount,
    payments.payment_mode,
    payments.reference_number
FROM
    payments
        JOIN
    registrations ON registrations.id = payments.registration_id
        JOIN
    camps ON camps.id = registrations.camp_id
WHERE
    payments.organization_id = @organizationId
    {{- if .campId }} AND registrations.camp_id = @campId {{- end }}
    {{- if .fromDate }} AND payments.payment_date >= @fromDate {{- end }}
    {{- if .toDate }} AND payments.payment_date <= @toDate {{- end }}
ORDER BY payments.payment_date, payments.id;
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

	// generating sql from template
	sql, err := utils.ExecTemplate(sqlT, map[string]interface{}{
		"campId":   utils.DereferencePtr(campId),
		"fromDate": fromDate != nil,
		"toDate":   toDate != nil,
	})
	if err != nil {
		return nil, err
	}

	var records []*PaymentExportRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"organizationId": organizationId,
		"campId":         campId,
		"fromDate":       fromDate,
		"toDate":         toDate,
	}).Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}
