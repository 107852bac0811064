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

type PledgeExportRow struct {
	PledgeId     int             `json:"PledgeId"`
	PledgeDate   time.Time       `json:"PledgeDate"`
	DonorName    string          `json:"DonorName"`
	DonorContact string          `json:"DonorContact"`
	CampName     string          `json:"CampName"`
	Amount       decimal.Decimal `json:"Amount"`
	Fulfilled    decimal.Decimal `json:"Fulfilled"`
	Outstanding  decimal.Decimal `json:"Outstanding"`
	Status       string          `json:"Status"`
}

var PledgeExportHeadings = []string{
	"Pledge Id", "Pledge Date", "Donor", "Contact",
	"Camp", "Amount", "Fulfilled", "Outstanding", "Status",
}

func (r PledgeExportRow) GetCellValues() []interface{} {
	return []interface{}{
		r.PledgeId,
		r.PledgeDate.Format("2006-01-02"),
		r.DonorName,
		r.DonorContact,
		r.CampName,
		r.Amount.StringFixed(2),
		r.Fulfilled.StringFixed(2),
		r.Outstanding.StringFixed(2),
		r.Status,
	}
}

// GetPledgesReport lists every pledge in the window with its fulfillment
// total folded in. One pledge, one row.
func GetPledgesReport(ctx context.Context, campId *int, status *models.PledgeStatus,
	fromDate *models.MyDateString, toDate *models.MyDateString) ([]*PledgeExportRow, error) {

	sqlT := `
SELECT
    pledges.id AS pledge_id,
    pledges.pledge_date,
    pledges.donor_name,
    pledges.donor_contact,
    camps.name AS camp_name,
    pledges.amount,
    COALESCE(pf.fulfilled, 0) AS fulfilled,
    GREATEST(pledges.amount - COALESCE(pf.fulfilled, 0), 0) AS outstanding,
    pledges.status
FROM
    pledges
        JOIN
    camps ON camps.id = pledges.camp_id
        LEFT JOIN
    (SELECT
        pledge_id, SUM(amount) AS fulfilled
    FROM
        pledge_fulfillments
    GROUP BY pledge_id) AS pf ON pf.pledge_id = pledges.id
WHERE
    pledges.organization_id = @organizationId
    {{- if .campId }} AND pledges.camp_id = @campId {{- end }}
    {{- if .status }} AND pledges.status = @status {{- end }}
    {{- if .fromDate }} AND pledges.pledge_date >= @fromDate {{- end }}
    {{- if .toDate }} AND pledges.pledge_date <= @toDate {{- end }}
ORDER BY pledges.pledge_date, pledges.id;
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
	if status != nil && *status != "" && !status.IsValid() {
		return nil, errors.New("invalid pledge status")
	}

	// generating sql from template
	sql, err := utils.ExecTemplate(sqlT, map[string]interface{}{
		"campId":   utils.DereferencePtr(campId),
		"status":   string(utils.DereferencePtr(status)),
		"fromDate": fromDate != nil,
		"toDate":   toDate != nil,
	})
	if err != nil {
		return nil, err
	}

	var records []*PledgeExportRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"organizationId": organizationId,
		"campId":         campId,
		"status":         status,
		"fromDate":       fromDate,
		"toDate":         toDate,
	}).Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}
