package reports

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/models"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
	"github.com/shopspring/decimal"
)

// RegistrationSummaryResponse is one camp's line on the dashboard: how many
// campers in each state, the money expected, and the money in hand.
type RegistrationSummaryResponse struct {
	CampId         int             `json:"CampId"`
	CampName       string          `json:"CampName"`
	TotalCount     int             `json:"TotalCount"`
	PendingCount   int             `json:"PendingCount"`
	ConfirmedCount int             `json:"ConfirmedCount"`
	CancelledCount int             `json:"CancelledCount"`
	TotalFees      decimal.Decimal `json:"TotalFees"`
	TotalPaid      decimal.Decimal `json:"TotalPaid"`
	TotalPledged   decimal.Decimal `json:"TotalPledged"`
	TotalPurchases decimal.Decimal `json:"TotalPurchases"`
}

func GetRegistrationSummaryReport(ctx context.Context, campId *int) ([]*RegistrationSummaryResponse, error) {

	sqlT := `
SELECT
    camps.id AS camp_id,
    camps.name AS camp_name,
    COALESCE(reg.total_count, 0) AS total_count,
    COALESCE(reg.pending_count, 0) AS pending_count,
    COALESCE(reg.confirmed_count, 0) AS confirmed_count,
    COALESCE(reg.cancelled_count, 0) AS cancelled_count,
    COALESCE(reg.total_fees, 0) AS total_fees,
    COALESCE(pay.total_paid, 0) AS total_paid,
    COALESCE(plg.total_pledged, 0) AS total_pledged,
    COALESCE(pur.total_purchases, 0) AS total_purchases
FROM
    camps
        LEFT JOIN
    (SELECT
        camp_id,
            COUNT(id) AS total_count,
            SUM(status = 'Pending') AS pending_count,
            SUM(status = 'Confirmed') AS confirmed_count,
            SUM(status = 'Cancelled') AS cancelled_count,
            SUM(CASE WHEN status <> 'Cancelled' THEN fee ELSE 0 END) AS total_fees
    FROM
        registrations
    WHERE
        organization_id = @organizationId
    GROUP BY camp_id) AS reg ON reg.camp_id = camps.id
        LEFT JOIN
    (SELECT
        registrations.camp_id, SUM(payments.amount) AS total_paid
    FROM
        payments
    JOIN registrations ON registrations.id = payments.registration_id
    WHERE
        payments.organization_id = @organizationId
    GROUP BY registrations.camp_id) AS pay ON pay.camp_id = camps.id
        LEFT JOIN
    (SELECT
        camp_id, SUM(amount) AS total_pledged
    FROM
        pledges
    WHERE
        organization_id = @organizationId
    GROUP BY camp_id) AS plg ON plg.camp_id = camps.id
        LEFT JOIN
    (SELECT
        camp_id, SUM(total) AS total_purchases
    FROM
        purchases
    WHERE
        organization_id = @organizationId
    GROUP BY camp_id) AS pur ON pur.camp_id = camps.id
WHERE
    camps.organization_id = @organizationId
    {{- if .campId }} AND camps.id = @campId {{- end }}
ORDER BY camps.start_date DESC;
`

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if campId != nil && *campId != 0 {
		if err := utils.ValidateResourceId[models.Camp](ctx, organizationId, *campId); err != nil {
			return nil, errors.New("camp not found")
		}
	}

	// generating sql from template
	sql, err := utils.ExecTemplate(sqlT, map[string]interface{}{
		"campId": utils.DereferencePtr(campId),
	})
	if err != nil {
		return nil, err
	}

	var records []*RegistrationSummaryResponse
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"organizationId": organizationId,
		"campId":         campId,
	}).Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}
