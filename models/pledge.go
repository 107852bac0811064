package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Pledge is a promise of money toward a camp, recorded against a donor and
// settled over time via PledgeFulfillments. The stored Status is kept in
// step with the fulfillment total on every write.
type Pledge struct {
	ID             int             `gorm:"primary_key" json:"id"`
	OrganizationId string          `gorm:"index;not null" json:"organization_id"`
	CampId         int             `gorm:"index;not null" json:"camp_id"`
	RegistrationId *int            `gorm:"index" json:"registration_id"`
	ChurchId       *int            `gorm:"index" json:"church_id"`
	DonorName      string          `gorm:"size:100;not null" json:"donor_name"`
	DonorContact   string          `gorm:"size:100" json:"donor_contact"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	PledgeDate     time.Time       `gorm:"index;not null" json:"pledge_date"`
	Status         PledgeStatus    `gorm:"size:30;not null;default:'Open'" json:"status"`
	Notes          string          `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Camp         Camp                `json:"camp"`
	Fulfillments []PledgeFulfillment `gorm:"foreignKey:PledgeId" json:"fulfillments"`
}

type PledgeFulfillment struct {
	ID              int             `gorm:"primary_key" json:"id"`
	OrganizationId  string          `gorm:"index;not null" json:"organization_id"`
	PledgeId        int             `gorm:"index;not null" json:"pledge_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	FulfillmentDate time.Time       `gorm:"not null" json:"fulfillment_date"`
	PaymentMode     PaymentMode     `gorm:"size:20" json:"payment_mode"`
	Notes           string          `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewPledge carries camper pledges (registration_id) and church pledges
// (church_id); a plain donor pledge sets neither.
type NewPledge struct {
	CampId         int             `json:"camp_id" binding:"required"`
	RegistrationId *int            `json:"registration_id"`
	ChurchId       *int            `json:"church_id"`
	DonorName      string          `json:"donor_name" binding:"required"`
	DonorContact   string          `json:"donor_contact"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	PledgeDate     time.Time       `json:"pledge_date" binding:"required"`
	Notes          string          `json:"notes"`
}

type NewPledgeFulfillment struct {
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	FulfillmentDate time.Time       `json:"fulfillment_date" binding:"required"`
	PaymentMode     PaymentMode     `json:"payment_mode"`
	Notes           string          `json:"notes"`
}

type PledgesEdge Edge[Pledge]
type PledgesConnection struct {
	Edges    []*PledgesEdge `json:"edges"`
	PageInfo *PageInfo      `json:"pageInfo"`
}

// returns decoded cursor string
func (p Pledge) GetCursor() string {
	return p.CreatedAt.String()
}

func (p Pledge) GetId() int {
	return p.ID
}

// FulfilledAmount sums the loaded fulfillments.
func (p Pledge) FulfilledAmount() decimal.Decimal {
	total := decimal.Zero
	for _, fulfillment := range p.Fulfillments {
		total = total.Add(fulfillment.Amount)
	}
	return total
}

// Outstanding is the unpaid remainder, never negative.
func (p Pledge) Outstanding() decimal.Decimal {
	outstanding := p.Amount.Sub(p.FulfilledAmount())
	if outstanding.IsNegative() {
		return decimal.Zero
	}
	return outstanding
}

// FulfillmentPercentage is 0 for a zero-amount pledge rather than a
// division error.
func (p Pledge) FulfillmentPercentage() decimal.Decimal {
	if p.Amount.IsZero() {
		return decimal.Zero
	}
	return p.FulfilledAmount().Mul(decimal.NewFromInt(100)).DivRound(p.Amount, 2)
}

// deriveStatus maps a fulfillment total onto the pledge lifecycle.
func (p Pledge) deriveStatus(fulfilled decimal.Decimal) PledgeStatus {
	if fulfilled.GreaterThanOrEqual(p.Amount) && p.Amount.IsPositive() {
		return PledgeStatusFulfilled
	}
	if fulfilled.IsPositive() {
		return PledgeStatusPartiallyFulfilled
	}
	return PledgeStatusOpen
}

type pledgeEventPayload struct {
	PledgeId  int             `json:"pledge_id"`
	CampId    int             `json:"camp_id"`
	DonorName string          `json:"donor_name"`
	Amount    decimal.Decimal `json:"amount"`
	Fulfilled decimal.Decimal `json:"fulfilled"`
	Status    PledgeStatus    `json:"status"`
}

func (input *NewPledge) validate(ctx context.Context, organizationId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Pledge](ctx, organizationId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Camp](ctx, organizationId, input.CampId); err != nil {
		return errors.New("camp not found")
	}
	if input.RegistrationId != nil && input.ChurchId != nil {
		return errors.New("a pledge belongs to a camper or a church, not both")
	}
	if input.RegistrationId != nil {
		if err := utils.ValidateResourceId[Registration](ctx, organizationId, *input.RegistrationId); err != nil {
			return errors.New("registration not found")
		}
	}
	if input.ChurchId != nil {
		if err := utils.ValidateResourceId[Church](ctx, organizationId, *input.ChurchId); err != nil {
			return errors.New("church not found")
		}
	}
	if !input.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	return nil
}

func CreatePledge(ctx context.Context, input *NewPledge) (*Pledge, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, 0); err != nil {
		return nil, err
	}

	pledge := Pledge{
		OrganizationId: organizationId,
		CampId:         input.CampId,
		RegistrationId: input.RegistrationId,
		ChurchId:       input.ChurchId,
		DonorName:      input.DonorName,
		DonorContact:   input.DonorContact,
		Amount:         input.Amount,
		PledgeDate:     input.PledgeDate,
		Status:         PledgeStatusOpen,
		Notes:          input.Notes,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&pledge).Error; err != nil {
			return err
		}

		eventPayload := pledgeEventPayload{
			PledgeId:  pledge.ID,
			CampId:    pledge.CampId,
			DonorName: pledge.DonorName,
			Amount:    pledge.Amount,
			Fulfilled: decimal.Zero,
			Status:    pledge.Status,
		}
		return PublishNotification(ctx, tx, organizationId, time.Now(), pledge.ID,
			NotificationReferenceTypePledge, NotificationChannelEvent, eventPayload, NotificationActionCreate)
	})
	if err != nil {
		return nil, err
	}

	return &pledge, nil
}

func UpdatePledge(ctx context.Context, id int, input *NewPledge) (*Pledge, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, id); err != nil {
		return nil, err
	}

	pledge, err := utils.FetchModel[Pledge](ctx, organizationId, id, "Fulfillments")
	if err != nil {
		return nil, err
	}

	// shrinking below what's already fulfilled would strand the excess
	fulfilled := pledge.FulfilledAmount()
	if input.Amount.LessThan(fulfilled) {
		return nil, errors.New("amount cannot be less than the fulfilled total")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		status := pledge.deriveStatus(fulfilled)
		err := tx.Model(pledge).Updates(map[string]interface{}{
			"CampId":         input.CampId,
			"RegistrationId": input.RegistrationId,
			"ChurchId":       input.ChurchId,
			"DonorName":      input.DonorName,
			"DonorContact":   input.DonorContact,
			"Amount":         input.Amount,
			"PledgeDate":     input.PledgeDate,
			"Status":         status,
			"Notes":          input.Notes,
		}).Error
		if err != nil {
			return err
		}

		eventPayload := pledgeEventPayload{
			PledgeId:  pledge.ID,
			CampId:    input.CampId,
			DonorName: input.DonorName,
			Amount:    input.Amount,
			Fulfilled: fulfilled,
			Status:    status,
		}
		return PublishNotification(ctx, tx, organizationId, time.Now(), pledge.ID,
			NotificationReferenceTypePledge, NotificationChannelEvent, eventPayload, NotificationActionUpdate)
	})
	if err != nil {
		return nil, err
	}

	return GetPledge(ctx, id)
}

func DeletePledge(ctx context.Context, id int) (*Pledge, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	pledge, err := utils.FetchModel[Pledge](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	fulfillmentCount, err := utils.ResourceCountWhere[PledgeFulfillment](ctx, organizationId, "pledge_id = ?", id)
	if err != nil {
		return nil, err
	}
	if fulfillmentCount > 0 {
		return nil, errors.New("pledge has fulfillments and cannot be deleted")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(pledge).Error; err != nil {
			return err
		}

		eventPayload := pledgeEventPayload{
			PledgeId:  pledge.ID,
			CampId:    pledge.CampId,
			DonorName: pledge.DonorName,
			Amount:    pledge.Amount,
			Status:    pledge.Status,
		}
		return PublishNotification(ctx, tx, organizationId, time.Now(), pledge.ID,
			NotificationReferenceTypePledge, NotificationChannelEvent, eventPayload, NotificationActionDelete)
	})
	if err != nil {
		return nil, err
	}

	return pledge, nil
}

func GetPledge(ctx context.Context, id int) (*Pledge, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	return utils.FetchModel[Pledge](ctx, organizationId, id, "Camp", "Fulfillments")
}

func PaginatePledge(ctx context.Context, limit *int, after *string,
	campId *int, churchId *int, status *PledgeStatus, donorName *string) (*PledgesConnection, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("organization_id = ?", organizationId).
		Preload("Camp").Preload("Fulfillments")
	if campId != nil && *campId > 0 {
		dbCtx.Where("camp_id = ?", *campId)
	}
	if churchId != nil && *churchId > 0 {
		dbCtx.Where("church_id = ?", *churchId)
	}
	if status != nil && *status != "" {
		dbCtx.Where("status = ?", *status)
	}
	if donorName != nil && *donorName != "" {
		dbCtx.Where("donor_name LIKE ?", "%"+*donorName+"%")
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Pledge](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}

	var pledgesConnection PledgesConnection
	pledgesConnection.PageInfo = pageInfo
	for _, edge := range edges {
		pledgeEdge := PledgesEdge(edge)
		pledgesConnection.Edges = append(pledgesConnection.Edges, &pledgeEdge)
	}

	return &pledgesConnection, err
}

// AddPledgeFulfillment records money received against the pledge. The
// fulfillment total may never exceed the pledged amount; the pledge status
// is recomputed inside the same transaction.
func AddPledgeFulfillment(ctx context.Context, pledgeId int, input *NewPledgeFulfillment) (*Pledge, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if !input.Amount.IsPositive() {
		return nil, errors.New("amount must be positive")
	}
	if input.PaymentMode != "" && !input.PaymentMode.IsValid() {
		return nil, errors.New("invalid payment mode")
	}

	pledge, err := utils.FetchModel[Pledge](ctx, organizationId, pledgeId, "Fulfillments")
	if err != nil {
		return nil, err
	}

	fulfilled := pledge.FulfilledAmount()
	if fulfilled.Add(input.Amount).GreaterThan(pledge.Amount) {
		return nil, errors.New("fulfillment exceeds the pledged amount")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fulfillment := PledgeFulfillment{
			OrganizationId:  organizationId,
			PledgeId:        pledgeId,
			Amount:          input.Amount,
			FulfillmentDate: input.FulfillmentDate,
			PaymentMode:     input.PaymentMode,
			Notes:           input.Notes,
		}
		if err := tx.Create(&fulfillment).Error; err != nil {
			return err
		}

		newTotal := fulfilled.Add(input.Amount)
		status := pledge.deriveStatus(newTotal)
		if err := tx.Model(pledge).Update("status", status).Error; err != nil {
			return err
		}

		eventPayload := pledgeEventPayload{
			PledgeId:  pledge.ID,
			CampId:    pledge.CampId,
			DonorName: pledge.DonorName,
			Amount:    pledge.Amount,
			Fulfilled: newTotal,
			Status:    status,
		}
		return PublishNotification(ctx, tx, organizationId, time.Now(), fulfillment.ID,
			NotificationReferenceTypePledgeFulfillment, NotificationChannelEvent, eventPayload, NotificationActionCreate)
	})
	if err != nil {
		return nil, err
	}

	return GetPledge(ctx, pledgeId)
}

// DeletePledgeFulfillment backs a recording error out and re-derives the
// pledge status.
func DeletePledgeFulfillment(ctx context.Context, pledgeId int, fulfillmentId int) (*Pledge, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	pledge, err := utils.FetchModel[Pledge](ctx, organizationId, pledgeId, "Fulfillments")
	if err != nil {
		return nil, err
	}

	var target *PledgeFulfillment
	for i := range pledge.Fulfillments {
		if pledge.Fulfillments[i].ID == fulfillmentId {
			target = &pledge.Fulfillments[i]
			break
		}
	}
	if target == nil {
		return nil, utils.ErrorRecordNotFound
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(target).Error; err != nil {
			return err
		}

		newTotal := pledge.FulfilledAmount().Sub(target.Amount)
		status := pledge.deriveStatus(newTotal)
		if err := tx.Model(pledge).Update("status", status).Error; err != nil {
			return err
		}

		eventPayload := pledgeEventPayload{
			PledgeId:  pledge.ID,
			CampId:    pledge.CampId,
			DonorName: pledge.DonorName,
			Amount:    pledge.Amount,
			Fulfilled: newTotal,
			Status:    status,
		}
		return PublishNotification(ctx, tx, organizationId, time.Now(), fulfillmentId,
			NotificationReferenceTypePledgeFulfillment, NotificationChannelEvent, eventPayload, NotificationActionDelete)
	})
	if err != nil {
		return nil, err
	}

	return GetPledge(ctx, pledgeId)
}
