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

type Payment struct {
	ID              int             `gorm:"primary_key" json:"id"`
	OrganizationId  string          `gorm:"index;not null" json:"organization_id"`
	RegistrationId  int             `gorm:"index;not null" json:"registration_id"`
	PaymentDate     time.Time       `gorm:"index;not null" json:"payment_date"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	PaymentMode     PaymentMode     `gorm:"size:20;not null" json:"payment_mode"`
	ReferenceNumber string          `gorm:"size:100" json:"reference_number"`
	Notes           string          `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Registration Registration `json:"registration"`
}

type NewPayment struct {
	RegistrationId  int             `json:"registration_id" binding:"required"`
	PaymentDate     time.Time       `json:"payment_date" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	PaymentMode     PaymentMode     `json:"payment_mode" binding:"required"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
}

type PaymentsEdge Edge[Payment]
type PaymentsConnection struct {
	Edges    []*PaymentsEdge `json:"edges"`
	PageInfo *PageInfo       `json:"pageInfo"`
}

// returns decoded cursor string
func (p Payment) GetCursor() string {
	return p.CreatedAt.String()
}

func (p Payment) GetId() int {
	return p.ID
}

type paymentEventPayload struct {
	PaymentId      int             `json:"payment_id"`
	RegistrationId int             `json:"registration_id"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentMode    PaymentMode     `json:"payment_mode"`
	PaymentDate    time.Time       `json:"payment_date"`
}

func (input *NewPayment) validate(ctx context.Context, organizationId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Payment](ctx, organizationId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Registration](ctx, organizationId, input.RegistrationId); err != nil {
		return errors.New("registration not found")
	}
	if !input.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	if !input.PaymentMode.IsValid() {
		return errors.New("invalid payment mode")
	}
	return nil
}

func CreatePayment(ctx context.Context, input *NewPayment) (*Payment, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, 0); err != nil {
		return nil, err
	}

	registration, err := utils.FetchModel[Registration](ctx, organizationId, input.RegistrationId)
	if err != nil {
		return nil, err
	}
	if registration.Status == RegistrationStatusCancelled {
		return nil, errors.New("cannot record a payment against a cancelled registration")
	}

	payment := Payment{
		OrganizationId:  organizationId,
		RegistrationId:  input.RegistrationId,
		PaymentDate:     input.PaymentDate,
		Amount:          input.Amount,
		PaymentMode:     input.PaymentMode,
		ReferenceNumber: input.ReferenceNumber,
		Notes:           input.Notes,
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		eventPayload := paymentEventPayload{
			PaymentId:      payment.ID,
			RegistrationId: payment.RegistrationId,
			Amount:         payment.Amount,
			PaymentMode:    payment.PaymentMode,
			PaymentDate:    payment.PaymentDate,
		}
		return PublishNotification(ctx, tx, organizationId, time.Now(), payment.ID,
			NotificationReferenceTypePayment, NotificationChannelEvent, eventPayload, NotificationActionCreate)
	})
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func UpdatePayment(ctx context.Context, id int, input *NewPayment) (*Payment, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, id); err != nil {
		return nil, err
	}

	payment, err := utils.FetchModel[Payment](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(payment).Updates(map[string]interface{}{
			"RegistrationId":  input.RegistrationId,
			"PaymentDate":     input.PaymentDate,
			"Amount":          input.Amount,
			"PaymentMode":     input.PaymentMode,
			"ReferenceNumber": input.ReferenceNumber,
			"Notes":           input.Notes,
		}).Error
		if err != nil {
			return err
		}

		eventPayload := paymentEventPayload{
			PaymentId:      payment.ID,
			RegistrationId: input.RegistrationId,
			Amount:         input.Amount,
			PaymentMode:    input.PaymentMode,
			PaymentDate:    input.PaymentDate,
		}
		return PublishNotification(ctx, tx, organizationId, time.Now(), payment.ID,
			NotificationReferenceTypePayment, NotificationChannelEvent, eventPayload, NotificationActionUpdate)
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

func DeletePayment(ctx context.Context, id int) (*Payment, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	payment, err := utils.FetchModel[Payment](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(payment).Error; err != nil {
			return err
		}

		eventPayload := paymentEventPayload{
			PaymentId:      payment.ID,
			RegistrationId: payment.RegistrationId,
			Amount:         payment.Amount,
			PaymentMode:    payment.PaymentMode,
			PaymentDate:    payment.PaymentDate,
		}
		return PublishNotification(ctx, tx, organizationId, time.Now(), payment.ID,
			NotificationReferenceTypePayment, NotificationChannelEvent, eventPayload, NotificationActionDelete)
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

func GetPayment(ctx context.Context, id int) (*Payment, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	return utils.FetchModel[Payment](ctx, organizationId, id, "Registration")
}

func PaginatePayment(ctx context.Context, limit *int, after *string,
	registrationId *int, campId *int, paymentMode *PaymentMode,
	fromDate *time.Time, toDate *time.Time) (*PaymentsConnection, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("payments.organization_id = ?", organizationId).
		Preload("Registration")
	if registrationId != nil && *registrationId > 0 {
		dbCtx.Where("registration_id = ?", *registrationId)
	}
	if campId != nil && *campId > 0 {
		dbCtx.Joins("JOIN registrations ON registrations.id = payments.registration_id").
			Where("registrations.camp_id = ?", *campId)
	}
	if paymentMode != nil && *paymentMode != "" {
		dbCtx.Where("payment_mode = ?", *paymentMode)
	}
	if fromDate != nil {
		dbCtx.Where("payment_date >= ?", *fromDate)
	}
	if toDate != nil {
		dbCtx.Where("payment_date <= ?", *toDate)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Payment](dbCtx, *limit, after, "payments.created_at", "<")
	if err != nil {
		return nil, err
	}

	var paymentsConnection PaymentsConnection
	paymentsConnection.PageInfo = pageInfo
	for _, edge := range edges {
		paymentEdge := PaymentsEdge(edge)
		paymentsConnection.Edges = append(paymentsConnection.Edges, &paymentEdge)
	}

	return &paymentsConnection, err
}

// GetTotalPaidForRegistration sums non-deleted payments for a camper.
func GetTotalPaidForRegistration(ctx context.Context, registrationId int) (*decimal.Decimal, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	var total decimal.Decimal
	result := db.WithContext(ctx).Model(&Payment{}).
		Where("organization_id = ? AND registration_id = ?", organizationId, registrationId).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total)
	if result.Error != nil {
		return nil, result.Error
	}
	return &total, nil
}
