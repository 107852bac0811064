package models

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Registration struct {
	ID                 int                `gorm:"primary_key" json:"id"`
	OrganizationId     string             `gorm:"index;not null" json:"organization_id"`
	CampId             int                `gorm:"index;not null" json:"camp_id"`
	CategoryId         int                `gorm:"index;not null" json:"category_id"`
	ChurchId           *int               `gorm:"index" json:"church_id"`
	RegistrationLinkId *int               `gorm:"index" json:"registration_link_id"`
	Name               string             `gorm:"size:100;not null" json:"name"`
	Gender             Gender             `gorm:"size:10" json:"gender"`
	DateOfBirth        *time.Time         `json:"date_of_birth"`
	Phone              string             `gorm:"size:20" json:"phone"`
	Email              string             `gorm:"size:100" json:"email"`
	CamperCode         string             `gorm:"size:30;not null;uniqueIndex" json:"camper_code"`
	Status             RegistrationStatus `gorm:"size:20;not null;default:'Pending'" json:"status"`
	BaseFee            decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"base_fee"`
	Discount           decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"discount"`
	DiscountType       DiscountType       `gorm:"type:enum('P','F');default:'P'" json:"discount_type"`
	DiscountAmount     decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	Fee                decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"fee"`
	Notes              string             `gorm:"type:text" json:"notes"`
	CreatedAt          time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"autoUpdateTime" json:"updated_at"`

	Camp              Camp               `json:"camp"`
	Category          Category           `json:"category"`
	Church            *Church            `json:"church"`
	CustomFieldValues []CustomFieldValue `gorm:"foreignKey:RegistrationId" json:"custom_field_values"`
}

type CustomFieldValue struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"index;not null" json:"organization_id"`
	RegistrationId int       `gorm:"index;not null" json:"registration_id"`
	CustomFieldId  int       `gorm:"index;not null" json:"custom_field_id"`
	Value          string    `gorm:"type:text" json:"value"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomFieldValue struct {
	CustomFieldId int    `json:"custom_field_id" binding:"required"`
	Value         string `json:"value"`
}

type NewRegistration struct {
	CampId            int                    `json:"camp_id" binding:"required"`
	CategoryId        int                    `json:"category_id" binding:"required"`
	ChurchId          *int                   `json:"church_id"`
	Name              string                 `json:"name" binding:"required"`
	Gender            Gender                 `json:"gender"`
	DateOfBirth       *time.Time             `json:"date_of_birth"`
	Phone             string                 `json:"phone"`
	Email             string                 `json:"email"`
	Discount          decimal.Decimal        `json:"discount"`
	DiscountType      DiscountType           `json:"discount_type"`
	Notes             string                 `json:"notes"`
	CustomFieldValues []*NewCustomFieldValue `json:"custom_field_values"`
}

type RegistrationsEdge Edge[Registration]
type RegistrationsConnection struct {
	Edges    []*RegistrationsEdge `json:"edges"`
	PageInfo *PageInfo            `json:"pageInfo"`
}

// returns decoded cursor string
func (r Registration) GetCursor() string {
	return r.CreatedAt.String()
}

func (r Registration) GetId() int {
	return r.ID
}

// registrationEventPayload is the Event-channel outbox body for downstream
// consumers (check-in kiosks, reporting pipelines).
type registrationEventPayload struct {
	RegistrationId int                `json:"registration_id"`
	CampId         int                `json:"camp_id"`
	CategoryId     int                `json:"category_id"`
	CamperCode     string             `json:"camper_code"`
	Name           string             `json:"name"`
	Status         RegistrationStatus `json:"status"`
	Fee            decimal.Decimal    `json:"fee"`
}

func (input *NewRegistration) validate(ctx context.Context, organizationId string, id int) (*Camp, *Category, error) {
	if id > 0 {
		if err := utils.ValidateResourceId[Registration](ctx, organizationId, id); err != nil {
			return nil, nil, err
		}
	}

	camp, err := utils.FetchModel[Camp](ctx, organizationId, input.CampId)
	if err != nil {
		return nil, nil, errors.New("camp not found")
	}
	if camp.IsActive != nil && !*camp.IsActive {
		return nil, nil, errors.New("camp is not active")
	}

	category, err := utils.FetchModel[Category](ctx, organizationId, input.CategoryId)
	if err != nil {
		return nil, nil, errors.New("category not found")
	}

	if input.ChurchId != nil {
		if err := utils.ValidateResourceId[Church](ctx, organizationId, *input.ChurchId); err != nil {
			return nil, nil, errors.New("church not found")
		}
	}

	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, nil, errors.New("invalid email address")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, nil, err
		}
	}
	if input.Discount.IsNegative() {
		return nil, nil, errors.New("discount must not be negative")
	}
	if input.Discount.IsPositive() && !input.DiscountType.IsValid() {
		return nil, nil, errors.New("invalid discount type")
	}
	return camp, category, nil
}

// validateCustomFieldValues checks every submitted value against its field
// definition and that all of the camp's required fields are answered.
// Unknown field ids are rejected rather than dropped.
func validateCustomFieldValues(ctx context.Context, campId int, values []*NewCustomFieldValue) error {
	fields, err := ListCustomFields(ctx, &campId)
	if err != nil {
		return err
	}

	fieldById := make(map[int]*CustomField, len(fields))
	for _, field := range fields {
		fieldById[field.ID] = field
	}

	answered := make(map[int]bool, len(values))
	for _, value := range values {
		field, ok := fieldById[value.CustomFieldId]
		if !ok {
			return fmt.Errorf("unknown custom field id %d", value.CustomFieldId)
		}
		if answered[value.CustomFieldId] {
			return fmt.Errorf("duplicate value for field %s", field.Name)
		}
		answered[value.CustomFieldId] = true
		if err := field.ValidateValue(value.Value); err != nil {
			return err
		}
	}

	for _, field := range fields {
		if field.IsRequired != nil && *field.IsRequired && !answered[field.ID] {
			return fmt.Errorf("field %s is required", field.Name)
		}
	}
	return nil
}

// registrationBaseFee picks the category override when present, otherwise
// the camp's base fee.
func registrationBaseFee(camp *Camp, category *Category) decimal.Decimal {
	if category.FeeOverride != nil {
		return *category.FeeOverride
	}
	return camp.Fee
}

// nextCamperCode allocates the next sequential code for the camp. Must run
// inside the caller's transaction so concurrent registrations can't collide.
func nextCamperCode(tx *gorm.DB, organizationId string, campId int) (string, error) {
	var count int64
	err := tx.Model(&Registration{}).
		Where("organization_id = ? AND camp_id = ?", organizationId, campId).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("C%d-%04d", campId, count+1), nil
}

// isDuplicateCamperCode reports a unique-index collision on camper_code,
// which happens when two registrations for the same camp commit at once.
func isDuplicateCamperCode(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// CreateRegistration registers a camper through the authenticated console.
// The registration window is not enforced here; staff may back-register.
// Public link registrations go through CreateRegistrationFromLink which
// enforces the window and link constraints first.
func CreateRegistration(ctx context.Context, input *NewRegistration) (*Registration, error) {
	return createRegistration(ctx, input, nil)
}

func createRegistration(ctx context.Context, input *NewRegistration, linkId *int) (*Registration, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	camp, category, err := input.validate(ctx, organizationId, 0)
	if err != nil {
		return nil, err
	}

	if err := validateCustomFieldValues(ctx, camp.ID, input.CustomFieldValues); err != nil {
		return nil, err
	}

	// serializes capacity checks across instances; the count inside the
	// transaction is still authoritative
	lockType := fmt.Sprintf("RegistrationCapacity:%d", camp.ID)
	lock, err := utils.OrganizationLock(ctx, organizationId, lockType, "Registration", "CreateRegistration")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = lock.Release(ctx)
	}()

	baseFee := registrationBaseFee(camp, category)
	discountAmount := utils.CalculateDiscountAmount(baseFee, input.Discount, string(input.DiscountType))
	fee := utils.CalculateRegistrationFee(baseFee, input.Discount, string(input.DiscountType))

	registration := Registration{
		OrganizationId:     organizationId,
		CampId:             camp.ID,
		CategoryId:         category.ID,
		ChurchId:           input.ChurchId,
		RegistrationLinkId: linkId,
		Name:               html.EscapeString(input.Name),
		Gender:             input.Gender,
		DateOfBirth:        input.DateOfBirth,
		Phone:              input.Phone,
		Email:              input.Email,
		Status:             RegistrationStatusPending,
		BaseFee:            baseFee,
		Discount:           input.Discount,
		DiscountType:       input.DiscountType,
		DiscountAmount:     discountAmount,
		Fee:                fee,
		Notes:              input.Notes,
	}
	if registration.DiscountType == "" {
		registration.DiscountType = DiscountTypePercentage
	}

	for _, value := range input.CustomFieldValues {
		registration.CustomFieldValues = append(registration.CustomFieldValues, CustomFieldValue{
			OrganizationId: organizationId,
			CustomFieldId:  value.CustomFieldId,
			Value:          value.Value,
		})
	}

	for attempt := 0; ; attempt++ {
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if camp.Capacity > 0 {
				var occupied int64
				err := tx.Model(&Registration{}).
					Where("organization_id = ? AND camp_id = ? AND status <> ?",
						organizationId, camp.ID, RegistrationStatusCancelled).
					Count(&occupied).Error
				if err != nil {
					return err
				}
				if occupied >= int64(camp.Capacity) {
					return errors.New("camp is full")
				}
			}

			camperCode, err := nextCamperCode(tx, organizationId, camp.ID)
			if err != nil {
				return err
			}
			registration.CamperCode = camperCode

			if err := tx.Create(&registration).Error; err != nil {
				return err
			}

			if linkId != nil {
				if err := consumeLinkUse(tx, organizationId, *linkId); err != nil {
					return err
				}
			}

			eventPayload := registrationEventPayload{
				RegistrationId: registration.ID,
				CampId:         registration.CampId,
				CategoryId:     registration.CategoryId,
				CamperCode:     registration.CamperCode,
				Name:           registration.Name,
				Status:         registration.Status,
				Fee:            registration.Fee,
			}
			err = PublishNotification(ctx, tx, organizationId, time.Now(), registration.ID,
				NotificationReferenceTypeRegistration, NotificationChannelEvent, eventPayload, NotificationActionCreate)
			if err != nil {
				return err
			}

			if registration.Email != "" {
				emailPayload := EmailPayload{
					To:         registration.Email,
					Subject:    fmt.Sprintf("Registration received for %s", camp.Name),
					Name:       registration.Name,
					CamperCode: registration.CamperCode,
					Body: fmt.Sprintf("Hi %s, your registration for %s has been received. Your camper code is %s.",
						registration.Name, camp.Name, registration.CamperCode),
				}
				err = PublishNotification(ctx, tx, organizationId, time.Now(), registration.ID,
					NotificationReferenceTypeRegistration, NotificationChannelEmail, emailPayload, NotificationActionCreate)
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			break
		}
		if attempt < 2 && isDuplicateCamperCode(err) {
			// A concurrent registration for the same camp took the code.
			// Re-count and try again with the next one.
			registration.ID = 0
			registration.CamperCode = ""
			for i := range registration.CustomFieldValues {
				registration.CustomFieldValues[i].ID = 0
				registration.CustomFieldValues[i].RegistrationId = 0
			}
			continue
		}
		return nil, err
	}

	return &registration, nil
}

func UpdateRegistration(ctx context.Context, id int, input *NewRegistration) (*Registration, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	camp, category, err := input.validate(ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	if err := validateCustomFieldValues(ctx, camp.ID, input.CustomFieldValues); err != nil {
		return nil, err
	}

	registration, err := utils.FetchModel[Registration](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}
	if registration.Status == RegistrationStatusCancelled {
		return nil, errors.New("cancelled registrations cannot be updated")
	}

	baseFee := registrationBaseFee(camp, category)
	discountAmount := utils.CalculateDiscountAmount(baseFee, input.Discount, string(input.DiscountType))
	fee := utils.CalculateRegistrationFee(baseFee, input.Discount, string(input.DiscountType))

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(registration).Updates(map[string]interface{}{
			"CampId":         camp.ID,
			"CategoryId":     category.ID,
			"ChurchId":       input.ChurchId,
			"Name":           html.EscapeString(input.Name),
			"Gender":         input.Gender,
			"DateOfBirth":    input.DateOfBirth,
			"Phone":          input.Phone,
			"Email":          input.Email,
			"BaseFee":        baseFee,
			"Discount":       input.Discount,
			"DiscountType":   input.DiscountType,
			"DiscountAmount": discountAmount,
			"Fee":            fee,
			"Notes":          input.Notes,
		}).Error
		if err != nil {
			return err
		}

		// replace stored answers wholesale
		err = tx.Where("organization_id = ? AND registration_id = ?", organizationId, id).
			Delete(&CustomFieldValue{}).Error
		if err != nil {
			return err
		}
		for _, value := range input.CustomFieldValues {
			fieldValue := CustomFieldValue{
				OrganizationId: organizationId,
				RegistrationId: id,
				CustomFieldId:  value.CustomFieldId,
				Value:          value.Value,
			}
			if err := tx.Create(&fieldValue).Error; err != nil {
				return err
			}
		}

		eventPayload := registrationEventPayload{
			RegistrationId: registration.ID,
			CampId:         camp.ID,
			CategoryId:     category.ID,
			CamperCode:     registration.CamperCode,
			Name:           input.Name,
			Status:         registration.Status,
			Fee:            fee,
		}
		return PublishNotification(ctx, tx, organizationId, time.Now(), registration.ID,
			NotificationReferenceTypeRegistration, NotificationChannelEvent, eventPayload, NotificationActionUpdate)
	})
	if err != nil {
		return nil, err
	}

	return GetRegistration(ctx, id)
}

// UpdateRegistrationStatus moves a registration through its lifecycle.
// Confirming a cancelled registration re-checks camp capacity.
func UpdateRegistrationStatus(ctx context.Context, id int, status RegistrationStatus) (*Registration, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	if !status.IsValid() {
		return nil, errors.New("invalid registration status")
	}

	registration, err := utils.FetchModel[Registration](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}
	if registration.Status == status {
		return registration, nil
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if registration.Status == RegistrationStatusCancelled && status != RegistrationStatusCancelled {
			camp, err := utils.FetchModel[Camp](ctx, organizationId, registration.CampId)
			if err != nil {
				return err
			}
			if camp.Capacity > 0 {
				var occupied int64
				err := tx.Model(&Registration{}).
					Where("organization_id = ? AND camp_id = ? AND status <> ?",
						organizationId, camp.ID, RegistrationStatusCancelled).
					Count(&occupied).Error
				if err != nil {
					return err
				}
				if occupied >= int64(camp.Capacity) {
					return errors.New("camp is full")
				}
			}
		}

		if err := tx.Model(registration).Update("status", status).Error; err != nil {
			return err
		}

		eventPayload := registrationEventPayload{
			RegistrationId: registration.ID,
			CampId:         registration.CampId,
			CategoryId:     registration.CategoryId,
			CamperCode:     registration.CamperCode,
			Name:           registration.Name,
			Status:         status,
			Fee:            registration.Fee,
		}
		return PublishNotification(ctx, tx, organizationId, time.Now(), registration.ID,
			NotificationReferenceTypeRegistration, NotificationChannelEvent, eventPayload, NotificationActionUpdate)
	})
	if err != nil {
		return nil, err
	}

	registration.Status = status
	return registration, nil
}

func DeleteRegistration(ctx context.Context, id int) (*Registration, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	registration, err := utils.FetchModel[Registration](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	paymentCount, err := utils.ResourceCountWhere[Payment](ctx, organizationId, "registration_id = ?", id)
	if err != nil {
		return nil, err
	}
	if paymentCount > 0 {
		return nil, errors.New("registration has payments; cancel it instead")
	}
	pledgeCount, err := utils.ResourceCountWhere[Pledge](ctx, organizationId, "registration_id = ?", id)
	if err != nil {
		return nil, err
	}
	if pledgeCount > 0 {
		return nil, errors.New("registration has pledges; cancel it instead")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("organization_id = ? AND registration_id = ?", organizationId, id).
			Delete(&CustomFieldValue{}).Error
		if err != nil {
			return err
		}
		if err := tx.Delete(registration).Error; err != nil {
			return err
		}

		eventPayload := registrationEventPayload{
			RegistrationId: registration.ID,
			CampId:         registration.CampId,
			CategoryId:     registration.CategoryId,
			CamperCode:     registration.CamperCode,
			Name:           registration.Name,
			Status:         registration.Status,
			Fee:            registration.Fee,
		}
		return PublishNotification(ctx, tx, organizationId, time.Now(), registration.ID,
			NotificationReferenceTypeRegistration, NotificationChannelEvent, eventPayload, NotificationActionDelete)
	})
	if err != nil {
		return nil, err
	}

	return registration, nil
}

func GetRegistration(ctx context.Context, id int) (*Registration, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	return utils.FetchModel[Registration](ctx, organizationId, id,
		"Camp", "Category", "Church", "CustomFieldValues")
}

func PaginateRegistration(ctx context.Context, limit *int, after *string,
	campId *int, categoryId *int, churchId *int, status *RegistrationStatus, name *string) (*RegistrationsConnection, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("organization_id = ?", organizationId).
		Preload("Camp").Preload("Category").Preload("Church").Preload("CustomFieldValues")
	if campId != nil && *campId > 0 {
		dbCtx.Where("camp_id = ?", *campId)
	}
	if categoryId != nil && *categoryId > 0 {
		dbCtx.Where("category_id = ?", *categoryId)
	}
	if churchId != nil && *churchId > 0 {
		dbCtx.Where("church_id = ?", *churchId)
	}
	if status != nil && *status != "" {
		dbCtx.Where("status = ?", *status)
	}
	if name != nil && *name != "" {
		dbCtx.Where("name LIKE ? OR camper_code LIKE ?", "%"+*name+"%", "%"+*name+"%")
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Registration](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}

	var registrationsConnection RegistrationsConnection
	registrationsConnection.PageInfo = pageInfo
	for _, edge := range edges {
		registrationEdge := RegistrationsEdge(edge)
		registrationsConnection.Edges = append(registrationsConnection.Edges, &registrationEdge)
	}

	return &registrationsConnection, err
}

// GetRegistrationByCamperCode looks a camper up for check-in scanning.
func GetRegistrationByCamperCode(ctx context.Context, camperCode string) (*Registration, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	var registration Registration
	err := db.WithContext(ctx).
		Where("organization_id = ? AND camper_code = ?", organizationId, camperCode).
		Preload("Camp").Preload("Category").
		First(&registration).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &registration, nil
}
