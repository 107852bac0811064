package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
	"github.com/shopspring/decimal"
)

type Camp struct {
	ID                   int             `gorm:"primary_key" json:"id"`
	OrganizationId       string          `gorm:"index;not null" json:"organization_id"`
	Name                 string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Description          string          `gorm:"type:text" json:"description"`
	Location             string          `gorm:"size:255" json:"location"`
	StartDate            time.Time       `gorm:"not null" json:"start_date"`
	EndDate              time.Time       `gorm:"not null" json:"end_date"`
	RegistrationOpenDate time.Time       `gorm:"not null" json:"registration_open_date"`
	RegistrationDeadline time.Time       `gorm:"not null" json:"registration_deadline"`
	Fee                  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"fee"`
	Capacity             int             `gorm:"default:0" json:"capacity"`
	IsActive             *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCamp struct {
	Name                 string          `json:"name" binding:"required"`
	Description          string          `json:"description"`
	Location             string          `json:"location"`
	StartDate            time.Time       `json:"start_date" binding:"required"`
	EndDate              time.Time       `json:"end_date" binding:"required"`
	RegistrationOpenDate time.Time       `json:"registration_open_date" binding:"required"`
	RegistrationDeadline time.Time       `json:"registration_deadline" binding:"required"`
	Fee                  decimal.Decimal `json:"fee"`
	Capacity             int             `json:"capacity"`
}

// CampResponse carries the derived status alongside the stored row.
type CampResponse struct {
	Camp
	Status CampStatus `json:"status"`
}

// returns decoded cursor string
func (c Camp) GetCursor() string {
	return c.CreatedAt.String()
}

// Status derives the camp's lifecycle state from the clock. Nothing is
// persisted: the same row answers differently as time passes.
func (c Camp) Status(now time.Time) CampStatus {
	if c.IsActive != nil && !*c.IsActive {
		return CampStatusInactive
	}
	if now.After(c.EndDate) {
		return CampStatusCompleted
	}
	if !now.Before(c.StartDate) {
		return CampStatusInProgress
	}
	// camp hasn't started yet
	if now.Before(c.RegistrationOpenDate) {
		return CampStatusUpcoming
	}
	if now.After(c.RegistrationDeadline) {
		return CampStatusRegistrationClosed
	}
	return CampStatusOpenForRegistration
}

// RegistrationOpen reports whether a new camper may register right now.
func (c Camp) RegistrationOpen(now time.Time) bool {
	return c.Status(now) == CampStatusOpenForRegistration
}

func (c Camp) ToResponse(now time.Time) *CampResponse {
	return &CampResponse{Camp: c, Status: c.Status(now)}
}

func (input *NewCamp) validate(ctx context.Context, organizationId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Camp](ctx, organizationId, id); err != nil {
			return err
		}
	}
	// validate unique name
	if err := utils.ValidateUnique[Camp](ctx, organizationId, "name", input.Name, id); err != nil {
		return err
	}
	if !input.EndDate.After(input.StartDate) {
		return errors.New("end date must be after start date")
	}
	if input.RegistrationDeadline.Before(input.RegistrationOpenDate) {
		return errors.New("registration deadline must not be before registration open date")
	}
	if input.RegistrationDeadline.After(input.StartDate) {
		return errors.New("registration deadline must not be after camp start date")
	}
	if input.Fee.IsNegative() {
		return errors.New("fee must not be negative")
	}
	if input.Capacity < 0 {
		return errors.New("capacity must not be negative")
	}
	return nil
}

func CreateCamp(ctx context.Context, input *NewCamp) (*Camp, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, 0); err != nil {
		return nil, err
	}

	camp := Camp{
		OrganizationId:       organizationId,
		Name:                 input.Name,
		Description:          input.Description,
		Location:             input.Location,
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		RegistrationOpenDate: input.RegistrationOpenDate,
		RegistrationDeadline: input.RegistrationDeadline,
		Fee:                  input.Fee,
		Capacity:             input.Capacity,
		IsActive:             utils.NewTrue(),
	}

	if err := db.WithContext(ctx).Create(&camp).Error; err != nil {
		return nil, err
	}

	// invalidate cached list
	if err := utils.RemoveRedisList[Camp](organizationId); err != nil {
		return nil, err
	}
	return &camp, nil
}

func UpdateCamp(ctx context.Context, id int, input *NewCamp) (*Camp, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, id); err != nil {
		return nil, err
	}

	camp, err := utils.FetchModel[Camp](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(camp).Updates(map[string]interface{}{
		"Name":                 input.Name,
		"Description":          input.Description,
		"Location":             input.Location,
		"StartDate":            input.StartDate,
		"EndDate":              input.EndDate,
		"RegistrationOpenDate": input.RegistrationOpenDate,
		"RegistrationDeadline": input.RegistrationDeadline,
		"Fee":                  input.Fee,
		"Capacity":             input.Capacity,
	}).Error
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[Camp](organizationId); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[Camp](id); err != nil {
		return nil, err
	}
	return camp, nil
}

func DeleteCamp(ctx context.Context, id int) (*Camp, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	camp, err := utils.FetchModel[Camp](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	// a camp with registrations can only be deactivated, never deleted
	regCount, err := utils.ResourceCountWhere[Registration](ctx, organizationId, "camp_id = ?", id)
	if err != nil {
		return nil, err
	}
	if regCount > 0 {
		return nil, errors.New("camp has registrations; deactivate it instead")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(camp).Error; err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[Camp](organizationId); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[Camp](id); err != nil {
		return nil, err
	}
	return camp, nil
}

func GetCamp(ctx context.Context, id int) (*Camp, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	return utils.FetchModel[Camp](ctx, organizationId, id)
}

// ListCamps reads the cached list, falling back to the DB.
func ListCamps(ctx context.Context) ([]*Camp, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	results, err := utils.RetrieveRedisList[Camp](organizationId)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results, err = utils.FetchAllModels[Camp](ctx, organizationId)
		if err != nil {
			return nil, err
		}
		if err := utils.StoreRedisList[Camp](results, organizationId); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func ToggleActiveCamp(ctx context.Context, id int, isActive bool) (*Camp, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	camp, err := utils.FetchModel[Camp](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(camp).Update("is_active", isActive).Error; err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[Camp](organizationId); err != nil {
		return nil, err
	}
	camp.IsActive = &isActive
	return camp, nil
}

// countConfirmedRegistrations counts non-cancelled campers for capacity checks.
func countConfirmedRegistrations(ctx context.Context, organizationId string, campId int) (int64, error) {
	return utils.ResourceCountWhere[Registration](ctx, organizationId,
		"camp_id = ? AND status <> ?", campId, RegistrationStatusCancelled)
}
