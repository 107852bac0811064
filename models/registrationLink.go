package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RegistrationLink is a shareable token that lets campers self-register
// through the public form without an account. MaxUses of zero means
// unlimited; AllowedCategoryIds (JSON array) of empty means any category.
type RegistrationLink struct {
	ID                 int        `gorm:"primary_key" json:"id"`
	OrganizationId     string     `gorm:"index;not null" json:"organization_id"`
	CampId             int        `gorm:"index;not null" json:"camp_id"`
	Token              string     `gorm:"size:64;uniqueIndex;not null" json:"token"`
	Name               string     `gorm:"size:100" json:"name"`
	ExpiresAt          *time.Time `json:"expires_at"`
	MaxUses            int        `gorm:"default:0" json:"max_uses"`
	UseCount           int        `gorm:"default:0" json:"use_count"`
	AllowedCategoryIds string     `gorm:"type:text" json:"allowed_category_ids"`
	IsActive           *bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Camp Camp `json:"camp"`
}

type NewRegistrationLink struct {
	CampId             int        `json:"camp_id" binding:"required"`
	Name               string     `json:"name"`
	ExpiresAt          *time.Time `json:"expires_at"`
	MaxUses            int        `json:"max_uses"`
	AllowedCategoryIds []int      `json:"allowed_category_ids"`
}

// ResolvedRegistrationLink is what the public form needs to render.
type ResolvedRegistrationLink struct {
	Link         RegistrationLink `json:"link"`
	Camp         CampResponse     `json:"camp"`
	Categories   []*Category      `json:"categories"`
	CustomFields []*CustomField   `json:"custom_fields"`
}

func (l RegistrationLink) GetCursor() string {
	return l.CreatedAt.String()
}

func (l RegistrationLink) categoryIds() []int {
	if l.AllowedCategoryIds == "" {
		return nil
	}
	ids, err := utils.UnmarshalFromJSON[[]int](l.AllowedCategoryIds)
	if err != nil {
		return nil
	}
	return *ids
}

func (l RegistrationLink) allowsCategory(categoryId int) bool {
	ids := l.categoryIds()
	if len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if id == categoryId {
			return true
		}
	}
	return false
}

// usable reports whether the link may still admit registrations.
func (l RegistrationLink) usable(now time.Time) error {
	if l.IsActive != nil && !*l.IsActive {
		return errors.New("registration link is disabled")
	}
	if l.ExpiresAt != nil && now.After(*l.ExpiresAt) {
		return errors.New("registration link has expired")
	}
	if l.MaxUses > 0 && l.UseCount >= l.MaxUses {
		return errors.New("registration link has been used up")
	}
	return nil
}

func (input *NewRegistrationLink) validate(ctx context.Context, organizationId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[RegistrationLink](ctx, organizationId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Camp](ctx, organizationId, input.CampId); err != nil {
		return errors.New("camp not found")
	}
	if input.MaxUses < 0 {
		return errors.New("max uses must not be negative")
	}
	if len(input.AllowedCategoryIds) > 0 {
		if err := utils.ValidateResourcesId[Category](ctx, organizationId, input.AllowedCategoryIds); err != nil {
			return errors.New("allowed category not found")
		}
	}
	return nil
}

func (input *NewRegistrationLink) encodeCategoryIds() (string, error) {
	if len(input.AllowedCategoryIds) == 0 {
		return "", nil
	}
	return utils.MarshalToJSON(utils.UniqueSlice(input.AllowedCategoryIds))
}

func CreateRegistrationLink(ctx context.Context, input *NewRegistrationLink) (*RegistrationLink, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, 0); err != nil {
		return nil, err
	}

	categoryIds, err := input.encodeCategoryIds()
	if err != nil {
		return nil, err
	}

	link := RegistrationLink{
		OrganizationId:     organizationId,
		CampId:             input.CampId,
		Token:              uuid.NewString(),
		Name:               input.Name,
		ExpiresAt:          input.ExpiresAt,
		MaxUses:            input.MaxUses,
		AllowedCategoryIds: categoryIds,
		IsActive:           utils.NewTrue(),
	}

	if err := db.WithContext(ctx).Create(&link).Error; err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[RegistrationLink](organizationId); err != nil {
		return nil, err
	}
	return &link, nil
}

// UpdateRegistrationLink changes constraints. The token itself never
// changes; revoke by deactivating and issue a fresh link instead.
func UpdateRegistrationLink(ctx context.Context, id int, input *NewRegistrationLink) (*RegistrationLink, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, id); err != nil {
		return nil, err
	}

	link, err := utils.FetchModel[RegistrationLink](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	categoryIds, err := input.encodeCategoryIds()
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(link).Updates(map[string]interface{}{
		"CampId":             input.CampId,
		"Name":               input.Name,
		"ExpiresAt":          input.ExpiresAt,
		"MaxUses":            input.MaxUses,
		"AllowedCategoryIds": categoryIds,
	}).Error
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[RegistrationLink](organizationId); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[RegistrationLink](id); err != nil {
		return nil, err
	}
	return link, nil
}

func ToggleActiveRegistrationLink(ctx context.Context, id int, isActive bool) (*RegistrationLink, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	link, err := utils.FetchModel[RegistrationLink](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(link).Update("is_active", isActive).Error; err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[RegistrationLink](organizationId); err != nil {
		return nil, err
	}
	link.IsActive = &isActive
	return link, nil
}

func DeleteRegistrationLink(ctx context.Context, id int) (*RegistrationLink, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	link, err := utils.FetchModel[RegistrationLink](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(link).Error; err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[RegistrationLink](organizationId); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[RegistrationLink](id); err != nil {
		return nil, err
	}
	return link, nil
}

func GetRegistrationLink(ctx context.Context, id int) (*RegistrationLink, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	return utils.FetchModel[RegistrationLink](ctx, organizationId, id, "Camp")
}

func ListRegistrationLinks(ctx context.Context) ([]*RegistrationLink, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	results, err := utils.RetrieveRedisList[RegistrationLink](organizationId)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results, err = utils.FetchAllModels[RegistrationLink](ctx, organizationId, "Camp")
		if err != nil {
			return nil, err
		}
		if err := utils.StoreRedisList[RegistrationLink](results, organizationId); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// findLinkByToken looks a link up across tenants. Used by the public form
// where no session (and thus no organization) exists yet.
func findLinkByToken(ctx context.Context, token string) (*RegistrationLink, error) {
	db := config.GetDB()

	publicCtx := utils.SetSkipTenantScopeInContext(ctx, true)

	var link RegistrationLink
	err := db.WithContext(publicCtx).
		Where("token = ?", token).
		Preload("Camp").
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &link, nil
}

// ResolveRegistrationLink validates a public token and returns everything
// the registration form needs: the camp, the eligible categories, and the
// camp's custom fields.
func ResolveRegistrationLink(ctx context.Context, token string) (*ResolvedRegistrationLink, error) {
	link, err := findLinkByToken(ctx, token)
	if err != nil {
		return nil, errors.New("registration link not found")
	}

	now := time.Now()
	if err := link.usable(now); err != nil {
		return nil, err
	}
	if !link.Camp.RegistrationOpen(now) {
		return nil, errors.New("registration is not open for this camp")
	}

	// downstream lookups run under the link's own organization
	orgCtx := utils.SetOrganizationIdInContext(ctx, link.OrganizationId)

	categories, err := ListCategories(orgCtx)
	if err != nil {
		return nil, err
	}
	if allowed := link.categoryIds(); len(allowed) > 0 {
		filtered := make([]*Category, 0, len(categories))
		for _, category := range categories {
			if link.allowsCategory(category.ID) {
				filtered = append(filtered, category)
			}
		}
		categories = filtered
	}

	fields, err := ListCustomFields(orgCtx, &link.CampId)
	if err != nil {
		return nil, err
	}

	return &ResolvedRegistrationLink{
		Link:         *link,
		Camp:         *link.Camp.ToResponse(now),
		Categories:   categories,
		CustomFields: fields,
	}, nil
}

// CreateRegistrationFromLink is the public self-registration path. The
// registration window and every link constraint are enforced; the link's
// use counter is consumed inside the registration's transaction.
func CreateRegistrationFromLink(ctx context.Context, token string, input *NewRegistration) (*Registration, error) {
	link, err := findLinkByToken(ctx, token)
	if err != nil {
		return nil, errors.New("registration link not found")
	}

	now := time.Now()
	if err := link.usable(now); err != nil {
		return nil, err
	}
	if !link.Camp.RegistrationOpen(now) {
		return nil, errors.New("registration is not open for this camp")
	}
	if input.CampId != 0 && input.CampId != link.CampId {
		return nil, errors.New("registration link is for a different camp")
	}
	input.CampId = link.CampId
	if !link.allowsCategory(input.CategoryId) {
		return nil, errors.New("category is not allowed by this registration link")
	}
	// self-registrations never carry a discount
	input.Discount = decimal.Zero
	input.DiscountType = ""

	orgCtx := utils.SetOrganizationIdInContext(ctx, link.OrganizationId)
	return createRegistration(orgCtx, input, &link.ID)
}

// consumeLinkUse bumps the counter, refusing the increment when the link
// filled up between resolution and commit.
func consumeLinkUse(tx *gorm.DB, organizationId string, linkId int) error {
	result := tx.Model(&RegistrationLink{}).
		Where("organization_id = ? AND id = ? AND (max_uses = 0 OR use_count < max_uses)",
			organizationId, linkId).
		Update("use_count", gorm.Expr("use_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("registration link has been used up")
	}

	if err := utils.RemoveRedisList[RegistrationLink](organizationId); err != nil {
		return err
	}
	return utils.RemoveRedisItem[RegistrationLink](linkId)
}
