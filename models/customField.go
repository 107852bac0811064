package models

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
)

// CustomField is a per-camp extra question asked on that camp's
// registration form. Options holds the dropdown choices as a JSON array.
type CustomField struct {
	ID             int             `gorm:"primary_key" json:"id"`
	OrganizationId string          `gorm:"index;not null" json:"organization_id"`
	CampId         int             `gorm:"index;not null" json:"camp_id"`
	Name           string          `gorm:"size:100;not null" json:"name" binding:"required"`
	FieldType      CustomFieldType `gorm:"size:20;not null" json:"field_type" binding:"required"`
	Options        string          `gorm:"type:text" json:"options"`
	IsRequired     *bool           `gorm:"not null;default:false" json:"is_required"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomField struct {
	CampId     int             `json:"camp_id" binding:"required"`
	Name       string          `json:"name" binding:"required"`
	FieldType  CustomFieldType `json:"field_type" binding:"required"`
	Options    []string        `json:"options"`
	IsRequired *bool           `json:"is_required"`
}

func (f CustomField) GetCursor() string {
	return f.CreatedAt.String()
}

// OptionList decodes the stored options JSON. A decode failure is treated
// as an empty list since options are validated on write.
func (f CustomField) OptionList() []string {
	if f.Options == "" {
		return nil
	}
	options, err := utils.UnmarshalFromJSON[[]string](f.Options)
	if err != nil {
		return nil
	}
	return *options
}

// ValidateValue checks a submitted raw value against the field's type.
// Empty values are rejected only for required fields.
func (f CustomField) ValidateValue(value string) error {
	if strings.TrimSpace(value) == "" {
		if f.IsRequired != nil && *f.IsRequired {
			return fmt.Errorf("field %s is required", f.Name)
		}
		return nil
	}

	switch f.FieldType {
	case CustomFieldTypeText:
		return nil
	case CustomFieldTypeNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("field %s expects a number", f.Name)
		}
	case CustomFieldTypeDropdown:
		for _, option := range f.OptionList() {
			if option == value {
				return nil
			}
		}
		return fmt.Errorf("field %s does not allow value %s", f.Name, value)
	case CustomFieldTypeCheckbox:
		if value != "true" && value != "false" {
			return fmt.Errorf("field %s expects true or false", f.Name)
		}
	case CustomFieldTypeDate:
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return fmt.Errorf("field %s expects a date (YYYY-MM-DD)", f.Name)
		}
	default:
		return fmt.Errorf("field %s has unknown type %s", f.Name, f.FieldType)
	}
	return nil
}

func (input *NewCustomField) validate(ctx context.Context, organizationId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[CustomField](ctx, organizationId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Camp](ctx, organizationId, input.CampId); err != nil {
		return errors.New("camp not found")
	}
	// name is unique within the camp, not across the organization
	count, err := utils.ResourceCountWhere[CustomField](ctx, organizationId,
		"camp_id = ? AND name = ? AND NOT id = ?", input.CampId, input.Name, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate name")
	}
	if !input.FieldType.IsValid() {
		return errors.New("invalid field type")
	}
	if input.FieldType == CustomFieldTypeDropdown && len(input.Options) == 0 {
		return errors.New("dropdown fields require at least one option")
	}
	if input.FieldType != CustomFieldTypeDropdown && len(input.Options) > 0 {
		return errors.New("only dropdown fields may carry options")
	}
	return nil
}

func (input *NewCustomField) encodeOptions() (string, error) {
	if len(input.Options) == 0 {
		return "", nil
	}
	return utils.MarshalToJSON(utils.UniqueSlice(input.Options))
}

func CreateCustomField(ctx context.Context, input *NewCustomField) (*CustomField, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, 0); err != nil {
		return nil, err
	}

	options, err := input.encodeOptions()
	if err != nil {
		return nil, err
	}

	isRequired := input.IsRequired
	if isRequired == nil {
		isRequired = utils.NewFalse()
	}

	field := CustomField{
		OrganizationId: organizationId,
		CampId:         input.CampId,
		Name:           input.Name,
		FieldType:      input.FieldType,
		Options:        options,
		IsRequired:     isRequired,
	}

	if err := db.WithContext(ctx).Create(&field).Error; err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[CustomField](organizationId); err != nil {
		return nil, err
	}
	return &field, nil
}

func UpdateCustomField(ctx context.Context, id int, input *NewCustomField) (*CustomField, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, id); err != nil {
		return nil, err
	}

	field, err := utils.FetchModel[CustomField](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	// changing the type or camp would silently invalidate stored values
	if field.FieldType != input.FieldType || field.CampId != input.CampId {
		valueCount, err := utils.ResourceCountWhere[CustomFieldValue](ctx, organizationId, "custom_field_id = ?", id)
		if err != nil {
			return nil, err
		}
		if valueCount > 0 {
			return nil, errors.New("field type and camp cannot change once values exist")
		}
	}

	options, err := input.encodeOptions()
	if err != nil {
		return nil, err
	}

	isRequired := input.IsRequired
	if isRequired == nil {
		isRequired = field.IsRequired
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(field).Updates(map[string]interface{}{
		"CampId":     input.CampId,
		"Name":       input.Name,
		"FieldType":  input.FieldType,
		"Options":    options,
		"IsRequired": isRequired,
	}).Error
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[CustomField](organizationId); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[CustomField](id); err != nil {
		return nil, err
	}
	return field, nil
}

func DeleteCustomField(ctx context.Context, id int) (*CustomField, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	field, err := utils.FetchModel[CustomField](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	valueCount, err := utils.ResourceCountWhere[CustomFieldValue](ctx, organizationId, "custom_field_id = ?", id)
	if err != nil {
		return nil, err
	}
	if valueCount > 0 {
		return nil, errors.New("field has stored values and cannot be deleted")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(field).Error; err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[CustomField](organizationId); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisItem[CustomField](id); err != nil {
		return nil, err
	}
	return field, nil
}

func GetCustomField(ctx context.Context, id int) (*CustomField, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	return utils.FetchModel[CustomField](ctx, organizationId, id)
}

// ListCustomFields returns the organization's fields, narrowed to one camp
// when campId is set. The Redis cache holds the whole organization's list;
// the camp filter is applied in memory.
func ListCustomFields(ctx context.Context, campId *int) ([]*CustomField, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	results, err := utils.RetrieveRedisList[CustomField](organizationId)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results, err = utils.FetchAllModels[CustomField](ctx, organizationId)
		if err != nil {
			return nil, err
		}
		if err := utils.StoreRedisList[CustomField](results, organizationId); err != nil {
			return nil, err
		}
	}
	if campId == nil || *campId <= 0 {
		return results, nil
	}
	filtered := make([]*CustomField, 0, len(results))
	for _, field := range results {
		if field.CampId == *campId {
			filtered = append(filtered, field)
		}
	}
	return filtered, nil
}
