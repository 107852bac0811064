package models

import (
	"context"
	"testing"

	"bitbucket.org/mmdatafocus/camps_backend/utils"
)

func TestCustomFieldValidateValue(t *testing.T) {
	dropdown := CustomField{
		Name:      "T-Shirt Size",
		FieldType: CustomFieldTypeDropdown,
		Options:   `["S","M","L"]`,
	}

	cases := []struct {
		name    string
		field   CustomField
		value   string
		wantErr bool
	}{
		{"text accepts anything", CustomField{Name: "Allergies", FieldType: CustomFieldTypeText}, "peanuts", false},
		{"optional empty passes", CustomField{Name: "Allergies", FieldType: CustomFieldTypeText}, "  ", false},
		{"required empty fails", CustomField{Name: "Allergies", FieldType: CustomFieldTypeText, IsRequired: utils.NewTrue()}, "", true},
		{"number valid", CustomField{Name: "Age", FieldType: CustomFieldTypeNumber}, "12.5", false},
		{"number invalid", CustomField{Name: "Age", FieldType: CustomFieldTypeNumber}, "twelve", true},
		{"dropdown member", dropdown, "M", false},
		{"dropdown non-member", dropdown, "XXL", true},
		{"checkbox true", CustomField{Name: "Swimmer", FieldType: CustomFieldTypeCheckbox}, "true", false},
		{"checkbox false", CustomField{Name: "Swimmer", FieldType: CustomFieldTypeCheckbox}, "false", false},
		{"checkbox junk", CustomField{Name: "Swimmer", FieldType: CustomFieldTypeCheckbox}, "yes", true},
		{"date valid", CustomField{Name: "Baptism Date", FieldType: CustomFieldTypeDate}, "2026-01-31", false},
		{"date invalid", CustomField{Name: "Baptism Date", FieldType: CustomFieldTypeDate}, "31/01/2026", true},
	}
	for _, tc := range cases {
		err := tc.field.ValidateValue(tc.value)
		if tc.wantErr && err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestCustomFieldOptionList(t *testing.T) {
	field := CustomField{FieldType: CustomFieldTypeDropdown, Options: `["S","M","L"]`}
	options := field.OptionList()
	if len(options) != 3 || options[0] != "S" || options[2] != "L" {
		t.Errorf("OptionList = %v, want [S M L]", options)
	}

	empty := CustomField{FieldType: CustomFieldTypeText}
	if got := empty.OptionList(); got != nil {
		t.Errorf("OptionList on empty options = %v, want nil", got)
	}

	corrupt := CustomField{FieldType: CustomFieldTypeDropdown, Options: `not json`}
	if got := corrupt.OptionList(); got != nil {
		t.Errorf("OptionList on corrupt options = %v, want nil", got)
	}
}

// Field names collide within one camp only; the uniqueness query must carry
// the camp in its WHERE clause.
func TestCustomFieldNameUniquePerCamp(t *testing.T) {
	mock := mockDatabase(t)
	mock.ExpectQuery("SELECT count.* FROM .camps.").WillReturnRows(countRows(1))
	mock.ExpectQuery("SELECT count.* FROM .custom_fields.").
		WithArgs("org-1", 2, "T-Shirt Size", 0).
		WillReturnRows(countRows(1))

	input := &NewCustomField{
		CampId:    2,
		Name:      "T-Shirt Size",
		FieldType: CustomFieldTypeText,
	}

	err := input.validate(context.Background(), "org-1", 0)
	if err == nil || err.Error() != "duplicate name" {
		t.Errorf("expected duplicate name, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCustomFieldNameReusableAcrossCamps(t *testing.T) {
	mock := mockDatabase(t)
	mock.ExpectQuery("SELECT count.* FROM .camps.").WillReturnRows(countRows(1))
	mock.ExpectQuery("SELECT count.* FROM .custom_fields.").
		WithArgs("org-1", 3, "T-Shirt Size", 0).
		WillReturnRows(countRows(0))

	input := &NewCustomField{
		CampId:    3,
		Name:      "T-Shirt Size",
		FieldType: CustomFieldTypeText,
	}

	if err := input.validate(context.Background(), "org-1", 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
