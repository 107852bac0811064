package models

import "testing"

func TestCustomFieldTypeIsValid(t *testing.T) {
	valid := []CustomFieldType{
		CustomFieldTypeText,
		CustomFieldTypeNumber,
		CustomFieldTypeDropdown,
		CustomFieldTypeCheckbox,
		CustomFieldTypeDate,
	}
	for _, ft := range valid {
		if !ft.IsValid() {
			t.Errorf("%q should be a valid custom field type", ft)
		}
	}
	for _, ft := range []CustomFieldType{"", "text", "Radio"} {
		if ft.IsValid() {
			t.Errorf("%q should not be a valid custom field type", ft)
		}
	}
}

func TestParseCustomFieldTypeRejectsUnknown(t *testing.T) {
	if _, err := ParseCustomFieldType("Dropdown"); err != nil {
		t.Errorf("Dropdown should parse: %v", err)
	}
	if _, err := ParseCustomFieldType("dropdown"); err == nil {
		t.Error("lowercase variant should not parse")
	}
}

func TestPledgeStatusIsValid(t *testing.T) {
	valid := []PledgeStatus{
		PledgeStatusOpen,
		PledgeStatusPartiallyFulfilled,
		PledgeStatusFulfilled,
	}
	for _, s := range valid {
		if !s.IsValid() {
			t.Errorf("%q should be a valid pledge status", s)
		}
	}
	for _, s := range []PledgeStatus{"", "open", "Closed"} {
		if s.IsValid() {
			t.Errorf("%q should not be a valid pledge status", s)
		}
	}
}
