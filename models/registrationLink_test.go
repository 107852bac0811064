package models

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/utils"
)

func TestRegistrationLinkUsable(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name    string
		link    RegistrationLink
		wantErr string
	}{
		{"active unlimited", RegistrationLink{IsActive: utils.NewTrue()}, ""},
		{"disabled", RegistrationLink{IsActive: utils.NewFalse()}, "registration link is disabled"},
		{"expired", RegistrationLink{IsActive: utils.NewTrue(), ExpiresAt: &past}, "registration link has expired"},
		{"not yet expired", RegistrationLink{IsActive: utils.NewTrue(), ExpiresAt: &future}, ""},
		{"used up", RegistrationLink{IsActive: utils.NewTrue(), MaxUses: 5, UseCount: 5}, "registration link has been used up"},
		{"uses remaining", RegistrationLink{IsActive: utils.NewTrue(), MaxUses: 5, UseCount: 4}, ""},
		{"zero max is unlimited", RegistrationLink{IsActive: utils.NewTrue(), MaxUses: 0, UseCount: 1000}, ""},
	}
	for _, tc := range cases {
		err := tc.link.usable(now)
		if tc.wantErr == "" && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
			continue
		}
		if tc.wantErr != "" && (err == nil || err.Error() != tc.wantErr) {
			t.Errorf("%s: err = %v, want %q", tc.name, err, tc.wantErr)
		}
	}
}

func TestRegistrationLinkAllowsCategory(t *testing.T) {
	unrestricted := RegistrationLink{}
	if !unrestricted.allowsCategory(7) {
		t.Error("a link without a category list allows every category")
	}

	restricted := RegistrationLink{AllowedCategoryIds: `[1,2,3]`}
	if !restricted.allowsCategory(2) {
		t.Error("category 2 should be allowed")
	}
	if restricted.allowsCategory(9) {
		t.Error("category 9 should be rejected")
	}

	// Corrupt JSON degrades to unrestricted rather than blocking campers.
	corrupt := RegistrationLink{AllowedCategoryIds: `oops`}
	if !corrupt.allowsCategory(1) {
		t.Error("corrupt category list should not block")
	}
}
