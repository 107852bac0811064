package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculateDiscountAmount(t *testing.T) {
	base := decimal.NewFromInt(50000)

	cases := []struct {
		name         string
		discount     decimal.Decimal
		discountType string
		want         decimal.Decimal
	}{
		{"ten percent", decimal.NewFromInt(10), "P", decimal.NewFromInt(5000)},
		{"fixed amount", decimal.NewFromInt(7500), "F", decimal.NewFromInt(7500)},
		{"zero discount", decimal.Zero, "P", decimal.Zero},
		{"negative treated as none", decimal.NewFromInt(-5), "F", decimal.Zero},
	}
	for _, tc := range cases {
		if got := CalculateDiscountAmount(base, tc.discount, tc.discountType); !got.Equal(tc.want) {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestCalculateRegistrationFee(t *testing.T) {
	base := decimal.NewFromInt(50000)

	if got := CalculateRegistrationFee(base, decimal.NewFromInt(10), "P"); !got.Equal(decimal.NewFromInt(45000)) {
		t.Errorf("percentage discount: got %s, want 45000", got)
	}
	if got := CalculateRegistrationFee(base, decimal.NewFromInt(50000), "F"); !got.Equal(decimal.Zero) {
		t.Errorf("full fixed discount: got %s, want 0", got)
	}
	// An oversized fixed discount clamps at zero, never a credit.
	if got := CalculateRegistrationFee(base, decimal.NewFromInt(99999), "F"); !got.Equal(decimal.Zero) {
		t.Errorf("oversized discount: got %s, want 0", got)
	}
}
