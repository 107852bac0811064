package models

import (
	"context"
	"testing"
)

func TestInventoryItemLowStockFlag(t *testing.T) {
	cases := []struct {
		name      string
		quantity  int
		threshold int
		want      bool
	}{
		{"above threshold", 20, 5, false},
		{"at threshold", 5, 5, true},
		{"below threshold", 2, 5, true},
		{"zero stock", 0, 5, true},
		{"threshold disabled", 0, 0, false},
	}
	for _, tc := range cases {
		item := InventoryItem{Quantity: tc.quantity, LowStockThreshold: tc.threshold}
		item.refreshLowStock()
		if item.IsLowStock != tc.want {
			t.Errorf("%s: IsLowStock = %v, want %v", tc.name, item.IsLowStock, tc.want)
		}
	}
}

func TestInventoryItemRejectsNegativeThreshold(t *testing.T) {
	mock := mockDatabase(t)
	mock.ExpectQuery("SELECT count.* FROM .camps.").WillReturnRows(countRows(1))

	input := &NewInventoryItem{
		CampId:            1,
		Name:              "Mattress",
		Quantity:          10,
		LowStockThreshold: -1,
	}

	err := input.validate(context.Background(), "org-1", 0)
	if err == nil || err.Error() != "low stock threshold must not be negative" {
		t.Errorf("expected a negative-threshold error, got %v", err)
	}
}
