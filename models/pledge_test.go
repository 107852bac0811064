package models

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func pledgeWith(amount int64, fulfillments ...int64) Pledge {
	p := Pledge{
		DonorName:  "U Tin Maung",
		Amount:     decimal.NewFromInt(amount),
		PledgeDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, f := range fulfillments {
		p.Fulfillments = append(p.Fulfillments, PledgeFulfillment{Amount: decimal.NewFromInt(f)})
	}
	return p
}

func TestPledgeFulfillmentMath(t *testing.T) {
	p := pledgeWith(100, 25, 15)

	if got := p.FulfilledAmount(); !got.Equal(decimal.NewFromInt(40)) {
		t.Errorf("FulfilledAmount = %s, want 40", got)
	}
	if got := p.Outstanding(); !got.Equal(decimal.NewFromInt(60)) {
		t.Errorf("Outstanding = %s, want 60", got)
	}
	if got := p.FulfillmentPercentage(); !got.Equal(decimal.NewFromInt(40)) {
		t.Errorf("FulfillmentPercentage = %s, want 40", got)
	}
}

func TestPledgeOutstandingNeverNegative(t *testing.T) {
	p := pledgeWith(100, 80, 30)

	if got := p.Outstanding(); !got.Equal(decimal.Zero) {
		t.Errorf("Outstanding = %s, want 0", got)
	}
}

func TestPledgeZeroAmountPercentage(t *testing.T) {
	p := pledgeWith(0)

	if got := p.FulfillmentPercentage(); !got.Equal(decimal.Zero) {
		t.Errorf("FulfillmentPercentage = %s, want 0", got)
	}
}

func TestPledgeDeriveStatus(t *testing.T) {
	p := pledgeWith(100)

	cases := []struct {
		fulfilled int64
		want      PledgeStatus
	}{
		{0, PledgeStatusOpen},
		{1, PledgeStatusPartiallyFulfilled},
		{99, PledgeStatusPartiallyFulfilled},
		{100, PledgeStatusFulfilled},
		{120, PledgeStatusFulfilled},
	}
	for _, tc := range cases {
		if got := p.deriveStatus(decimal.NewFromInt(tc.fulfilled)); got != tc.want {
			t.Errorf("deriveStatus(%d) = %s, want %s", tc.fulfilled, got, tc.want)
		}
	}

	// A zero-amount pledge stays Open even when money arrives against it.
	zero := pledgeWith(0)
	if got := zero.deriveStatus(decimal.NewFromInt(10)); got != PledgeStatusPartiallyFulfilled {
		t.Errorf("deriveStatus on zero-amount pledge = %s, want %s", got, PledgeStatusPartiallyFulfilled)
	}
}

func TestPledgeRejectsCamperAndChurchTogether(t *testing.T) {
	mock := mockDatabase(t)
	mock.ExpectQuery("SELECT count.* FROM .camps.").WillReturnRows(countRows(1))

	registrationId := 3
	churchId := 5
	input := &NewPledge{
		CampId:         1,
		RegistrationId: &registrationId,
		ChurchId:       &churchId,
		DonorName:      "U Tin Maung",
		Amount:         decimal.NewFromInt(100),
		PledgeDate:     time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	err := input.validate(context.Background(), "org-1", 0)
	if err == nil {
		t.Fatal("expected an error for a pledge tied to both a camper and a church")
	}
	if err.Error() != "a pledge belongs to a camper or a church, not both" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPledgeChurchMustExist(t *testing.T) {
	mock := mockDatabase(t)
	mock.ExpectQuery("SELECT count.* FROM .camps.").WillReturnRows(countRows(1))
	mock.ExpectQuery("SELECT count.* FROM .churches.").WillReturnRows(countRows(0))

	churchId := 5
	input := &NewPledge{
		CampId:     1,
		ChurchId:   &churchId,
		DonorName:  "U Tin Maung",
		Amount:     decimal.NewFromInt(100),
		PledgeDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	err := input.validate(context.Background(), "org-1", 0)
	if err == nil || err.Error() != "church not found" {
		t.Errorf("expected church not found, got %v", err)
	}
}
