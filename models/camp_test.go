package models

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/utils"
)

func testCamp() Camp {
	return Camp{
		Name:                 "Summer Youth Camp",
		StartDate:            time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC),
		EndDate:              time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC),
		RegistrationOpenDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		RegistrationDeadline: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		IsActive:             utils.NewTrue(),
	}
}

func TestCampStatusDerivation(t *testing.T) {
	camp := testCamp()

	cases := []struct {
		name string
		now  time.Time
		want CampStatus
	}{
		{"before registration opens", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), CampStatusUpcoming},
		{"registration window open", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), CampStatusOpenForRegistration},
		{"deadline passed, camp not started", time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC), CampStatusRegistrationClosed},
		{"camp running", time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC), CampStatusInProgress},
		{"first day of camp", time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC), CampStatusInProgress},
		{"camp over", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), CampStatusCompleted},
	}
	for _, tc := range cases {
		if got := camp.Status(tc.now); got != tc.want {
			t.Errorf("%s: Status(%s) = %s, want %s", tc.name, tc.now.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestCampStatusInactiveWinsOverClock(t *testing.T) {
	camp := testCamp()
	camp.IsActive = utils.NewFalse()

	for _, now := range []time.Time{
		time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	} {
		if got := camp.Status(now); got != CampStatusInactive {
			t.Errorf("Status(%s) = %s, want %s", now.Format("2006-01-02"), got, CampStatusInactive)
		}
	}
}

func TestCampRegistrationOpen(t *testing.T) {
	camp := testCamp()

	if camp.RegistrationOpen(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Error("registration should be closed before the open date")
	}
	if !camp.RegistrationOpen(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("registration should be open inside the window")
	}
	if camp.RegistrationOpen(time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC)) {
		t.Error("registration should be closed after the deadline")
	}

	camp.IsActive = utils.NewFalse()
	if camp.RegistrationOpen(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("inactive camps never accept registrations")
	}
}
