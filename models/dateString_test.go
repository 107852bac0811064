package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDateString(t *testing.T) {
	d, err := ParseDateString("2026-05-01")
	if err != nil {
		t.Fatalf("ParseDateString: %v", err)
	}
	if got := time.Time(d); got.Year() != 2026 || got.Month() != time.May || got.Day() != 1 {
		t.Errorf("parsed = %s", got)
	}

	if _, err := ParseDateString("01/05/2026"); err == nil {
		t.Error("expected error on non-ISO date")
	}

	withTime, err := ParseDateString("2026-05-01T14:30:00")
	if err != nil {
		t.Fatalf("ParseDateString with time: %v", err)
	}
	if got := time.Time(withTime); got.Hour() != 14 || got.Minute() != 30 {
		t.Errorf("parsed time = %s", got)
	}
}

func TestMyDateStringJSONRoundTrip(t *testing.T) {
	var d MyDateString
	if err := json.Unmarshal([]byte(`"2026-05-01"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"2026-05-01"` {
		t.Errorf("marshaled = %s", out)
	}

	if err := json.Unmarshal([]byte(`12345`), &d); err == nil {
		t.Error("expected error on non-string JSON")
	}
}

func TestStartAndEndOfDayUTC(t *testing.T) {
	d, err := ParseDateString("2026-05-01")
	if err != nil {
		t.Fatalf("ParseDateString: %v", err)
	}

	start := d
	if err := start.StartOfDayUTCTime("Asia/Yangon"); err != nil {
		t.Fatalf("StartOfDayUTCTime: %v", err)
	}
	// Yangon is UTC+6:30, so local midnight is 17:30 UTC the previous day.
	got := time.Time(start)
	if got.UTC().Hour() != 17 || got.UTC().Minute() != 30 || got.UTC().Day() != 30 {
		t.Errorf("start of day = %s", got.UTC())
	}

	end := d
	if err := end.EndOfDayUTCTime("Asia/Yangon"); err != nil {
		t.Fatalf("EndOfDayUTCTime: %v", err)
	}
	if !time.Time(end).After(time.Time(start)) {
		t.Error("end of day must be after start of day")
	}
}
