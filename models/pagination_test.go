package models

import "testing"

func TestCompositeCursorRoundTrip(t *testing.T) {
	encoded := EncodeCompositeCursor("2026-05-01 10:30:00 +0000 UTC", 42)

	createdAt, id := DecodeCompositeCursor(&encoded)
	if createdAt != "2026-05-01 10:30:00 +0000 UTC" {
		t.Errorf("createdAt = %q", createdAt)
	}
	if id != 42 {
		t.Errorf("id = %d, want 42", id)
	}
}

func TestDecodeCompositeCursorGarbage(t *testing.T) {
	cases := []*string{nil}
	for _, s := range []string{"", "!!!not base64!!!", EncodeCursor("no separator"), EncodeCursor("a|b|c"), EncodeCursor("x|notanint")} {
		s := s
		cases = append(cases, &s)
	}
	for i, cursor := range cases {
		createdAt, id := DecodeCompositeCursor(cursor)
		if createdAt != "" || id != 0 {
			t.Errorf("case %d: got (%q, %d), want zero values", i, createdAt, id)
		}
	}
}

func TestDecodeCursor(t *testing.T) {
	encoded := EncodeCursor("2026-05-01 10:30:00 +0000 UTC")
	decoded, err := DecodeCursor(&encoded)
	if err != nil {
		t.Fatalf("DecodeCursor: %v", err)
	}
	if decoded != "2026-05-01 10:30:00 +0000 UTC" {
		t.Errorf("decoded = %q", decoded)
	}

	if decoded, err := DecodeCursor(nil); err != nil || decoded != "" {
		t.Errorf("DecodeCursor(nil) = (%q, %v), want empty and no error", decoded, err)
	}

	bad := "!!!not base64!!!"
	if _, err := DecodeCursor(&bad); err == nil {
		t.Error("DecodeCursor should fail on invalid base64")
	}
}
