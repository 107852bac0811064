package utils

import (
	"strings"
	"testing"
)

func TestEscapeCSVCell(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"has,comma", `"has,comma"`},
		{`has "quote"`, `"has ""quote"""`},
		{"has\nnewline", "\"has\nnewline\""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := EscapeCSVCell(tc.in); got != tc.want {
			t.Errorf("EscapeCSVCell(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildCSV(t *testing.T) {
	out := BuildCSV(
		[]string{"Camper Code", "Name"},
		[][]string{
			{"C1-0001", "Aung Aung"},
			{"C1-0002", "Hla, Hla"},
		},
	)

	lines := strings.Split(strings.TrimRight(out, "\r\n"), "\r\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), out)
	}
	if lines[0] != "Camper Code,Name" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[2] != `C1-0002,"Hla, Hla"` {
		t.Errorf("row with comma = %q", lines[2])
	}
	if !strings.HasSuffix(out, "\r\n") {
		t.Error("output should be CRLF terminated")
	}
}
