package reports

import (
	"strings"
	"testing"
)

type testRow struct {
	code string
	name string
	fee  float64
}

func (r testRow) GetCellValues() []interface{} {
	return []interface{}{r.code, r.name, r.fee}
}

func testRows() []ExcelExporter {
	return []ExcelExporter{
		testRow{"C1-0001", "Aung Aung", 50000},
		testRow{"C1-0002", "Hla Hla", 45000},
	}
}

func TestBuildExcel(t *testing.T) {
	f, err := BuildExcel(testRows(), "Camper Code", "Name", "Fee")
	if err != nil {
		t.Fatalf("BuildExcel: %v", err)
	}

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 data rows, got %d", len(rows))
	}
	if rows[0][0] != "Camper Code" || rows[0][2] != "Fee" {
		t.Errorf("header row = %v", rows[0])
	}
	if rows[1][0] != "C1-0001" || rows[2][1] != "Hla Hla" {
		t.Errorf("data rows = %v", rows[1:])
	}
}

func TestBuildCSVExport(t *testing.T) {
	out := BuildCSVExport(testRows(), "Camper Code", "Name", "Fee")

	lines := strings.Split(strings.TrimRight(out, "\r\n"), "\r\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), out)
	}
	if lines[0] != "Camper Code,Name,Fee" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "C1-0001,Aung Aung,") {
		t.Errorf("first data row = %q", lines[1])
	}
}
