package reports

import (
	"fmt"
	"io"

	"bitbucket.org/mmdatafocus/camps_backend/utils"
	"github.com/xuri/excelize/v2"
)

// ExcelExporter is implemented by report rows that can render themselves
// into a spreadsheet or CSV line.
type ExcelExporter interface {
	GetCellValues() []interface{}
}

// BuildExcel assembles an in-memory workbook: one header row followed by
// one row per record.
func BuildExcel(data []ExcelExporter, headings ...string) (*excelize.File, error) {

	f := excelize.NewFile()
	sheetName := "Sheet1"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}

	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, err
		}
	}

	rowNo := 2
	for _, d := range data {
		for i, value := range d.GetCellValues() {
			cell, err := excelize.CoordinatesToCellName(i+1, rowNo)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, err
			}
		}
		rowNo++
	}

	return f, nil
}

// WriteExcel streams the workbook to w (normally the HTTP response).
func WriteExcel(w io.Writer, data []ExcelExporter, headings ...string) error {
	f, err := BuildExcel(data, headings...)
	if err != nil {
		return err
	}
	return f.Write(w)
}

// BuildCSVExport renders the same rows as an RFC 4180 CSV document.
func BuildCSVExport(data []ExcelExporter, headings ...string) string {
	rows := make([][]string, 0, len(data))
	for _, d := range data {
		values := d.GetCellValues()
		cells := make([]string, 0, len(values))
		for _, value := range values {
			cells = append(cells, fmt.Sprint(value))
		}
		rows = append(rows, cells)
	}
	return utils.BuildCSV(headings, rows)
}
