package utils

import "strings"

// CSV rows are constructed manually (comma-joined, quoted cells) so the
// output matches what the admin UI produces for its own client-side exports.

// EscapeCSVCell quotes a cell when it contains a comma, quote, or newline.
// Embedded quotes are doubled per RFC 4180.
func EscapeCSVCell(cell string) string {
	if strings.ContainsAny(cell, ",\"\n\r") {
		return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
	}
	return cell
}

// BuildCSVRow joins cells with commas, escaping as needed.
func BuildCSVRow(cells []string) string {
	escaped := make([]string, 0, len(cells))
	for _, c := range cells {
		escaped = append(escaped, EscapeCSVCell(c))
	}
	return strings.Join(escaped, ",")
}

// BuildCSV renders a header row plus data rows, CRLF-terminated lines.
func BuildCSV(header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(BuildCSVRow(header))
	b.WriteString("\r\n")
	for _, row := range rows {
		b.WriteString(BuildCSVRow(row))
		b.WriteString("\r\n")
	}
	return b.String()
}
