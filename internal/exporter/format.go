package exporter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"hilirisasi/pkg/contracts/domain"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" and "xlsx", with or without a leading dot.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// FileName builds a download name such as
// "realisasi_2025-03_20260105.csv".
func FileName(dataset string, filter domain.Filter, format Format, now time.Time) string {
	parts := []string{sanitize(dataset)}
	switch {
	case filter.Year != nil && filter.Period != nil:
		parts = append(parts, fmt.Sprintf("%d-%02d", *filter.Year, *filter.Period))
	case filter.Year != nil && filter.Semester != nil:
		parts = append(parts, fmt.Sprintf("%d-%s", *filter.Year, *filter.Semester))
	case filter.Year != nil:
		parts = append(parts, strconv.Itoa(*filter.Year))
	}
	if filter.Entity != nil {
		parts = append(parts, sanitize(*filter.Entity))
	}
	if filter.Product != nil {
		parts = append(parts, sanitize(*filter.Product))
	}
	parts = append(parts, now.Format("20060102"))
	return strings.Join(parts, "_") + "." + string(format)
}

func sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '-'
	}, s)
}

// formatFloat renders a measure without trailing zeros.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// RecordHeaders are the column titles of a record export, matching the
// legacy sheet's vocabulary.
var RecordHeaders = []string{
	"Periode", "Bulan", "Tahun", "Semester", "Entitas", "Jenis Produk",
	"Qty", "Revenue", "Gross Profit",
}

func recordRow(r domain.Record) []string {
	return []string{
		strconv.Itoa(r.Period),
		r.MonthName,
		strconv.Itoa(r.Year),
		r.Semester.Label(),
		r.Entity,
		r.Product,
		formatFloat(r.Quantity),
		formatFloat(r.Revenue),
		formatFloat(r.GrossProfit),
	}
}

// GroupHeaders returns the column titles of a grouped export.
func GroupHeaders(key domain.GroupKey, measures []domain.Measure) []string {
	headers := []string{string(key), "count"}
	for _, m := range measures {
		headers = append(headers, string(m))
	}
	return headers
}

func groupRow(g domain.Group, measures []domain.Measure) []string {
	row := []string{g.Key, strconv.Itoa(g.Count)}
	for _, m := range measures {
		row = append(row, formatFloat(g.Sums[m]))
	}
	return row
}
