package exporter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hilirisasi/pkg/contracts/domain"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "0"},
		{123, "123"},
		{-456, "-456"},
		{123.456, "123.456"},
		{0.1, "0.1"},
		{1250000, "1250000"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatFloat(tt.input))
		})
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"csv": FormatCSV, ".xlsx": FormatXLSX, " XLSX ": FormatXLSX} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)

	assert.Contains(t, FormatCSV.ContentType(), "text/csv")
	assert.Contains(t, FormatXLSX.ContentType(), "spreadsheetml")
}

func TestFileName(t *testing.T) {
	now := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter domain.Filter
		format Format
		want   string
	}{
		{"all", domain.Filter{}, FormatCSV, "realisasi_20260105.csv"},
		{"year", domain.Filter{}.WithYear(2025), FormatXLSX, "realisasi_2025_20260105.xlsx"},
		{"month", domain.Filter{}.WithYear(2025).WithPeriod(3), FormatCSV, "realisasi_2025-03_20260105.csv"},
		{"semester", domain.Filter{}.WithYear(2025).WithSemester(domain.SemesterSecondHalf), FormatCSV, "realisasi_2025-second-half_20260105.csv"},
		{"scoped", domain.Filter{}.WithEntity("PT Alpha").WithProduct("Nikel/Matte"), FormatCSV, "realisasi_pt-alpha_nikel-matte_20260105.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName("Realisasi", tt.filter, tt.format, now))
		})
	}
}
