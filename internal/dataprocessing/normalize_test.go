package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		cell string
		want float64
		ok   bool
	}{
		{"", 0, true},
		{"   ", 0, true},
		{"42", 42, true},
		{"3.25", 3.25, true},
		{"-7", -7, true},
		{"1,500", 1500, true},
		{" 1 250 000 ", 1250000, true},
		{"1e3", 1000, true},
		{"N/A", 0, false},
		{"-", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			got, ok := coerceNumber(tt.cell)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		cell string
		want int
		ok   bool
	}{
		{"1", 1, true},
		{"12", 12, true},
		{"3.0", 3, true},
		{"Maret", 3, true},
		{"march", 3, true},
		{"Agustus", 8, true},
		{"Des", 12, true},
		{"0", 0, false},
		{"13", 0, false},
		{"2.5", 0, false},
		{"", 0, false},
		{"Q1", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			got, ok := parsePeriod(tt.cell)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseYear(t *testing.T) {
	for cell, want := range map[string]int{"2025": 2025, "2024.0": 2024} {
		got, ok := parseYear(cell)
		assert.True(t, ok, cell)
		assert.Equal(t, want, got)
	}
	for _, cell := range []string{"", "25", "tahun", "2025.5"} {
		_, ok := parseYear(cell)
		assert.False(t, ok, cell)
	}
}

func TestParseDate(t *testing.T) {
	jan2025 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		cell string
		want time.Time
	}{
		{"serial", "45658", jan2025},
		{"serial with fraction", "45658.5", jan2025},
		{"iso", "2025-01-01", jan2025},
		{"iso datetime", "2025-01-15 00:00:00", jan2025},
		{"month year", "January 2025", jan2025},
		{"abbrev", "Jan-25", jan2025},
		{"year month", "2025-01", jan2025},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDate(tt.cell, false)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(monthStart(got)), "got %s", got)
		})
	}

	for _, cell := range []string{"", "soon", "-3", "0", "0.5", "2025", "32/01/2025", "01/13/2025"} {
		_, err := parseDate(cell, false)
		assert.ErrorIs(t, err, errNotADate, cell)
	}
}

func TestParseDate_DayFirst(t *testing.T) {
	tests := []struct {
		cell string
		want time.Time
	}{
		{"01/02/2025", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"13/02/2025", time.Date(2025, 2, 13, 0, 0, 0, 0, time.UTC)},
		{"1/2/2006", time.Date(2006, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"01/02/06", time.Date(2006, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"01-02-2006", time.Date(2006, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"01-02-06", time.Date(2006, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"2025/02/13", time.Date(2025, 2, 13, 0, 0, 0, 0, time.UTC)},
		{"02/2025", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			got, err := parseDate(tt.cell, false)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "gross profit", normalizeHeader("  Gross   PROFIT "))
	assert.Equal(t, "", normalizeHeader("   "))
}
