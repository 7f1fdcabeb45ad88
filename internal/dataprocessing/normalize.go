package dataprocessing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"hilirisasi/pkg/contracts/domain"
)

var errNotADate = errors.New("not a recognizable date")

// Text layouts tried in order for date cells stored as strings. Numeric
// day/month dates are read day-first, as the source reports write them.
// Each text shape matches at most one layout.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006/01/02",
	"2/1/2006",
	"2/1/06",
	"2-1-2006",
	"2-1-06",
	"January 2006",
	"Jan 2006",
	"January-06",
	"Jan-06",
	"Jan-2006",
	"2006-01",
	"01/2006",
}

// normalizeHeader makes header matching case-insensitive and tolerant of
// stray whitespace.
func normalizeHeader(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// coerceNumber parses a numeric cell. Thousands separators and surrounding
// spaces are ignored. The second result is false when a non-blank cell could
// not be read as a finite number; the value is then zero.
func coerceNumber(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, true
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parsePeriod maps a month number ("3", "3.0") or month name ("Maret",
// "March", "Mar") to 1-12.
func parsePeriod(cell string) (int, bool) {
	s := strings.TrimSpace(cell)
	if v, ok := coerceNumber(s); ok && s != "" {
		if v != math.Trunc(v) || v < 1 || v > 12 {
			return 0, false
		}
		return int(v), true
	}
	return domain.ParseMonthName(s)
}

// parseYear accepts "2025" or "2025.0" within a sane range.
func parseYear(cell string) (int, bool) {
	v, ok := coerceNumber(cell)
	if !ok || isBlank(cell) || v != math.Trunc(v) || v < 1900 || v > 9999 {
		return 0, false
	}
	return int(v), true
}

// parseDate reads an Excel serial number or a text date.
func parseDate(cell string, date1904 bool) (time.Time, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return time.Time{}, errNotADate
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < 1 || math.IsNaN(serial) || math.IsInf(serial, 0) {
			return time.Time{}, fmt.Errorf("%w: serial %q", errNotADate, s)
		}
		// A bare four-digit number is a year, not a serial from the 1900s.
		if len(s) == 4 && serial == math.Trunc(serial) {
			return time.Time{}, fmt.Errorf("%w: %q looks like a year", errNotADate, s)
		}
		return excelize.ExcelDateToTime(serial, date1904)
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", errNotADate, s)
}

// monthStart truncates t to the first day of its month in UTC.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
