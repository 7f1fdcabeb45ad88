package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record represents one row of processed hilirisasi activity for a single
// product, entity and month.
type Record struct {
	Period      int       `json:"period" validate:"min=1,max=12"`
	Year        int       `json:"year" validate:"required"`
	Entity      string    `json:"entity"`
	Product     string    `json:"product"`
	Quantity    float64   `json:"quantity"`     // tonnes
	Revenue     float64   `json:"revenue"`      // reporting currency
	GrossProfit float64   `json:"gross_profit"` // reporting currency
	Semester    Semester  `json:"semester" validate:"required,oneof=first-half second-half"`
	Month       time.Time `json:"month,omitempty"`
	MonthName   string    `json:"month_name,omitempty"`
}

// Value returns the numeric field selected by measure.
func (r Record) Value(m Measure) (float64, error) {
	switch m {
	case MeasureQuantity:
		return r.Quantity, nil
	case MeasureRevenue:
		return r.Revenue, nil
	case MeasureGrossProfit:
		return r.GrossProfit, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMeasure, string(m))
}

// Key returns the categorical value of the record for a group key.
func (r Record) Key(k GroupKey) (string, error) {
	switch k {
	case GroupByProduct:
		return r.Product, nil
	case GroupByEntity:
		return r.Entity, nil
	case GroupBySemester:
		return string(r.Semester), nil
	case GroupByMonth:
		return strconv.Itoa(r.Period), nil
	case GroupByYear:
		return strconv.Itoa(r.Year), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGroupKey, string(k))
}

// Measure names a numeric column of a Record.
type Measure string

const (
	MeasureQuantity    Measure = "quantity"
	MeasureRevenue     Measure = "revenue"
	MeasureGrossProfit Measure = "gross_profit"
)

// AllMeasures lists measures in display order.
var AllMeasures = []Measure{MeasureQuantity, MeasureRevenue, MeasureGrossProfit}

// ParseMeasure accepts canonical names and the common spreadsheet spellings.
func ParseMeasure(s string) (Measure, error) {
	switch normalizeToken(s) {
	case "quantity", "qty", "tonase", "tonnage":
		return MeasureQuantity, nil
	case "revenue":
		return MeasureRevenue, nil
	case "gross_profit", "grossprofit", "gp", "profit":
		return MeasureGrossProfit, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMeasure, s)
}

// GroupKey names a categorical attribute used for grouping.
type GroupKey string

const (
	GroupByProduct  GroupKey = "product"
	GroupByEntity   GroupKey = "entity"
	GroupBySemester GroupKey = "semester"
	GroupByMonth    GroupKey = "month"
	GroupByYear     GroupKey = "year"
)

// ParseGroupKey accepts canonical names plus "subsidiary" and "period".
func ParseGroupKey(s string) (GroupKey, error) {
	switch normalizeToken(s) {
	case "product", "jenis_produk":
		return GroupByProduct, nil
	case "entity", "entitas", "subsidiary":
		return GroupByEntity, nil
	case "semester":
		return GroupBySemester, nil
	case "month", "period", "periode", "bulan":
		return GroupByMonth, nil
	case "year", "tahun":
		return GroupByYear, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGroupKey, s)
}

// Semester is one half of the reporting year.
type Semester string

const (
	SemesterFirstHalf  Semester = "first-half"
	SemesterSecondHalf Semester = "second-half"
)

// SemesterForPeriod maps months 1-6 to the first half and 7-12 to the second.
func SemesterForPeriod(period int) (Semester, bool) {
	switch {
	case period >= 1 && period <= 6:
		return SemesterFirstHalf, true
	case period >= 7 && period <= 12:
		return SemesterSecondHalf, true
	}
	return "", false
}

// ParseSemester understands the labels found in source sheets:
// "1", "I", "S1", "H1", "Semester 1", "first-half" and their second-half
// counterparts.
func ParseSemester(s string) (Semester, bool) {
	t := strings.ReplaceAll(normalizeToken(s), "_", "")
	t = strings.TrimPrefix(t, "semester")
	t = strings.TrimPrefix(t, "smt")
	switch t {
	case "1", "i", "s1", "h1", "1h", "firsthalf", "first", "1.0":
		return SemesterFirstHalf, true
	case "2", "ii", "s2", "h2", "2h", "secondhalf", "second", "2.0":
		return SemesterSecondHalf, true
	}
	return "", false
}

// Label returns the short display label ("Semester 1" / "Semester 2").
func (s Semester) Label() string {
	switch s {
	case SemesterFirstHalf:
		return "Semester 1"
	case SemesterSecondHalf:
		return "Semester 2"
	}
	return string(s)
}

var monthNamesID = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

var monthLookup = func() map[string]int {
	m := make(map[string]int, 48)
	for i, name := range monthNamesID {
		m[strings.ToLower(name)] = i + 1
	}
	for i := time.January; i <= time.December; i++ {
		full := strings.ToLower(i.String())
		m[full] = int(i)
		m[full[:3]] = int(i)
	}
	// Indonesian abbreviations that differ from English ones.
	for abbr, month := range map[string]int{"mei": 5, "agu": 8, "agt": 8, "okt": 10, "des": 12, "peb": 2} {
		m[abbr] = month
	}
	return m
}()

// MonthName returns the Indonesian month name used by the dashboards.
func MonthName(period int) string {
	if period < 1 || period > 12 {
		return ""
	}
	return monthNamesID[period-1]
}

// ParseMonthName maps an Indonesian or English month name (full or
// three-letter) to its number.
func ParseMonthName(s string) (int, bool) {
	m, ok := monthLookup[strings.ToLower(strings.TrimSpace(s))]
	return m, ok
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "_")
	return strings.ReplaceAll(s, "-", "_")
}
