package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrUnknownLayout is returned for a layout name that is neither built in
// nor defined in the config file.
var ErrUnknownLayout = errors.New("unknown layout")

// Attribute is a canonical record attribute a source column maps onto.
type Attribute string

const (
	AttrPeriod      Attribute = "period"
	AttrYear        Attribute = "year"
	AttrEntity      Attribute = "entity"
	AttrProduct     Attribute = "product"
	AttrQuantity    Attribute = "quantity"
	AttrRevenue     Attribute = "revenue"
	AttrGrossProfit Attribute = "gross_profit"
	AttrSemester    Attribute = "semester"
	AttrMonth       Attribute = "month"
	AttrMonthName   Attribute = "month_name"
)

// NumericAttributes are coerced to numbers; failures become zero.
var NumericAttributes = []Attribute{AttrQuantity, AttrRevenue, AttrGrossProfit}

// Semester derivation rules.
const (
	// SemesterFromPeriod always derives the semester from the month number.
	SemesterFromPeriod = "period"
	// SemesterFromColumn trusts a parseable semester cell and falls back to
	// the period otherwise.
	SemesterFromColumn = "column"
)

// Layout describes how one spreadsheet format maps onto records.
type Layout struct {
	Name        string               `yaml:"layout" validate:"required"`
	SheetName   string               `yaml:"sheet_name" validate:"required"`
	HeaderSkip  int                  `yaml:"header_skip" validate:"gte=0"`
	ColumnMap   map[Attribute]string `yaml:"column_map" validate:"required,min=1,dive,keys,oneof=period year entity product quantity revenue gross_profit semester month month_name,endkeys,required"`
	Identifying []Attribute          `yaml:"identifying" validate:"required,min=1,dive,required"`
	Semester    string               `yaml:"semester_rule" validate:"omitempty,oneof=period column"`
	DefaultYear int                  `yaml:"default_year" validate:"omitempty,gte=1900,lte=9999"`
}

// Validate checks field constraints and that the column map can produce a
// complete record.
func (l Layout) Validate() error {
	if err := validate.Struct(l); err != nil {
		return err
	}

	required := []Attribute{AttrEntity, AttrProduct, AttrQuantity, AttrRevenue, AttrGrossProfit}
	for _, attr := range required {
		if _, ok := l.ColumnMap[attr]; !ok {
			return fmt.Errorf("column_map has no %q column", attr)
		}
	}

	_, hasPeriod := l.ColumnMap[AttrPeriod]
	_, hasMonth := l.ColumnMap[AttrMonth]
	if !hasPeriod && !hasMonth {
		return fmt.Errorf("column_map needs a %q or %q column", AttrPeriod, AttrMonth)
	}

	for _, attr := range l.Identifying {
		if _, ok := l.ColumnMap[attr]; !ok {
			return fmt.Errorf("identifying attribute %q is not in column_map", attr)
		}
	}

	_, hasYear := l.ColumnMap[AttrYear]
	if !hasYear && !hasMonth && l.DefaultYear == 0 {
		return fmt.Errorf("layout needs a %q column, a %q column or default_year", AttrYear, AttrMonth)
	}
	return nil
}

// SemesterRule returns the effective semester derivation rule.
func (l Layout) SemesterRule() string {
	if l.Semester == "" {
		return SemesterFromPeriod
	}
	return l.Semester
}

// Built-in layout names
const (
	LayoutLegacy = "legacy"
	LayoutV2     = "v2"
)

// BuiltinLayouts returns fresh copies of the two known spreadsheet formats.
func BuiltinLayouts() map[string]Layout {
	return map[string]Layout{
		LayoutLegacy: {
			Name:       LayoutLegacy,
			SheetName:  "Realisasi Hilirisasi",
			HeaderSkip: 6,
			ColumnMap: map[Attribute]string{
				AttrPeriod:      "Periode",
				AttrEntity:      "Entitas",
				AttrProduct:     "Jenis Produk",
				AttrQuantity:    "Qty",
				AttrRevenue:     "Revenue",
				AttrGrossProfit: "Gross Profit",
				AttrYear:        "Tahun",
			},
			Identifying: []Attribute{AttrPeriod, AttrProduct},
			Semester:    SemesterFromPeriod,
			DefaultYear: DefaultReportYear,
		},
		LayoutV2: {
			Name:       LayoutV2,
			SheetName:  "Input Data",
			HeaderSkip: 0,
			ColumnMap: map[Attribute]string{
				AttrMonth:       "MONTH",
				AttrMonthName:   "MONTHLY",
				AttrYear:        "YEARLY",
				AttrSemester:    "SEMESTER",
				AttrProduct:     "PRODUCT",
				AttrEntity:      "SUBSIDIARY",
				AttrQuantity:    "TONASE",
				AttrRevenue:     "REVENUE",
				AttrGrossProfit: "GROSS PROFIT",
			},
			Identifying: []Attribute{AttrMonth},
			Semester:    SemesterFromColumn,
		},
	}
}

// OptionalAttributes are attributes whose column may be absent from a sheet
// even though the layout maps them.
var OptionalAttributes = []Attribute{AttrYear, AttrMonthName, AttrSemester}

// IsOptional reports whether a missing header for attr is tolerated.
func IsOptional(attr Attribute) bool {
	return slices.Contains(OptionalAttributes, attr)
}

// MergeLayout overlays the set fields of override onto base. Column map
// entries are merged key by key.
func MergeLayout(base, override Layout) Layout {
	out := base
	out.ColumnMap = maps.Clone(base.ColumnMap)
	out.Identifying = slices.Clone(base.Identifying)

	if override.SheetName != "" {
		out.SheetName = override.SheetName
	}
	if override.HeaderSkip != 0 {
		out.HeaderSkip = override.HeaderSkip
	}
	if out.ColumnMap == nil {
		out.ColumnMap = make(map[Attribute]string, len(override.ColumnMap))
	}
	maps.Copy(out.ColumnMap, override.ColumnMap)
	if len(override.Identifying) > 0 {
		out.Identifying = slices.Clone(override.Identifying)
	}
	if override.Semester != "" {
		out.Semester = override.Semester
	}
	if override.DefaultYear != 0 {
		out.DefaultYear = override.DefaultYear
	}
	return out
}
