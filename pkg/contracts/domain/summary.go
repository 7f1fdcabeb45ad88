package domain

import "time"

// Highlight is a single "best of" card: the row with the highest value of a
// measure within the current selection.
type Highlight struct {
	Measure Measure `json:"measure"`
	Product string  `json:"product"`
	Entity  string  `json:"entity"`
	Value   float64 `json:"value"`
	Period  int     `json:"period"`
	Year    int     `json:"year"`
}

// Totals are the headline metrics of a selection.
type Totals struct {
	Records     int     `json:"records"`
	Quantity    float64 `json:"quantity"`
	Revenue     float64 `json:"revenue"`
	GrossProfit float64 `json:"gross_profit"`
}

// SemesterComparison lines up both halves of a year.
type SemesterComparison struct {
	Groups        Groups  `json:"groups"`
	RevenueShare  []Share `json:"revenue_share"`
	ProfitShare   []Share `json:"gross_profit_share"`
	QuantityShare []Share `json:"quantity_share"`
}

// DashboardSummary is everything a dashboard page needs for one filter
// selection. When Empty is true the highlight fields are nil.
type DashboardSummary struct {
	Dataset     string     `json:"dataset"`
	Filter      Filter     `json:"filter"`
	Label       string     `json:"label"`
	Empty       bool       `json:"empty"`
	Totals      Totals     `json:"totals"`
	TopRevenue  *Highlight `json:"top_revenue,omitempty"`
	TopQuantity *Highlight `json:"top_quantity,omitempty"`
	TopProfit   *Highlight `json:"top_gross_profit,omitempty"`
	// TopEntity is the entity of the top revenue row.
	TopEntity        string             `json:"top_entity,omitempty"`
	ByProduct        Groups             `json:"by_product"`
	ByEntity         Groups             `json:"by_entity"`
	MonthlyTrend     Groups             `json:"monthly_trend"`
	Semesters        SemesterComparison `json:"semesters"`
	ProductShare     []Share            `json:"product_revenue_share"`
	SourceLoadedAt   time.Time          `json:"source_loaded_at"`
	SourceDiagnostic LoadDiagnostics    `json:"source_diagnostics"`
}

// Dimensions lists the values a filter control can offer.
type Dimensions struct {
	Years     []int      `json:"years"`
	Periods   []int      `json:"periods"`
	Semesters []Semester `json:"semesters"`
	Products  []string   `json:"products"`
	Entities  []string   `json:"entities"`
}
