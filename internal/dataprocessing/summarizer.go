package dataprocessing

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"hilirisasi/pkg/contracts/domain"
)

// Summarizer composes aggregator calls into the view model a dashboard page
// renders for one filter selection.
type Summarizer struct {
	logger *slog.Logger
	config SummarizerConfig
}

// SummarizerConfig holds configuration options for the Summarizer.
type SummarizerConfig struct {
	// RankBy orders the per-product and per-entity groups, descending.
	RankBy domain.Measure
	// TopN truncates the ranked groups; zero keeps all.
	TopN int
}

// NewSummarizer creates a summarizer. RankBy defaults to revenue.
func NewSummarizer(logger *slog.Logger, config SummarizerConfig) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.RankBy == "" {
		config.RankBy = domain.MeasureRevenue
	}
	return &Summarizer{
		logger: logger.With(slog.String("component", "summarizer")),
		config: config,
	}
}

// Summarize computes totals, highlights and grouped series for the rows
// matching filter. An empty selection is not an error: the summary comes
// back with Empty set and no highlights.
//
// The month trend and semester comparison ignore the period and semester
// constraints so they always span the selected year.
func (s *Summarizer) Summarize(table *domain.Table, filter domain.Filter) (*domain.DashboardSummary, error) {
	sel := FilterBy(table, Predicates(filter)...)
	totals := Totals(sel)

	summary := &domain.DashboardSummary{
		Dataset: table.Source().Dataset,
		Filter:  filter,
		Label:   Label(filter),
		Empty:   sel.Empty(),
		Totals: domain.Totals{
			Records:     sel.Len(),
			Quantity:    totals[domain.MeasureQuantity],
			Revenue:     totals[domain.MeasureRevenue],
			GrossProfit: totals[domain.MeasureGrossProfit],
		},
		ByProduct:        domain.Groups{},
		ByEntity:         domain.Groups{},
		MonthlyTrend:     domain.Groups{},
		ProductShare:     []domain.Share{},
		SourceLoadedAt:   table.Source().LoadedAt,
		SourceDiagnostic: table.Diagnostics(),
	}

	span := filter
	span.Period, span.Semester = nil, nil
	yearSel := FilterBy(table, Predicates(span)...)

	var err error
	if summary.MonthlyTrend, err = SumBy(yearSel, domain.GroupByMonth); err != nil {
		return nil, err
	}
	summary.MonthlyTrend = summary.MonthlyTrend.SortByKey()

	if summary.Semesters, err = s.compareSemesters(yearSel); err != nil {
		return nil, err
	}

	if summary.Empty {
		s.logger.Debug("empty selection", slog.String("filter", describe(filter)))
		return summary, nil
	}

	topRevenue, err := TopBy(sel, domain.MeasureRevenue)
	if err != nil {
		return nil, err
	}
	topQuantity, err := TopBy(sel, domain.MeasureQuantity)
	if err != nil {
		return nil, err
	}
	topProfit, err := TopBy(sel, domain.MeasureGrossProfit)
	if err != nil {
		return nil, err
	}
	summary.TopRevenue = highlight(topRevenue, domain.MeasureRevenue)
	summary.TopQuantity = highlight(topQuantity, domain.MeasureQuantity)
	summary.TopProfit = highlight(topProfit, domain.MeasureGrossProfit)
	summary.TopEntity = topRevenue.Entity

	if summary.ByProduct, err = s.ranked(sel, domain.GroupByProduct); err != nil {
		return nil, err
	}
	if summary.ByEntity, err = s.ranked(sel, domain.GroupByEntity); err != nil {
		return nil, err
	}
	summary.ProductShare = PercentageShare(summary.ByProduct, domain.MeasureRevenue)

	return summary, nil
}

func (s *Summarizer) ranked(table *domain.Table, key domain.GroupKey) (domain.Groups, error) {
	groups, err := SumBy(table, key)
	if err != nil {
		return nil, err
	}
	groups = groups.SortBy(s.config.RankBy, true)
	if s.config.TopN > 0 && len(groups) > s.config.TopN {
		groups = groups[:s.config.TopN]
	}
	return groups, nil
}

func (s *Summarizer) compareSemesters(table *domain.Table) (domain.SemesterComparison, error) {
	groups, err := SumBy(table, domain.GroupBySemester)
	if err != nil {
		return domain.SemesterComparison{}, err
	}
	groups = groups.SortByKey()
	return domain.SemesterComparison{
		Groups:        groups,
		RevenueShare:  PercentageShare(groups, domain.MeasureRevenue),
		ProfitShare:   PercentageShare(groups, domain.MeasureGrossProfit),
		QuantityShare: PercentageShare(groups, domain.MeasureQuantity),
	}, nil
}

func highlight(r domain.Record, m domain.Measure) *domain.Highlight {
	v, _ := r.Value(m)
	return &domain.Highlight{
		Measure: m,
		Product: r.Product,
		Entity:  r.Entity,
		Value:   v,
		Period:  r.Period,
		Year:    r.Year,
	}
}

// Dimensions lists the values filter controls can offer: years newest
// first, the months present in year (all months when year is nil) in
// calendar order, semesters, products and entities.
func (s *Summarizer) Dimensions(table *domain.Table, year *int) domain.Dimensions {
	dims := domain.Dimensions{
		Years:     []int{},
		Periods:   []int{},
		Semesters: []domain.Semester{},
		Products:  []string{},
		Entities:  []string{},
	}

	years := map[int]struct{}{}
	periods := map[int]struct{}{}
	semesters := map[domain.Semester]struct{}{}
	products := map[string]struct{}{}
	entities := map[string]struct{}{}

	table.All(func(_ int, r domain.Record) bool {
		years[r.Year] = struct{}{}
		if year == nil || r.Year == *year {
			periods[r.Period] = struct{}{}
			semesters[r.Semester] = struct{}{}
		}
		if r.Product != "" {
			products[r.Product] = struct{}{}
		}
		if r.Entity != "" {
			entities[r.Entity] = struct{}{}
		}
		return true
	})

	for y := range years {
		dims.Years = append(dims.Years, y)
	}
	slices.SortFunc(dims.Years, func(a, b int) int { return cmp.Compare(b, a) })

	for p := range periods {
		dims.Periods = append(dims.Periods, p)
	}
	slices.Sort(dims.Periods)

	for _, sem := range []domain.Semester{domain.SemesterFirstHalf, domain.SemesterSecondHalf} {
		if _, ok := semesters[sem]; ok {
			dims.Semesters = append(dims.Semesters, sem)
		}
	}

	for p := range products {
		dims.Products = append(dims.Products, p)
	}
	slices.Sort(dims.Products)

	for e := range entities {
		dims.Entities = append(dims.Entities, e)
	}
	slices.Sort(dims.Entities)

	return dims
}

// Label renders a filter as a dashboard heading, e.g. "Maret 2025" or
// "Semester 2 2025 · PT Alpha".
func Label(f domain.Filter) string {
	var parts []string
	switch {
	case f.Period != nil && domain.MonthName(*f.Period) != "":
		parts = append(parts, domain.MonthName(*f.Period))
	case f.Period != nil:
		parts = append(parts, fmt.Sprintf("Bulan %d", *f.Period))
	case f.Semester != nil:
		parts = append(parts, f.Semester.Label())
	}
	if f.Year != nil {
		parts = append(parts, strconv.Itoa(*f.Year))
	}

	label := strings.Join(parts, " ")
	if label == "" {
		label = "Semua Periode"
	}

	var scope []string
	if f.Entity != nil {
		scope = append(scope, *f.Entity)
	}
	if f.Product != nil {
		scope = append(scope, *f.Product)
	}
	if len(scope) > 0 {
		label += " · " + strings.Join(scope, " · ")
	}
	return label
}
