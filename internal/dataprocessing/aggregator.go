package dataprocessing

import (
	"fmt"

	apierrors "hilirisasi/internal/errors"
	"hilirisasi/pkg/contracts/domain"
)

// Predicate is an equality constraint on one record attribute.
type Predicate func(domain.Record) bool

// ByYear matches records of one reporting year.
func ByYear(year int) Predicate {
	return func(r domain.Record) bool { return r.Year == year }
}

// ByPeriod matches records of one month number. Values outside 1-12 match
// nothing.
func ByPeriod(period int) Predicate {
	return func(r domain.Record) bool { return r.Period == period }
}

func BySemester(s domain.Semester) Predicate {
	return func(r domain.Record) bool { return r.Semester == s }
}

func ByEntity(entity string) Predicate {
	return func(r domain.Record) bool { return r.Entity == entity }
}

func ByProduct(product string) Predicate {
	return func(r domain.Record) bool { return r.Product == product }
}

// Predicates converts the struct form of a filter.
func Predicates(f domain.Filter) []Predicate {
	var preds []Predicate
	if f.Year != nil {
		preds = append(preds, ByYear(*f.Year))
	}
	if f.Period != nil {
		preds = append(preds, ByPeriod(*f.Period))
	}
	if f.Semester != nil {
		preds = append(preds, BySemester(*f.Semester))
	}
	if f.Entity != nil {
		preds = append(preds, ByEntity(*f.Entity))
	}
	if f.Product != nil {
		preds = append(preds, ByProduct(*f.Product))
	}
	return preds
}

// FilterBy returns the rows matching every predicate, in table order. With
// no predicates the table itself is returned. An empty result is a valid,
// empty table.
func FilterBy(table *domain.Table, preds ...Predicate) *domain.Table {
	if len(preds) == 0 || table == nil {
		return table
	}

	var out []domain.Record
	table.All(func(_ int, r domain.Record) bool {
		for _, p := range preds {
			if !p(r) {
				return true
			}
		}
		out = append(out, r)
		return true
	})
	return table.Derive(out)
}

// SumBy groups rows by key and sums each measure per group. Groups appear in
// the order their key first occurs. With no measures all measures are summed.
func SumBy(table *domain.Table, key domain.GroupKey, measures ...domain.Measure) (domain.Groups, error) {
	if len(measures) == 0 {
		measures = domain.AllMeasures
	}
	var probe domain.Record
	if _, err := probe.Key(key); err != nil {
		return nil, err
	}
	for _, m := range measures {
		if _, err := probe.Value(m); err != nil {
			return nil, err
		}
	}

	groups := domain.Groups{}
	index := make(map[string]int)

	var err error
	table.All(func(_ int, r domain.Record) bool {
		var k string
		if k, err = r.Key(key); err != nil {
			return false
		}

		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			sums := make(map[domain.Measure]float64, len(measures))
			for _, m := range measures {
				sums[m] = 0
			}
			groups = append(groups, domain.Group{Key: k, Sums: sums})
		}

		g := &groups[i]
		g.Count++
		for _, m := range measures {
			v, _ := r.Value(m)
			g.Sums[m] += v
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// TopBy returns the row with the largest value of measure. Ties resolve to
// the first such row in table order.
func TopBy(table *domain.Table, measure domain.Measure) (domain.Record, error) {
	var probe domain.Record
	if _, err := probe.Value(measure); err != nil {
		return domain.Record{}, err
	}
	if table.Empty() {
		return domain.Record{}, &apierrors.EmptySelectionError{Operation: "top_by", Measure: string(measure)}
	}

	best := table.At(0)
	bestValue, _ := best.Value(measure)
	table.All(func(i int, r domain.Record) bool {
		if v, _ := r.Value(measure); v > bestValue {
			best, bestValue = r, v
		}
		return true
	})
	return best, nil
}

// PercentageShare gives each group's share of the measure total. A zero
// total yields zero for every group.
func PercentageShare(groups domain.Groups, measure domain.Measure) []domain.Share {
	total := groups.Total(measure)

	shares := make([]domain.Share, len(groups))
	for i, g := range groups {
		v := g.Sums[measure]
		shares[i] = domain.Share{Key: g.Key, Value: v}
		if total != 0 {
			shares[i].Percent = v / total * 100
		}
	}
	return shares
}

// Totals sums every measure over the whole table.
func Totals(table *domain.Table) map[domain.Measure]float64 {
	totals := make(map[domain.Measure]float64, len(domain.AllMeasures))
	for _, m := range domain.AllMeasures {
		totals[m] = 0
	}
	table.All(func(_ int, r domain.Record) bool {
		for _, m := range domain.AllMeasures {
			v, _ := r.Value(m)
			totals[m] += v
		}
		return true
	})
	return totals
}

// describe renders predicates of a filter for log lines.
func describe(f domain.Filter) string {
	if f.IsZero() {
		return "all"
	}
	s := ""
	add := func(k string, v any) {
		if s != "" {
			s += ","
		}
		s += fmt.Sprintf("%s=%v", k, v)
	}
	if f.Year != nil {
		add("year", *f.Year)
	}
	if f.Period != nil {
		add("period", *f.Period)
	}
	if f.Semester != nil {
		add("semester", *f.Semester)
	}
	if f.Entity != nil {
		add("entity", *f.Entity)
	}
	if f.Product != nil {
		add("product", *f.Product)
	}
	return s
}
