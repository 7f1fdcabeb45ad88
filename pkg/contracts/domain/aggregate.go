package domain

import (
	"slices"
	"strconv"
	"strings"
)

// Group holds the summed measures of all rows sharing one key.
type Group struct {
	Key   string              `json:"key"`
	Count int                 `json:"count"`
	Sums  map[Measure]float64 `json:"sums"`
}

// Groups keeps groups in first-occurrence order.
type Groups []Group

// Get returns the group with the given key.
func (g Groups) Get(key string) (Group, bool) {
	for _, grp := range g {
		if grp.Key == key {
			return grp, true
		}
	}
	return Group{}, false
}

// Keys returns the group keys in order.
func (g Groups) Keys() []string {
	keys := make([]string, len(g))
	for i, grp := range g {
		keys[i] = grp.Key
	}
	return keys
}

// Total sums one measure across all groups.
func (g Groups) Total(m Measure) float64 {
	var total float64
	for _, grp := range g {
		total += grp.Sums[m]
	}
	return total
}

// SortBy returns a copy ordered by measure. The sort is stable so equal
// values keep their first-occurrence order.
func (g Groups) SortBy(m Measure, desc bool) Groups {
	out := slices.Clone(g)
	slices.SortStableFunc(out, func(a, b Group) int {
		va, vb := a.Sums[m], b.Sums[m]
		if desc {
			va, vb = vb, va
		}
		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		}
		return 0
	})
	return out
}

// SortByKey returns a copy ordered by key. Numeric keys (months, years)
// compare numerically.
func (g Groups) SortByKey() Groups {
	out := slices.Clone(g)
	slices.SortStableFunc(out, func(a, b Group) int {
		ia, errA := strconv.Atoi(a.Key)
		ib, errB := strconv.Atoi(b.Key)
		if errA == nil && errB == nil {
			return ia - ib
		}
		return strings.Compare(a.Key, b.Key)
	})
	return out
}

// Share is one group's percentage of a measure's total.
type Share struct {
	Key     string  `json:"key"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}

// Filter is the struct form of the equality predicates a dashboard offers.
// Nil fields are unconstrained.
type Filter struct {
	Year     *int      `json:"year,omitempty"`
	Period   *int      `json:"period,omitempty"`
	Semester *Semester `json:"semester,omitempty"`
	Entity   *string   `json:"entity,omitempty"`
	Product  *string   `json:"product,omitempty"`
}

// IsZero reports whether no constraint is set.
func (f Filter) IsZero() bool {
	return f.Year == nil && f.Period == nil && f.Semester == nil && f.Entity == nil && f.Product == nil
}

// WithYear returns a copy constrained to year.
func (f Filter) WithYear(year int) Filter {
	f.Year = &year
	return f
}

// WithPeriod returns a copy constrained to a month number.
func (f Filter) WithPeriod(period int) Filter {
	f.Period = &period
	return f
}

// WithSemester returns a copy constrained to a semester.
func (f Filter) WithSemester(s Semester) Filter {
	f.Semester = &s
	return f
}

func (f Filter) WithEntity(entity string) Filter {
	f.Entity = &entity
	return f
}

func (f Filter) WithProduct(product string) Filter {
	f.Product = &product
	return f
}
