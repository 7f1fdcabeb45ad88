package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemesterForPeriod(t *testing.T) {
	tests := []struct {
		period int
		want   Semester
		ok     bool
	}{
		{period: 1, want: SemesterFirstHalf, ok: true},
		{period: 6, want: SemesterFirstHalf, ok: true},
		{period: 7, want: SemesterSecondHalf, ok: true},
		{period: 12, want: SemesterSecondHalf, ok: true},
		{period: 0, ok: false},
		{period: 13, ok: false},
	}

	for _, tt := range tests {
		got, ok := SemesterForPeriod(tt.period)
		assert.Equal(t, tt.ok, ok, "period %d", tt.period)
		assert.Equal(t, tt.want, got, "period %d", tt.period)
	}
}

func TestParseSemester(t *testing.T) {
	tests := []struct {
		input string
		want  Semester
		ok    bool
	}{
		{"1", SemesterFirstHalf, true},
		{"Semester 1", SemesterFirstHalf, true},
		{"SEMESTER I", SemesterFirstHalf, true},
		{"S1", SemesterFirstHalf, true},
		{"H1", SemesterFirstHalf, true},
		{"first-half", SemesterFirstHalf, true},
		{"2", SemesterSecondHalf, true},
		{"Semester II", SemesterSecondHalf, true},
		{"second-half", SemesterSecondHalf, true},
		{"", "", false},
		{"Q3", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseSemester(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMonthName(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"Januari", 1, true},
		{"january", 1, true},
		{"Jan", 1, true},
		{"Mei", 5, true},
		{"Agustus", 8, true},
		{"Okt", 10, true},
		{" Desember ", 12, true},
		{"December", 12, true},
		{"Smarch", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseMonthName(tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	assert.Equal(t, "Maret", MonthName(3))
	assert.Equal(t, "", MonthName(13))
}

func TestParseMeasureAndGroupKey(t *testing.T) {
	m, err := ParseMeasure("Gross Profit")
	require.NoError(t, err)
	assert.Equal(t, MeasureGrossProfit, m)

	m, err = ParseMeasure("TONASE")
	require.NoError(t, err)
	assert.Equal(t, MeasureQuantity, m)

	_, err = ParseMeasure("margin")
	assert.ErrorIs(t, err, ErrUnknownMeasure)

	k, err := ParseGroupKey("subsidiary")
	require.NoError(t, err)
	assert.Equal(t, GroupByEntity, k)

	k, err = ParseGroupKey("Periode")
	require.NoError(t, err)
	assert.Equal(t, GroupByMonth, k)

	_, err = ParseGroupKey("region")
	assert.ErrorIs(t, err, ErrUnknownGroupKey)
}

func TestRecord_ValueAndKey(t *testing.T) {
	r := Record{
		Period: 8, Year: 2025, Entity: "PT A", Product: "Nikel",
		Quantity: 10, Revenue: 20, GrossProfit: 5, Semester: SemesterSecondHalf,
	}

	v, err := r.Value(MeasureRevenue)
	require.NoError(t, err)
	assert.Equal(t, 20.0, v)

	_, err = r.Value(Measure("bogus"))
	assert.ErrorIs(t, err, ErrUnknownMeasure)

	key, err := r.Key(GroupByMonth)
	require.NoError(t, err)
	assert.Equal(t, "8", key)

	key, err = r.Key(GroupBySemester)
	require.NoError(t, err)
	assert.Equal(t, "second-half", key)
}

func TestTable_Immutable(t *testing.T) {
	src := []Record{{Period: 1, Product: "A"}, {Period: 2, Product: "B"}}
	table := NewTable(src, SourceInfo{Dataset: "d"}, LoadDiagnostics{})

	src[0].Product = "changed"
	assert.Equal(t, "A", table.At(0).Product)

	rows := table.Records()
	rows[1].Product = "changed"
	assert.Equal(t, "B", table.At(1).Product)

	derived := table.Derive(rows[:1])
	assert.Equal(t, 1, derived.Len())
	assert.Equal(t, "d", derived.Source().Dataset)
	assert.Equal(t, 2, table.Len())
}

func TestTable_Equal(t *testing.T) {
	ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	a := NewTable([]Record{{Period: 3, Month: ts}}, SourceInfo{}, LoadDiagnostics{})
	b := NewTable([]Record{{Period: 3, Month: ts.In(time.FixedZone("WIB", 7*3600))}}, SourceInfo{}, LoadDiagnostics{})
	c := NewTable([]Record{{Period: 4, Month: ts}}, SourceInfo{}, LoadDiagnostics{})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))

	var nilTable *Table
	assert.True(t, nilTable.Empty())
	assert.Nil(t, nilTable.Records())
}

func TestGroups_SortBy(t *testing.T) {
	groups := Groups{
		{Key: "A", Sums: map[Measure]float64{MeasureRevenue: 100}},
		{Key: "B", Sums: map[Measure]float64{MeasureRevenue: 250}},
		{Key: "C", Sums: map[Measure]float64{MeasureRevenue: 250}},
	}

	desc := groups.SortBy(MeasureRevenue, true)
	assert.Equal(t, []string{"B", "C", "A"}, desc.Keys())

	asc := groups.SortBy(MeasureRevenue, false)
	assert.Equal(t, []string{"A", "B", "C"}, asc.Keys())

	assert.Equal(t, []string{"A", "B", "C"}, groups.Keys(), "original order untouched")
	assert.Equal(t, 600.0, groups.Total(MeasureRevenue))

	months := Groups{{Key: "10"}, {Key: "2"}, {Key: "1"}}
	assert.Equal(t, []string{"1", "2", "10"}, months.SortByKey().Keys())
}

func TestFilter_IsZero(t *testing.T) {
	assert.True(t, Filter{}.IsZero())
	assert.False(t, Filter{}.WithPeriod(3).IsZero())
	assert.False(t, Filter{}.WithProduct("Bauksit").IsZero())
}
