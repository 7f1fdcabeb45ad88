package domain

import (
	"errors"
	"slices"
	"time"
)

var (
	ErrUnknownMeasure  = errors.New("unknown measure")
	ErrUnknownGroupKey = errors.New("unknown group key")
)

// SourceInfo describes where a table was loaded from.
type SourceInfo struct {
	Dataset     string    `json:"dataset"`
	Path        string    `json:"path"`
	Sheet       string    `json:"sheet"`
	Layout      string    `json:"layout"`
	Fingerprint string    `json:"fingerprint"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// LoadDiagnostics counts what normalization did to the source rows.
type LoadDiagnostics struct {
	RowsRead           int `json:"rows_read"`
	RowsDropped        int `json:"rows_dropped"`
	CellsCoerced       int `json:"cells_coerced"`
	SemesterMismatches int `json:"semester_mismatches"`
}

// Table is an immutable snapshot of normalized records. Derived views are
// new tables sharing the same SourceInfo.
type Table struct {
	records     []Record
	source      SourceInfo
	diagnostics LoadDiagnostics
}

// NewTable copies records into a new table.
func NewTable(records []Record, source SourceInfo, diag LoadDiagnostics) *Table {
	return &Table{
		records:     slices.Clone(records),
		source:      source,
		diagnostics: diag,
	}
}

// Len returns the number of records; a nil table is empty.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Empty reports whether the table has no records.
func (t *Table) Empty() bool { return t.Len() == 0 }

// At returns the i-th record.
func (t *Table) At(i int) Record { return t.records[i] }

// Records returns a copy of the rows in table order.
func (t *Table) Records() []Record {
	if t == nil {
		return nil
	}
	return slices.Clone(t.records)
}

// All iterates the rows without copying the backing slice.
func (t *Table) All(yield func(int, Record) bool) {
	if t == nil {
		return
	}
	for i, r := range t.records {
		if !yield(i, r) {
			return
		}
	}
}

func (t *Table) Source() SourceInfo {
	if t == nil {
		return SourceInfo{}
	}
	return t.source
}

func (t *Table) Diagnostics() LoadDiagnostics {
	if t == nil {
		return LoadDiagnostics{}
	}
	return t.diagnostics
}

// WithDataset returns a view of the same rows labelled with another dataset
// name. The rows are shared since neither table can change them.
func (t *Table) WithDataset(name string) *Table {
	if t == nil || t.source.Dataset == name {
		return t
	}
	cp := *t
	cp.source.Dataset = name
	return &cp
}

// Derive builds a view over the same source from a subset of rows.
func (t *Table) Derive(records []Record) *Table {
	return NewTable(records, t.Source(), t.Diagnostics())
}

// Equal reports element-wise equality of the rows.
func (t *Table) Equal(other *Table) bool {
	if t.Len() != other.Len() {
		return false
	}
	for i := 0; i < t.Len(); i++ {
		a, b := t.records[i], other.records[i]
		if !a.Month.Equal(b.Month) {
			return false
		}
		a.Month, b.Month = time.Time{}, time.Time{}
		if a != b {
			return false
		}
	}
	return true
}
