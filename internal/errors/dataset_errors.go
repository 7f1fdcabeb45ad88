package errors

import (
	"errors"
	"fmt"
	"strings"
)

// LoadErrorKind classifies why a spreadsheet could not be loaded.
type LoadErrorKind string

const (
	LoadSourceNotFound   LoadErrorKind = "source_not_found"
	LoadSourceUnreadable LoadErrorKind = "source_unreadable"
	LoadSheetNotFound    LoadErrorKind = "sheet_not_found"
	LoadColumnMissing    LoadErrorKind = "column_missing"
	LoadDateUnparseable  LoadErrorKind = "date_unparseable"
)

// Sentinels matched by errors.Is against a *LoadError of the same kind.
var (
	ErrSourceNotFound   = errors.New("source not found")
	ErrSourceUnreadable = errors.New("source unreadable")
	ErrSheetNotFound    = errors.New("sheet not found")
	ErrColumnMissing    = errors.New("required column missing")
	ErrDateUnparseable  = errors.New("unparseable date")
	ErrEmptySelection   = errors.New("empty selection")
)

var loadKindSentinels = map[LoadErrorKind]error{
	LoadSourceNotFound:   ErrSourceNotFound,
	LoadSourceUnreadable: ErrSourceUnreadable,
	LoadSheetNotFound:    ErrSheetNotFound,
	LoadColumnMissing:    ErrColumnMissing,
	LoadDateUnparseable:  ErrDateUnparseable,
}

// LoadError is the single failure type of a spreadsheet load. Row is the
// 1-based sheet row when known.
type LoadError struct {
	Kind   LoadErrorKind
	Source string
	Sheet  string
	Column string
	Row    int
	Cause  error
}

// NewLoadError creates a load error of the given kind.
func NewLoadError(kind LoadErrorKind, source, sheet string, cause error) *LoadError {
	return &LoadError{Kind: kind, Source: source, Sheet: sheet, Cause: cause}
}

// At records the offending cell.
func (e *LoadError) At(column string, row int) *LoadError {
	e.Column = column
	e.Row = row
	return e
}

func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "load %s", e.Source)
	if e.Sheet != "" {
		fmt.Fprintf(&b, " sheet %q", e.Sheet)
	}
	fmt.Fprintf(&b, ": %s", loadKindSentinels[e.Kind])
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	if e.Row > 0 {
		fmt.Fprintf(&b, " row %d", e.Row)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *LoadError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s, ok := loadKindSentinels[e.Kind]; ok {
		errs = append(errs, s)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// EmptySelectionError is returned by operations that need at least one row.
type EmptySelectionError struct {
	Operation string
	Measure   string
}

func (e *EmptySelectionError) Error() string {
	if e.Measure != "" {
		return fmt.Sprintf("%s by %s: %s", e.Operation, e.Measure, ErrEmptySelection)
	}
	return fmt.Sprintf("%s: %s", e.Operation, ErrEmptySelection)
}

func (e *EmptySelectionError) Unwrap() error { return ErrEmptySelection }

// IsLoadError reports whether err carries a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
