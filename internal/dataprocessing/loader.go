package dataprocessing

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/blake2b"

	"hilirisasi/internal/config"
	apierrors "hilirisasi/internal/errors"
	"hilirisasi/internal/infrastructure"
	"hilirisasi/pkg/contracts/domain"
)

// TracerName is the instrumentation scope of the load path.
const TracerName = "hilirisasi.dataprocessing"

// Source names a dataset and the workbook it is read from.
type Source struct {
	Dataset string
	Path    string
}

// Loader reads a sheet of a workbook, normalizes it per a layout and returns
// an immutable table. Unchanged sources are served from the cache.
type Loader struct {
	cache   *TableCache
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *infrastructure.DatasetMetrics
	now     func() time.Time
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithCache shares a cache between loaders. A nil cache disables caching.
func WithCache(c *TableCache) LoaderOption {
	return func(l *Loader) { l.cache = c }
}

func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

func WithTracer(tracer trace.Tracer) LoaderOption {
	return func(l *Loader) { l.tracer = tracer }
}

func WithMetrics(m *infrastructure.DatasetMetrics) LoaderOption {
	return func(l *Loader) { l.metrics = m }
}

// WithClock overrides the LoadedAt timestamp source.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *Loader) { l.now = now }
}

// NewLoader creates a loader with its own cache unless WithCache is given.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		cache:   NewTableCache(),
		logger:  infrastructure.GetLogger(),
		tracer:  otel.Tracer(TracerName),
		metrics: infrastructure.NoopDatasetMetrics(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = infrastructure.WithComponent(l.logger, "loader")
	return l
}

// Cache returns the loader's table cache.
func (l *Loader) Cache() *TableCache { return l.cache }

// Load reads src with layout. The file is read once; if its content hash is
// already cached the cached table is returned without parsing.
func (l *Loader) Load(ctx context.Context, src Source, layout config.Layout) (*domain.Table, error) {
	ctx, span := l.tracer.Start(ctx, "dataset.load",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("dataset.name", src.Dataset),
			attribute.String("dataset.path", src.Path),
			attribute.String("dataset.layout", layout.Name),
			attribute.String("dataset.sheet", layout.SheetName),
		),
	)
	defer span.End()

	attrs := metric.WithAttributes(
		attribute.String("dataset", src.Dataset),
		attribute.String("layout", layout.Name),
	)
	start := time.Now()

	table, cached, err := l.load(ctx, src, layout)

	l.metrics.LoadDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		l.metrics.LoadErrors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.logger.ErrorContext(ctx, "dataset load failed",
			slog.String("dataset", src.Dataset),
			slog.String("path", src.Path),
			slog.String("error", err.Error()))
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("dataset.cache_hit", cached),
		attribute.Int("dataset.rows", table.Len()),
	)
	if cached {
		l.metrics.CacheHits.Add(ctx, 1, attrs)
		return table, nil
	}

	diag := table.Diagnostics()
	l.metrics.CacheMisses.Add(ctx, 1, attrs)
	l.metrics.LoadsTotal.Add(ctx, 1, attrs)
	l.metrics.RowsLoaded.Add(ctx, int64(table.Len()), attrs)
	l.metrics.RowsDropped.Add(ctx, int64(diag.RowsDropped), attrs)
	l.metrics.CellsCoerced.Add(ctx, int64(diag.CellsCoerced), attrs)
	l.metrics.SemesterMismatches.Add(ctx, int64(diag.SemesterMismatches), attrs)

	l.logger.InfoContext(ctx, "dataset loaded",
		slog.String("dataset", src.Dataset),
		slog.String("path", src.Path),
		slog.String("layout", layout.Name),
		slog.Int("rows", table.Len()),
		slog.Int("rows_read", diag.RowsRead),
		slog.Int("rows_dropped", diag.RowsDropped),
		slog.Int("cells_coerced", diag.CellsCoerced),
		slog.Duration("duration", time.Since(start)))

	if diag.SemesterMismatches > 0 {
		l.logger.WarnContext(ctx, "provided semester disagrees with period",
			slog.String("dataset", src.Dataset),
			slog.Int("rows", diag.SemesterMismatches))
	}
	return table, nil
}

func (l *Loader) load(ctx context.Context, src Source, layout config.Layout) (*domain.Table, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	path := src.Path
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	data, err := os.ReadFile(path)
	if err != nil {
		kind := apierrors.LoadSourceUnreadable
		if errors.Is(err, fs.ErrNotExist) {
			kind = apierrors.LoadSourceNotFound
		}
		return nil, false, apierrors.NewLoadError(kind, src.Path, layout.SheetName, err)
	}

	sum := blake2b.Sum256(data)
	key := CacheKey{Source: path, Layout: layout.Name, Fingerprint: hex.EncodeToString(sum[:])}

	if l.cache != nil {
		if table, ok := l.cache.Get(key); ok {
			infrastructure.AddSpanEvent(ctx, "cache.hit")
			return table.WithDataset(src.Dataset), true, nil
		}
	}

	records, diag, err := parseWorkbook(ctx, data, src.Path, layout)
	if err != nil {
		return nil, false, err
	}

	table := domain.NewTable(records, domain.SourceInfo{
		Dataset:     src.Dataset,
		Path:        path,
		Sheet:       layout.SheetName,
		Layout:      layout.Name,
		Fingerprint: key.Fingerprint,
		LoadedAt:    l.now(),
	}, diag)

	if l.cache != nil {
		l.cache.Put(key, table)
	}
	return table, false, nil
}

// Fingerprint returns the content hash the cache keys a file by.
func Fingerprint(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// columnIndex maps each attribute present in the header to its position.
type columnIndex map[config.Attribute]int

func (c columnIndex) cell(row []string, attr config.Attribute) string {
	i, ok := c[attr]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (c columnIndex) has(attr config.Attribute) bool {
	_, ok := c[attr]
	return ok
}

func parseWorkbook(ctx context.Context, data []byte, source string, layout config.Layout) ([]domain.Record, domain.LoadDiagnostics, error) {
	var diag domain.LoadDiagnostics

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, diag, apierrors.NewLoadError(apierrors.LoadSourceUnreadable, source, layout.SheetName, err)
	}
	defer f.Close()

	sheet, ok := findSheet(f, layout.SheetName)
	if !ok {
		return nil, diag, apierrors.NewLoadError(apierrors.LoadSheetNotFound, source, layout.SheetName,
			fmt.Errorf("workbook has sheets %q", f.GetSheetList()))
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, diag, apierrors.NewLoadError(apierrors.LoadSourceUnreadable, source, sheet, err)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	var header []string
	if layout.HeaderSkip < len(rows) {
		header = rows[layout.HeaderSkip]
	}
	cols, err := mapColumns(header, layout)
	if err != nil {
		var le *apierrors.LoadError
		if errors.As(err, &le) {
			le.Source, le.Sheet = source, sheet
			le.Row = layout.HeaderSkip + 1
		}
		return nil, diag, err
	}

	n := &normalizer{layout: layout, cols: cols, date1904: date1904, source: source, sheet: sheet}

	var records []domain.Record
	for i := layout.HeaderSkip + 1; i < len(rows); i++ {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, diag, err
			}
		}

		rec, keep, err := n.normalize(rows[i], i+1, &diag)
		if err != nil {
			return nil, diag, err
		}
		if keep {
			records = append(records, rec)
		}
	}

	return records, diag, nil
}

// findSheet matches sheet names case-insensitively, as Excel does.
func findSheet(f *excelize.File, name string) (string, bool) {
	want := strings.TrimSpace(name)
	for _, s := range f.GetSheetList() {
		if strings.EqualFold(strings.TrimSpace(s), want) {
			return s, true
		}
	}
	return "", false
}

// mapColumns resolves the layout's column map against the header row. Only
// mapped columns are retained.
func mapColumns(header []string, layout config.Layout) (columnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, dup := positions[key]; !dup {
			positions[key] = i
		}
	}

	identifying := make(map[config.Attribute]bool, len(layout.Identifying))
	for _, a := range layout.Identifying {
		identifying[a] = true
	}

	cols := make(columnIndex, len(layout.ColumnMap))
	for _, attr := range slices.Sorted(maps.Keys(layout.ColumnMap)) {
		name := layout.ColumnMap[attr]
		if i, ok := positions[normalizeHeader(name)]; ok {
			cols[attr] = i
			continue
		}
		if config.IsOptional(attr) && !identifying[attr] {
			continue
		}
		return nil, apierrors.NewLoadError(apierrors.LoadColumnMissing, "", "",
			fmt.Errorf("header has no %q column for %s", name, attr)).At(name, 0)
	}

	if !cols.has(config.AttrPeriod) && !cols.has(config.AttrMonth) {
		name := layout.ColumnMap[config.AttrMonth]
		if name == "" {
			name = layout.ColumnMap[config.AttrPeriod]
		}
		return nil, apierrors.NewLoadError(apierrors.LoadColumnMissing, "", "",
			errors.New("header has no period or month column")).At(name, 0)
	}
	return cols, nil
}

type normalizer struct {
	layout   config.Layout
	cols     columnIndex
	date1904 bool
	source   string
	sheet    string
}

// normalize turns one sheet row into a record. rowNum is 1-based. keep is
// false for rows that are blank or lack an identifying field.
func (n *normalizer) normalize(row []string, rowNum int, diag *domain.LoadDiagnostics) (domain.Record, bool, error) {
	var rec domain.Record

	blank := true
	for _, i := range n.cols {
		if i < len(row) && !isBlank(row[i]) {
			blank = false
			break
		}
	}
	if blank {
		return rec, false, nil
	}
	diag.RowsRead++

	for _, attr := range n.layout.Identifying {
		if n.cols.cell(row, attr) == "" {
			diag.RowsDropped++
			return rec, false, nil
		}
	}

	var date time.Time
	if n.cols.has(config.AttrMonth) && n.cols.cell(row, config.AttrMonth) != "" {
		t, err := parseDate(n.cols.cell(row, config.AttrMonth), n.date1904)
		if err != nil {
			return rec, false, apierrors.NewLoadError(apierrors.LoadDateUnparseable, n.source, n.sheet, err).
				At(n.layout.ColumnMap[config.AttrMonth], rowNum)
		}
		date = monthStart(t)
		rec.Period = int(date.Month())
	} else {
		period, ok := parsePeriod(n.cols.cell(row, config.AttrPeriod))
		if !ok {
			diag.RowsDropped++
			return rec, false, nil
		}
		rec.Period = period
	}

	switch year, ok := parseYear(n.cols.cell(row, config.AttrYear)); {
	case ok:
		rec.Year = year
	case !date.IsZero():
		rec.Year = date.Year()
	case n.layout.DefaultYear != 0:
		rec.Year = n.layout.DefaultYear
	default:
		diag.RowsDropped++
		return rec, false, nil
	}

	if date.IsZero() {
		date = time.Date(rec.Year, time.Month(rec.Period), 1, 0, 0, 0, 0, time.UTC)
	}
	rec.Month = date

	rec.Entity = n.cols.cell(row, config.AttrEntity)
	rec.Product = n.cols.cell(row, config.AttrProduct)

	for _, attr := range config.NumericAttributes {
		v, ok := coerceNumber(n.cols.cell(row, attr))
		if !ok {
			diag.CellsCoerced++
		}
		switch attr {
		case config.AttrQuantity:
			rec.Quantity = v
		case config.AttrRevenue:
			rec.Revenue = v
		case config.AttrGrossProfit:
			rec.GrossProfit = v
		}
	}

	derived, _ := domain.SemesterForPeriod(rec.Period)
	rec.Semester = derived
	if n.layout.SemesterRule() == config.SemesterFromColumn {
		if provided, ok := domain.ParseSemester(n.cols.cell(row, config.AttrSemester)); ok {
			rec.Semester = provided
			if provided != derived {
				diag.SemesterMismatches++
			}
		}
	}

	rec.MonthName = n.cols.cell(row, config.AttrMonthName)
	if rec.MonthName == "" {
		rec.MonthName = domain.MonthName(rec.Period)
	}

	return rec, true, nil
}
