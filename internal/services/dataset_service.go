package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"hilirisasi/internal/config"
	"hilirisasi/internal/dataprocessing"
	apierrors "hilirisasi/internal/errors"
	"hilirisasi/internal/exporter"
	"hilirisasi/internal/infrastructure"
	"hilirisasi/pkg/contracts/domain"
	"hilirisasi/pkg/contracts/events"
)

// warmConcurrency bounds parallel loads at startup.
const warmConcurrency = 4

// EventPublisher broadcasts messages to connected websocket clients.
type EventPublisher interface {
	Broadcast(messageType string, data interface{})
}

// DatasetInfo is the listing entry of one configured dataset.
type DatasetInfo struct {
	Name        string                  `json:"name"`
	Path        string                  `json:"path"`
	Layout      string                  `json:"layout"`
	Sheet       string                  `json:"sheet"`
	Loaded      bool                    `json:"loaded"`
	Rows        int                     `json:"rows"`
	Fingerprint string                  `json:"fingerprint,omitempty"`
	LoadedAt    *time.Time              `json:"loaded_at,omitempty"`
	Diagnostics *domain.LoadDiagnostics `json:"diagnostics,omitempty"`
}

// GroupsQuery selects a grouped sum. Sort is "key", a measure (descending),
// or empty for first-occurrence order.
type GroupsQuery struct {
	Filter   domain.Filter
	By       domain.GroupKey
	Measures []domain.Measure
	Sort     string
}

// RecordPage is one page of filtered rows.
type RecordPage struct {
	Total   int             `json:"total"`
	Offset  int             `json:"offset"`
	Limit   int             `json:"limit"`
	Records []domain.Record `json:"records"`
}

// DatasetService answers dashboard queries over the configured datasets.
// Tables come from the loader, which re-reads a source only when its
// content changed.
type DatasetService struct {
	cfg        *config.Config
	loader     *dataprocessing.Loader
	summarizer *dataprocessing.Summarizer
	exporter   *exporter.Exporter
	hub        EventPublisher
	metrics    *infrastructure.DatasetMetrics
	logger     *slog.Logger
}

// DatasetServiceOption configures a DatasetService.
type DatasetServiceOption func(*DatasetService)

// WithPublisher sends refresh events to hub.
func WithPublisher(hub EventPublisher) DatasetServiceOption {
	return func(s *DatasetService) { s.hub = hub }
}

func WithDatasetMetrics(m *infrastructure.DatasetMetrics) DatasetServiceOption {
	return func(s *DatasetService) { s.metrics = m }
}

func WithExporter(e *exporter.Exporter) DatasetServiceOption {
	return func(s *DatasetService) { s.exporter = e }
}

func WithSummarizer(sum *dataprocessing.Summarizer) DatasetServiceOption {
	return func(s *DatasetService) { s.summarizer = sum }
}

// NewDatasetService creates the service. cfg must already be validated.
func NewDatasetService(cfg *config.Config, loader *dataprocessing.Loader, logger *slog.Logger, opts ...DatasetServiceOption) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &DatasetService{
		cfg:     cfg,
		loader:  loader,
		metrics: infrastructure.NoopDatasetMetrics(),
		logger:  logger.With(slog.String("service", "dataset")),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.summarizer == nil {
		s.summarizer = dataprocessing.NewSummarizer(logger, dataprocessing.SummarizerConfig{})
	}
	if s.exporter == nil {
		s.exporter = exporter.NewExporter(cfg.GetPaths(), logger)
	}

	s.logger.Info("DatasetService initialized",
		slog.Int("datasets", len(cfg.Datasets)),
		slog.String("data_dir", cfg.Paths.DataDir))
	return s
}

// Names returns the configured dataset names in config order.
func (s *DatasetService) Names() []string {
	names := make([]string, len(s.cfg.Datasets))
	for i, ds := range s.cfg.Datasets {
		names[i] = ds.Name
	}
	return names
}

// List describes every dataset. Datasets not loaded yet report Loaded=false;
// List never reads a file.
func (s *DatasetService) List(ctx context.Context) []DatasetInfo {
	out := make([]DatasetInfo, 0, len(s.cfg.Datasets))
	for _, ds := range s.cfg.Datasets {
		info := DatasetInfo{Name: ds.Name, Path: ds.Path, Layout: ds.Layout}
		layout, err := s.cfg.Layout(ds.Layout)
		if err == nil {
			info.Sheet = layout.SheetName
		}

		if table, ok := s.cached(ds); ok {
			src, diag := table.Source(), table.Diagnostics()
			info.Loaded = true
			info.Rows = table.Len()
			info.Fingerprint = src.Fingerprint
			info.LoadedAt = &src.LoadedAt
			info.Diagnostics = &diag
		}
		out = append(out, info)
	}
	return out
}

func (s *DatasetService) cached(ds config.DatasetConfig) (*domain.Table, bool) {
	path, err := filepath.Abs(ds.Path)
	if err != nil {
		return nil, false
	}
	cache := s.loader.Cache()
	if cache == nil {
		return nil, false
	}
	table, ok := cache.Latest(path, ds.Layout)
	if !ok {
		return nil, false
	}
	return table.WithDataset(ds.Name), true
}

func (s *DatasetService) dataset(name string) (config.DatasetConfig, config.Layout, error) {
	ds, ok := s.cfg.Dataset(name)
	if !ok {
		return config.DatasetConfig{}, config.Layout{}, apierrors.DatasetNotFound(name)
	}
	layout, err := s.cfg.Layout(ds.Layout)
	if err != nil {
		return config.DatasetConfig{}, config.Layout{}, err
	}
	return ds, layout, nil
}

// Table returns the current table of a dataset. When the source has changed
// and no longer loads, the previously loaded table keeps being served and
// the failure is logged.
func (s *DatasetService) Table(ctx context.Context, name string) (*domain.Table, error) {
	ds, layout, err := s.dataset(name)
	if err != nil {
		return nil, err
	}

	table, err := s.loader.Load(ctx, dataprocessing.Source{Dataset: ds.Name, Path: ds.Path}, layout)
	if err == nil {
		return table, nil
	}
	if !apierrors.IsLoadError(err) || errors.Is(err, apierrors.ErrSourceNotFound) {
		return nil, err
	}
	if prev, ok := s.cached(ds); ok {
		s.logger.WarnContext(ctx, "serving previous table after failed reload",
			slog.String("dataset", name),
			slog.String("error", err.Error()))
		return prev, nil
	}
	return nil, err
}

// Summary builds the dashboard view model for filter.
func (s *DatasetService) Summary(ctx context.Context, name string, filter domain.Filter) (*domain.DashboardSummary, error) {
	table, err := s.Table(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.summarizer.Summarize(table, filter)
}

// Groups sums the filtered rows per group.
func (s *DatasetService) Groups(ctx context.Context, name string, q GroupsQuery) (domain.Groups, error) {
	table, err := s.Table(ctx, name)
	if err != nil {
		return nil, err
	}

	groups, err := dataprocessing.SumBy(dataprocessing.FilterBy(table, dataprocessing.Predicates(q.Filter)...), q.By, q.Measures...)
	if err != nil {
		return nil, err
	}

	switch q.Sort {
	case "":
	case "key":
		groups = groups.SortByKey()
	default:
		m, err := domain.ParseMeasure(q.Sort)
		if err != nil {
			return nil, err
		}
		groups = groups.SortBy(m, true)
	}
	return groups, nil
}

// Top returns the filtered row with the highest value of measure.
func (s *DatasetService) Top(ctx context.Context, name string, filter domain.Filter, measure domain.Measure) (domain.Record, error) {
	table, err := s.Table(ctx, name)
	if err != nil {
		return domain.Record{}, err
	}
	return dataprocessing.TopBy(dataprocessing.FilterBy(table, dataprocessing.Predicates(filter)...), measure)
}

// Shares returns each group's percentage of measure within the filter.
func (s *DatasetService) Shares(ctx context.Context, name string, filter domain.Filter, by domain.GroupKey, measure domain.Measure) ([]domain.Share, error) {
	groups, err := s.Groups(ctx, name, GroupsQuery{Filter: filter, By: by, Measures: []domain.Measure{measure}})
	if err != nil {
		return nil, err
	}
	return dataprocessing.PercentageShare(groups, measure), nil
}

// Records pages through the filtered rows in table order. A zero limit
// returns every row from offset on.
func (s *DatasetService) Records(ctx context.Context, name string, filter domain.Filter, limit, offset int) (*RecordPage, error) {
	table, err := s.Table(ctx, name)
	if err != nil {
		return nil, err
	}
	rows := dataprocessing.FilterBy(table, dataprocessing.Predicates(filter)...).Records()

	page := &RecordPage{Total: len(rows), Offset: offset, Limit: limit, Records: []domain.Record{}}
	if offset >= len(rows) {
		return page, nil
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	page.Records = rows[offset:end]
	return page, nil
}

// Dimensions lists filter values; periods and semesters are restricted to
// year when given.
func (s *DatasetService) Dimensions(ctx context.Context, name string, year *int) (domain.Dimensions, error) {
	table, err := s.Table(ctx, name)
	if err != nil {
		return domain.Dimensions{}, err
	}
	return s.summarizer.Dimensions(table, year), nil
}

// Refresh reloads a dataset from disk and publishes the outcome. Unlike
// Table, a failure is returned even when an older table is still served.
func (s *DatasetService) Refresh(ctx context.Context, name string) (*domain.Table, error) {
	ds, layout, err := s.dataset(name)
	if err != nil {
		return nil, err
	}
	ctx = infrastructure.WithDataset(ctx, name)

	table, err := s.loader.Load(ctx, dataprocessing.Source{Dataset: ds.Name, Path: ds.Path}, layout)
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.Refreshes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dataset", name),
		attribute.String("status", status),
	))

	if err != nil {
		_, stale := s.cached(ds)
		s.logger.ErrorContext(ctx, "dataset refresh failed",
			slog.String("dataset", name),
			slog.Bool("stale", stale),
			slog.String("error", err.Error()))

		msg := events.DatasetError{Dataset: name, Path: ds.Path, Message: err.Error(), Stale: stale}
		var le *apierrors.LoadError
		if errors.As(err, &le) {
			msg.Kind = string(le.Kind)
		}
		s.publish(events.MessageTypeDatasetError, msg)
		return nil, err
	}

	s.logger.InfoContext(ctx, "dataset refreshed",
		slog.String("dataset", name),
		slog.Int("rows", table.Len()),
		slog.String("fingerprint", table.Source().Fingerprint))
	s.publish(events.MessageTypeDatasetRefreshed, events.DatasetRefreshed{
		Dataset:     name,
		Rows:        table.Len(),
		Fingerprint: table.Source().Fingerprint,
		LoadedAt:    table.Source().LoadedAt,
		Diagnostics: table.Diagnostics(),
	})
	return table, nil
}

// SourceChanged refreshes every dataset read from path. It is the watcher's
// callback.
func (s *DatasetService) SourceChanged(ctx context.Context, path string) {
	for _, ds := range s.cfg.Datasets {
		abs, err := filepath.Abs(ds.Path)
		if err != nil || abs != path {
			continue
		}
		// Errors are published and logged by Refresh.
		_, _ = s.Refresh(ctx, ds.Name)
	}
}

// Warm loads every dataset concurrently. All datasets are attempted; the
// first failure is returned.
func (s *DatasetService) Warm(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(warmConcurrency)

	start := time.Now()
	for _, ds := range s.cfg.Datasets {
		g.Go(func() error {
			if _, err := s.Table(ctx, ds.Name); err != nil {
				return fmt.Errorf("warm %s: %w", ds.Name, err)
			}
			return nil
		})
	}
	err := g.Wait()

	s.logger.InfoContext(ctx, "datasets warmed",
		slog.Int("datasets", len(s.cfg.Datasets)),
		slog.Duration("duration", time.Since(start)),
		slog.Bool("ok", err == nil))
	return err
}

// Export writes the filtered rows of a dataset to w. xlsx exports add
// per-product and per-entity sheets.
func (s *DatasetService) Export(ctx context.Context, name string, filter domain.Filter, format exporter.Format, w io.Writer) error {
	table, sections, err := s.exportInput(ctx, name, filter, format)
	if err != nil {
		return err
	}
	return s.exporter.Export(ctx, w, format, table, sections...)
}

// ExportFile writes the export into the export directory and returns its
// path.
func (s *DatasetService) ExportFile(ctx context.Context, name string, filter domain.Filter, format exporter.Format) (string, error) {
	table, sections, err := s.exportInput(ctx, name, filter, format)
	if err != nil {
		return "", err
	}
	return s.exporter.ExportFile(ctx, format, table, filter, sections...)
}

func (s *DatasetService) exportInput(ctx context.Context, name string, filter domain.Filter, format exporter.Format) (*domain.Table, []exporter.Section, error) {
	table, err := s.Table(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	sel := dataprocessing.FilterBy(table, dataprocessing.Predicates(filter)...)
	if format != exporter.FormatXLSX {
		return sel, nil, nil
	}

	var sections []exporter.Section
	for _, sec := range []struct {
		sheet string
		key   domain.GroupKey
	}{
		{"Per Produk", domain.GroupByProduct},
		{"Per Entitas", domain.GroupByEntity},
		{"Per Bulan", domain.GroupByMonth},
	} {
		groups, err := dataprocessing.SumBy(sel, sec.key)
		if err != nil {
			return nil, nil, err
		}
		if sec.key == domain.GroupByMonth {
			groups = groups.SortByKey()
		}
		sections = append(sections, exporter.Section{
			Sheet:    sec.sheet,
			Key:      sec.key,
			Groups:   groups,
			Measures: domain.AllMeasures,
		})
	}
	return sel, sections, nil
}

func (s *DatasetService) publish(messageType events.MessageType, data interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(string(messageType), data)
}

