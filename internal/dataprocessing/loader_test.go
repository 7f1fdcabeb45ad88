package dataprocessing

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hilirisasi/internal/config"
	apierrors "hilirisasi/internal/errors"
	"hilirisasi/internal/shared/testutil"
	"hilirisasi/pkg/contracts/domain"
)

var fixedNow = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

func legacyLayout() config.Layout { return config.BuiltinLayouts()[config.LayoutLegacy] }
func v2Layout() config.Layout     { return config.BuiltinLayouts()[config.LayoutV2] }

func newTestLoader(t *testing.T, opts ...LoaderOption) (*Loader, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, handler := testutil.NewTestLogger(t)
	opts = append([]LoaderOption{WithLogger(logger), WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewLoader(opts...), handler
}

func legacyRows() [][]any {
	return [][]any{
		{1, "PT Alpha", "Nikel Matte", 10, 100, 20, 2025},
		{"Februari", "PT Beta", "Feronikel", "1,500", 200, 50, 2025},
		{"", "PT Gamma", "Kosong", 1, 1, 1, 2025},
		{3, "PT Alpha", "", 5, 5, 5, 2025},
		{4, "PT Delta", "Stainless Slab", "N/A", 300, 30, 2025},
		{13, "PT Eps", "Nikel Matte", 1, 1, 1, 2025},
		{7, "PT Alpha", "Nikel Matte", 2.5, 50, "", ""},
	}
}

func TestLoader_LegacyLayout(t *testing.T) {
	path := testutil.LegacyWorkbook(t, legacyRows()...)
	loader, handler := newTestLoader(t)

	table, err := loader.Load(context.Background(), Source{Dataset: "realisasi", Path: path}, legacyLayout())
	require.NoError(t, err)

	require.Equal(t, 4, table.Len())
	diag := table.Diagnostics()
	assert.Equal(t, 7, diag.RowsRead)
	assert.Equal(t, 3, diag.RowsDropped)
	assert.Equal(t, 1, diag.CellsCoerced)
	assert.Equal(t, 0, diag.SemesterMismatches)

	first := table.At(0)
	assert.Equal(t, 1, first.Period)
	assert.Equal(t, 2025, first.Year)
	assert.Equal(t, "PT Alpha", first.Entity)
	assert.Equal(t, "Nikel Matte", first.Product)
	assert.Equal(t, 10.0, first.Quantity)
	assert.Equal(t, 100.0, first.Revenue)
	assert.Equal(t, 20.0, first.GrossProfit)
	assert.Equal(t, domain.SemesterFirstHalf, first.Semester)
	assert.Equal(t, "Januari", first.MonthName)
	assert.True(t, first.Month.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	named := table.At(1)
	assert.Equal(t, 2, named.Period)
	assert.Equal(t, 1500.0, named.Quantity)

	coerced := table.At(2)
	assert.Equal(t, "Stainless Slab", coerced.Product)
	assert.Equal(t, 0.0, coerced.Quantity)
	assert.Equal(t, 300.0, coerced.Revenue)

	defaulted := table.At(3)
	assert.Equal(t, 7, defaulted.Period)
	assert.Equal(t, 2025, defaulted.Year)
	assert.Equal(t, 2.5, defaulted.Quantity)
	assert.Equal(t, 0.0, defaulted.GrossProfit)
	assert.Equal(t, domain.SemesterSecondHalf, defaulted.Semester)

	src := table.Source()
	assert.Equal(t, "realisasi", src.Dataset)
	assert.Equal(t, "Realisasi Hilirisasi", src.Sheet)
	assert.Equal(t, config.LayoutLegacy, src.Layout)
	assert.Equal(t, fixedNow, src.LoadedAt)
	assert.NotEmpty(t, src.Fingerprint)

	testutil.AssertLogContains(t, handler, slog.LevelInfo, "dataset loaded")
	testutil.AssertNoErrors(t, handler)
}

func TestLoader_V2Layout(t *testing.T) {
	path := testutil.V2Workbook(t,
		[]any{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "January", 2025, "1", "Nikel Matte", "PT Alpha", 10, 100, 20},
		[]any{time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), "July", 2025, "2", "Feronikel", "PT Beta", 5, 50, 10},
		[]any{"2025-03-01", "March", 2025, "II", "Nikel Matte", "PT Beta", 1, 1, 1},
		[]any{"", "", "", "", "Feronikel", "PT Gamma", 1, 1, 1},
	)
	loader, handler := newTestLoader(t)

	table, err := loader.Load(context.Background(), Source{Dataset: "v2", Path: path}, v2Layout())
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	diag := table.Diagnostics()
	assert.Equal(t, 4, diag.RowsRead)
	assert.Equal(t, 1, diag.RowsDropped)
	assert.Equal(t, 1, diag.SemesterMismatches)

	jan := table.At(0)
	assert.Equal(t, 1, jan.Period)
	assert.Equal(t, 2025, jan.Year)
	assert.Equal(t, "January", jan.MonthName)
	assert.Equal(t, "PT Alpha", jan.Entity)
	assert.True(t, jan.Month.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	jul := table.At(1)
	assert.Equal(t, 7, jul.Period)
	assert.Equal(t, domain.SemesterSecondHalf, jul.Semester)

	// The provided semester wins even when it disagrees with the month.
	mar := table.At(2)
	assert.Equal(t, 3, mar.Period)
	assert.Equal(t, domain.SemesterSecondHalf, mar.Semester)

	testutil.AssertLogContains(t, handler, slog.LevelWarn, "provided semester disagrees")
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T) (string, config.Layout)
		sentinel error
		kind     apierrors.LoadErrorKind
		column   string
		row      int
	}{
		{
			name: "source not found",
			setup: func(t *testing.T) (string, config.Layout) {
				return filepath.Join(t.TempDir(), "missing.xlsx"), legacyLayout()
			},
			sentinel: apierrors.ErrSourceNotFound,
			kind:     apierrors.LoadSourceNotFound,
		},
		{
			name: "source unreadable",
			setup: func(t *testing.T) (string, config.Layout) {
				path := filepath.Join(t.TempDir(), "broken.xlsx")
				require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0o644))
				return path, legacyLayout()
			},
			sentinel: apierrors.ErrSourceUnreadable,
			kind:     apierrors.LoadSourceUnreadable,
		},
		{
			name: "sheet not found",
			setup: func(t *testing.T) (string, config.Layout) {
				return testutil.V2Workbook(t), legacyLayout()
			},
			sentinel: apierrors.ErrSheetNotFound,
			kind:     apierrors.LoadSheetNotFound,
		},
		{
			name: "required column missing",
			setup: func(t *testing.T) (string, config.Layout) {
				path := testutil.WriteWorkbook(t, "norevenue.xlsx", testutil.Workbook{
					Sheet:  "Input Data",
					Header: []string{"MONTH", "PRODUCT", "SUBSIDIARY", "TONASE", "GROSS PROFIT"},
				})
				return path, v2Layout()
			},
			sentinel: apierrors.ErrColumnMissing,
			kind:     apierrors.LoadColumnMissing,
			column:   "REVENUE",
			row:      1,
		},
		{
			name: "unparseable month date",
			setup: func(t *testing.T) (string, config.Layout) {
				return testutil.V2Workbook(t,
					[]any{"2025-01-01", "January", 2025, "1", "Nikel Matte", "PT Alpha", 1, 1, 1},
					[]any{"sometime", "", 2025, "1", "Nikel Matte", "PT Alpha", 1, 1, 1},
				), v2Layout()
			},
			sentinel: apierrors.ErrDateUnparseable,
			kind:     apierrors.LoadDateUnparseable,
			column:   "MONTH",
			row:      3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, layout := tt.setup(t)
			loader, handler := newTestLoader(t)

			table, err := loader.Load(context.Background(), Source{Dataset: "ds", Path: path}, layout)
			require.Error(t, err)
			assert.Nil(t, table)
			assert.ErrorIs(t, err, tt.sentinel)

			var le *apierrors.LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tt.kind, le.Kind)
			assert.Equal(t, path, le.Source)
			if tt.column != "" {
				assert.Equal(t, tt.column, le.Column)
				assert.Equal(t, tt.row, le.Row)
			}

			testutil.AssertLogContains(t, handler, slog.LevelError, "dataset load failed")
			assert.Zero(t, loader.Cache().Len())
		})
	}
}

func TestLoader_HeaderMatching(t *testing.T) {
	path := testutil.WriteWorkbook(t, "messy.xlsx", testutil.Workbook{
		Sheet:  "realisasi hilirisasi",
		Header: []string{"  periode ", "ENTITAS", "jenis   produk", "qty", "REVENUE", "gross profit", "Keterangan"},
		Rows: [][]any{
			{"Maret", "PT Alpha", "Nikel Matte", 3, 30, 3, "catatan"},
			{},
			{"April", "PT Alpha", "Nikel Matte", 4, 40, 4, ""},
		},
	})
	layout := legacyLayout()
	layout.HeaderSkip = 0
	loader, _ := newTestLoader(t)

	table, err := loader.Load(context.Background(), Source{Dataset: "messy", Path: path}, layout)
	require.NoError(t, err)

	require.Equal(t, 2, table.Len())
	assert.Equal(t, 2, table.Diagnostics().RowsRead, "blank rows are not counted")
	assert.Equal(t, 3, table.At(0).Period)
	assert.Equal(t, 4, table.At(1).Period)
	// No Tahun column: the layout's default year applies.
	assert.Equal(t, config.DefaultReportYear, table.At(0).Year)
}

func TestLoader_Cache(t *testing.T) {
	ctx := context.Background()

	t.Run("unchanged file is served from cache", func(t *testing.T) {
		path := testutil.LegacyWorkbook(t, legacyRows()...)
		loader, _ := newTestLoader(t)
		src := Source{Dataset: "realisasi", Path: path}

		first, err := loader.Load(ctx, src, legacyLayout())
		require.NoError(t, err)
		second, err := loader.Load(ctx, src, legacyLayout())
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.True(t, first.Equal(second))
		assert.Equal(t, 1, loader.Cache().Len())

		fp, err := Fingerprint(path)
		require.NoError(t, err)
		assert.Equal(t, fp, first.Source().Fingerprint)
	})

	t.Run("reparse after invalidation is idempotent", func(t *testing.T) {
		path := testutil.LegacyWorkbook(t, legacyRows()...)
		loader, _ := newTestLoader(t)
		src := Source{Dataset: "realisasi", Path: path}

		first, err := loader.Load(ctx, src, legacyLayout())
		require.NoError(t, err)

		abs, err := filepath.Abs(path)
		require.NoError(t, err)
		assert.Equal(t, 1, loader.Cache().Invalidate(abs))

		second, err := loader.Load(ctx, src, legacyLayout())
		require.NoError(t, err)
		assert.NotSame(t, first, second)
		assert.True(t, first.Equal(second))
	})

	t.Run("changed content misses the cache", func(t *testing.T) {
		path := testutil.LegacyWorkbook(t, legacyRows()...)
		loader, _ := newTestLoader(t)
		src := Source{Dataset: "realisasi", Path: path}

		first, err := loader.Load(ctx, src, legacyLayout())
		require.NoError(t, err)

		replacement := testutil.LegacyWorkbook(t, []any{5, "PT Alpha", "Nikel Matte", 9, 90, 9, 2025})
		data, err := os.ReadFile(replacement)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		second, err := loader.Load(ctx, src, legacyLayout())
		require.NoError(t, err)
		assert.NotEqual(t, first.Source().Fingerprint, second.Source().Fingerprint)
		require.Equal(t, 1, second.Len())
		assert.Equal(t, 5, second.At(0).Period)
		assert.Equal(t, 1, loader.Cache().Len(), "new version replaces the old one")
	})

	t.Run("datasets sharing a file share the rows", func(t *testing.T) {
		path := testutil.LegacyWorkbook(t, legacyRows()...)
		loader, _ := newTestLoader(t)

		a, err := loader.Load(ctx, Source{Dataset: "a", Path: path}, legacyLayout())
		require.NoError(t, err)
		b, err := loader.Load(ctx, Source{Dataset: "b", Path: path}, legacyLayout())
		require.NoError(t, err)

		assert.Equal(t, "a", a.Source().Dataset)
		assert.Equal(t, "b", b.Source().Dataset)
		assert.True(t, a.Equal(b))
	})

	t.Run("nil cache always parses", func(t *testing.T) {
		path := testutil.LegacyWorkbook(t, legacyRows()...)
		loader, _ := newTestLoader(t, WithCache(nil))
		src := Source{Dataset: "realisasi", Path: path}

		first, err := loader.Load(ctx, src, legacyLayout())
		require.NoError(t, err)
		second, err := loader.Load(ctx, src, legacyLayout())
		require.NoError(t, err)

		assert.NotSame(t, first, second)
		assert.True(t, first.Equal(second))
	})
}

func TestLoader_CancelledContext(t *testing.T) {
	path := testutil.LegacyWorkbook(t, legacyRows()...)
	loader, _ := newTestLoader(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loader.Load(ctx, Source{Dataset: "realisasi", Path: path}, legacyLayout())
	assert.ErrorIs(t, err, context.Canceled)
}
