package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"hilirisasi/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(nil, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.Nil(t, providers.TracerProvider, "default trace exporter is none")
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelStdoutTracing(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.TraceExporter = "stdout"
	cfg.EnableMetrics = false

	providers, err := InitializeOTel(cfg, discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	require.NotNil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)

	ctx, span := providers.Tracer.Start(context.Background(), "dataset.load")
	defer span.End()

	assert.Len(t, TraceIDFromContext(ctx), 32)
	AddSpanEvent(ctx, "cache.miss", attribute.String("dataset", "a"))
	RecordError(ctx, assert.AnError)
}

func TestOTelUnsupportedExporter(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.TraceExporter = "jaeger"

	_, err := InitializeOTel(cfg, discardLogger())
	assert.Error(t, err)
}

func TestOTelConfigFrom(t *testing.T) {
	cfg := OTelConfigFrom(config.TelemetryConfig{
		ServiceName:    "hilirisasi-test",
		TraceExporter:  "stdout",
		MetricsEnabled: false,
	})
	assert.Equal(t, "hilirisasi-test", cfg.ServiceName)
	assert.Equal(t, "stdout", cfg.TraceExporter)
	assert.False(t, cfg.EnableMetrics)
	assert.Equal(t, ServiceVersion, cfg.ServiceVersion)
}

func TestDatasetMetricsExported(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	m, err := CreateDatasetMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("dataset", "realisasi"))
	m.LoadsTotal.Add(ctx, 1, attrs)
	m.CacheHits.Add(ctx, 2, attrs)
	m.RowsDropped.Add(ctx, 3, attrs)
	m.LoadDuration.Record(ctx, 0.25, attrs)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "dataset_loads_total")
	assert.Contains(t, body, "dataset_cache_hits_total")
	assert.Contains(t, body, "dataset_rows_dropped_total")
	assert.Contains(t, body, "dataset_load_duration_seconds")
	assert.Contains(t, body, `dataset="realisasi"`)
}

func TestNoopDatasetMetrics(t *testing.T) {
	m := NoopDatasetMetrics()
	require.NotNil(t, m)
	assert.NotPanics(t, func() {
		m.CacheMisses.Add(context.Background(), 1)
		m.HTTPActiveRequests.Add(context.Background(), -1)
	})
}

func TestPrometheusDisabled(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.EnableMetrics = false

	providers, err := InitializeOTel(cfg, discardLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
