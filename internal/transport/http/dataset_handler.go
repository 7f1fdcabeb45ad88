package http

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "hilirisasi/internal/errors"
	"hilirisasi/internal/exporter"
	"hilirisasi/internal/infrastructure"
	"hilirisasi/internal/services"
	api "hilirisasi/pkg/contracts/api/v1"
	"hilirisasi/pkg/contracts/domain"
)

// DatasetService is the part of services.DatasetService the handlers use.
type DatasetService interface {
	List(ctx context.Context) []services.DatasetInfo
	Summary(ctx context.Context, name string, filter domain.Filter) (*domain.DashboardSummary, error)
	Groups(ctx context.Context, name string, q services.GroupsQuery) (domain.Groups, error)
	Top(ctx context.Context, name string, filter domain.Filter, measure domain.Measure) (domain.Record, error)
	Shares(ctx context.Context, name string, filter domain.Filter, by domain.GroupKey, measure domain.Measure) ([]domain.Share, error)
	Records(ctx context.Context, name string, filter domain.Filter, limit, offset int) (*services.RecordPage, error)
	Dimensions(ctx context.Context, name string, year *int) (domain.Dimensions, error)
	Refresh(ctx context.Context, name string) (*domain.Table, error)
	Export(ctx context.Context, name string, filter domain.Filter, format exporter.Format, w io.Writer) error
}

// defaultRecordLimit applies when a records request sets no limit.
const defaultRecordLimit = 100

// DatasetHandler serves the /api/datasets endpoints.
type DatasetHandler struct {
	service      DatasetService
	decoder      *QueryDecoder
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
	now          func() time.Time
}

// NewDatasetHandler creates the dataset handler.
func NewDatasetHandler(service DatasetService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		decoder:      NewQueryDecoder(),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "dataset_handler")),
		now:          time.Now,
	}
}

// Routes returns the dataset routes, to be mounted at /api/datasets.
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Route("/{dataset}", func(r chi.Router) {
		r.Use(h.datasetCtx)
		r.Get("/dimensions", h.Dimensions)
		r.Get("/summary", h.Summary)
		r.Get("/records", h.Records)
		r.Get("/groups", h.Groups)
		r.Get("/top", h.Top)
		r.Get("/shares", h.Shares)
		r.Get("/export.{format}", h.Export)
		r.Post("/refresh", h.Refresh)
	})

	return r
}

// datasetCtx tags the request context with the dataset name for logging.
func (h *DatasetHandler) datasetCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "dataset")
		ctx := infrastructure.WithDataset(r.Context(), name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *DatasetHandler) respond(w http.ResponseWriter, r *http.Request, data interface{}) {
	render.JSON(w, r, api.NewResponse(data))
}

// List handles GET /api/datasets
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.List(r.Context()))
}

// Dimensions handles GET /api/datasets/{dataset}/dimensions
func (h *DatasetHandler) Dimensions(w http.ResponseWriter, r *http.Request) {
	var q api.FilterQuery
	if err := h.decoder.Decode(r, &q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	dims, err := h.service.Dimensions(r.Context(), chi.URLParam(r, "dataset"), q.Year)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, dims)
}

// Summary handles GET /api/datasets/{dataset}/summary
func (h *DatasetHandler) Summary(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.filter(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Summary(r.Context(), chi.URLParam(r, "dataset"), filter)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, summary)
}

// Records handles GET /api/datasets/{dataset}/records
func (h *DatasetHandler) Records(w http.ResponseWriter, r *http.Request) {
	var q api.RecordsQuery
	if err := h.decoder.Decode(r, &q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	filter, err := toFilter(q.FilterQuery)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultRecordLimit
	}

	page, err := h.service.Records(r.Context(), chi.URLParam(r, "dataset"), filter, q.Limit, q.Offset)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, page)
}

// Groups handles GET /api/datasets/{dataset}/groups
func (h *DatasetHandler) Groups(w http.ResponseWriter, r *http.Request) {
	var q api.GroupsQuery
	if err := h.decoder.Decode(r, &q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	filter, err := toFilter(q.FilterQuery)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	by, err := parseGroupKey(q.By)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	measures := make([]domain.Measure, 0, len(q.Measures))
	for _, s := range q.Measures {
		m, err := parseMeasure("measures", s)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		measures = append(measures, m)
	}

	groups, err := h.service.Groups(r.Context(), chi.URLParam(r, "dataset"), services.GroupsQuery{
		Filter:   filter,
		By:       by,
		Measures: measures,
		Sort:     q.Sort,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, groups)
}

// Top handles GET /api/datasets/{dataset}/top
func (h *DatasetHandler) Top(w http.ResponseWriter, r *http.Request) {
	var q api.TopQuery
	if err := h.decoder.Decode(r, &q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	filter, err := toFilter(q.FilterQuery)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	measure, err := parseMeasure("measure", q.Measure)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	record, err := h.service.Top(r.Context(), chi.URLParam(r, "dataset"), filter, measure)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, record)
}

// Shares handles GET /api/datasets/{dataset}/shares
func (h *DatasetHandler) Shares(w http.ResponseWriter, r *http.Request) {
	var q api.SharesQuery
	if err := h.decoder.Decode(r, &q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	filter, err := toFilter(q.FilterQuery)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	by, err := parseGroupKey(q.By)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	measure, err := parseMeasure("measure", q.Measure)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	shares, err := h.service.Shares(r.Context(), chi.URLParam(r, "dataset"), filter, by, measure)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, shares)
}

// Export handles GET /api/datasets/{dataset}/export.{format}
func (h *DatasetHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := exporter.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", err.Error()))
		return
	}
	filter, ok := h.filter(w, r)
	if !ok {
		return
	}

	name := chi.URLParam(r, "dataset")
	// Buffer so a failure can still be reported as a problem response.
	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), name, filter, format, &buf); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filename := exporter.FileName(name, filter, format, h.now())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "export write interrupted",
			slog.String("dataset", name),
			slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(r.Context(), "export served",
		slog.String("dataset", name),
		slog.String("format", string(format)),
		slog.String("filename", filename))
}

// refreshResult is the body of a successful refresh.
type refreshResult struct {
	Dataset     string                 `json:"dataset"`
	Rows        int                    `json:"rows"`
	Fingerprint string                 `json:"fingerprint"`
	LoadedAt    time.Time              `json:"loaded_at"`
	Diagnostics domain.LoadDiagnostics `json:"diagnostics"`
}

// Refresh handles POST /api/datasets/{dataset}/refresh
func (h *DatasetHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "dataset")

	table, err := h.service.Refresh(r.Context(), name)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	src := table.Source()
	h.respond(w, r, refreshResult{
		Dataset:     name,
		Rows:        table.Len(),
		Fingerprint: src.Fingerprint,
		LoadedAt:    src.LoadedAt,
		Diagnostics: table.Diagnostics(),
	})
}

// filter decodes the shared filter parameters, writing the error response
// when they are invalid.
func (h *DatasetHandler) filter(w http.ResponseWriter, r *http.Request) (domain.Filter, bool) {
	var q api.FilterQuery
	if err := h.decoder.Decode(r, &q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return domain.Filter{}, false
	}
	filter, err := toFilter(q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return domain.Filter{}, false
	}
	return filter, true
}
