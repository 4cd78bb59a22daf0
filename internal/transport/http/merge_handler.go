package http

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"trialmerge/internal/dataprocessing"
	apierrors "trialmerge/internal/errors"
	"trialmerge/internal/middleware"
	"trialmerge/pkg/contracts/domain"
)

// UploadField is the multipart field carrying trial files.
const UploadField = "files"

// MergeQuery holds the query parameters of POST /api/merge
type MergeQuery struct {
	Format  string `query:"format" validate:"omitempty,oneof=json csv"`
	Summary bool   `query:"summary"`
	BOM     bool   `query:"bom"`
}

// MergeResponse is the JSON body of a successful merge. Each row is keyed by
// the names in Columns, the same projection the CSV export writes.
type MergeResponse struct {
	Columns      []string                `json:"columns"`
	Rows         []map[string]any        `json:"rows"`
	CountColumns []string                `json:"count_columns"`
	FilesParsed  int                     `json:"files_parsed"`
	Failures     []domain.FileFailure    `json:"failures,omitempty"`
	Summary      *dataprocessing.Summary `json:"summary,omitempty"`
}

func newMergeResponse(table *domain.MasterTable) MergeResponse {
	columns := table.Columns()
	rows := make([]map[string]any, 0, len(table.Records))
	for _, rec := range table.Records {
		values := table.Values(rec)
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		rows = append(rows, row)
	}
	return MergeResponse{
		Columns:      columns,
		Rows:         rows,
		CountColumns: table.CountColumns,
		FilesParsed:  table.FilesParsed,
		Failures:     table.Failures,
	}
}

// MergeHandler merges uploaded trial files
type MergeHandler struct {
	service        MergeServiceInterface
	validator      *middleware.RequestValidator
	maxUploadBytes int64
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewMergeHandler creates a merge handler accepting at most maxUploadBytes of request body
func NewMergeHandler(service MergeServiceInterface, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *MergeHandler {
	return &MergeHandler{
		service:        service,
		validator:      middleware.NewRequestValidator(logger),
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "merge_handler")),
		errorHandler:   errorHandler,
	}
}

// Routes returns the merge routes
func (h *MergeHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data"))
	r.Post("/", h.Merge)
	return r
}

// Merge handles POST /api/merge
func (h *MergeHandler) Merge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query, err := h.parseQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.WarnContext(ctx, "failed to remove multipart temp files", slog.String("error", err.Error()))
		}
	}()

	headers := r.MultipartForm.File[UploadField]
	if len(headers) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrNoFiles)
		return
	}

	sources, closeAll, err := openUploads(headers)
	defer closeAll()
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	table, err := h.service.MergeUploads(ctx, sources)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "uploads merged",
		slog.Int("files", len(sources)),
		slog.Int("rows", len(table.Records)),
		slog.Int("files_failed", len(table.Failures)))

	if table.Empty() {
		h.errorHandler.HandleError(w, r, apierrors.ErrNothingMerged(table.Failures))
		return
	}

	if query.Format == "csv" {
		h.writeCSV(w, r, table, query.BOM)
		return
	}

	resp := newMergeResponse(table)
	if query.Summary {
		summary := dataprocessing.Summarize(table)
		resp.Summary = &summary
	}
	render.JSON(w, r, resp)
}

func (h *MergeHandler) writeCSV(w http.ResponseWriter, r *http.Request, table *domain.MasterTable, bom bool) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="master_data_for_analysis.csv"`)
	if err := h.service.WriteCSV(w, table, bom); err != nil {
		// headers are already sent; the client sees a truncated body
		h.logger.ErrorContext(r.Context(), "failed to stream master table", slog.String("error", err.Error()))
	}
}

func (h *MergeHandler) parseQuery(r *http.Request) (MergeQuery, error) {
	values := r.URL.Query()
	q := MergeQuery{Format: values.Get("format")}

	for name, dst := range map[string]*bool{"summary": &q.Summary, "bom": &q.BOM} {
		raw := values.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return q, apierrors.ErrValidation(name, fmt.Sprintf("%s must be a boolean", name))
		}
		*dst = v
	}

	if err := h.validator.ValidateStruct(q); err != nil {
		return q, err
	}
	return q, nil
}

// openUploads opens every uploaded part in order. The returned func closes
// whatever was opened, even on error.
func openUploads(headers []*multipart.FileHeader) ([]dataprocessing.Source, func(), error) {
	opened := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	sources := make([]dataprocessing.Source, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("open upload %q: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		sources = append(sources, dataprocessing.Source{Name: fh.Filename, Reader: f})
	}
	return sources, closeAll, nil
}
