package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "esgboard/internal/errors"
	"esgboard/internal/loader"
	custommw "esgboard/internal/middleware"
	"esgboard/internal/validation"
	api "esgboard/pkg/contracts/api/v1"
	"esgboard/pkg/contracts/domain"
)

// DatasetHandler handles dataset lifecycle HTTP requests with RFC 7807 compliance
type DatasetHandler struct {
	service      DatasetServiceInterface
	uploads      *validation.UploadValidator
	maxUpload    int64
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDatasetHandler creates a new dataset handler with RFC 7807 error handling
func NewDatasetHandler(service DatasetServiceInterface, uploads *validation.UploadValidator, maxUpload int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		uploads:      uploads,
		maxUpload:    maxUpload,
		logger:       logger.With(slog.String("component", "dataset_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dataset routes with proper Chi patterns. Each install
// endpoint runs under a dataset load span named after its source.
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Use render for consistent JSON responses
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetSummary)
	r.Post("/synthetic", custommw.DatasetTraceHandler("synthetic", h.ResetSynthetic))
	r.Post("/upload", custommw.DatasetTraceHandler("upload", h.Upload))

	// The remote installs take JSON bodies; the upload endpoint is multipart
	// and must stay outside the content-type guard.
	r.Group(func(r chi.Router) {
		r.Use(custommw.ContentTypeValidator("application/json"))
		r.Post("/fetch", custommw.DatasetTraceHandler("remote", h.Fetch))
		r.Post("/sheet", custommw.DatasetTraceHandler("sheet", h.FetchSheet))
	})

	return r
}

// GetSummary handles GET /api/dataset
func (h *DatasetHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Summary())
}

// ResetSynthetic handles POST /api/dataset/synthetic
func (h *DatasetHandler) ResetSynthetic(w http.ResponseWriter, r *http.Request) {
	h.install(w, r, loader.Request{Kind: domain.SourceSynthetic})
}

// Upload handles POST /api/dataset/upload. The workbook or CSV arrives as a
// multipart file field named "file".
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "A multipart file field named 'file' is required"))
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		if isBodyTooLarge(err) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.NewInternalError("Failed to read uploaded file"))
		return
	}

	kind, err := h.uploads.ValidateUpload(header.Filename, header.Size, payload)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.install(w, r, loader.Request{
		Kind:     kind,
		Payload:  payload,
		Filename: header.Filename,
	})
}

// Fetch handles POST /api/dataset/fetch
func (h *DatasetHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	data := &api.DatasetFetchRequest{}
	if err := render.Bind(r, data); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	h.install(w, r, loader.Request{
		Kind: domain.SourceRemoteFetch,
		URL:  data.URL,
	})
}

// FetchSheet handles POST /api/dataset/sheet
func (h *DatasetHandler) FetchSheet(w http.ResponseWriter, r *http.Request) {
	data := &api.DatasetSheetRequest{}
	if err := render.Bind(r, data); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	h.install(w, r, loader.Request{
		Kind:          domain.SourceSheetsFetch,
		SpreadsheetID: data.SpreadsheetID,
	})
}

// install runs the load and renders the summary of whatever dataset ended up
// installed. Parse and fetch failures surface as warnings on the substituted
// sample dataset, so the only error left here is an abandoned request.
func (h *DatasetHandler) install(w http.ResponseWriter, r *http.Request, req loader.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	h.logger.InfoContext(ctx, "Installing dataset",
		slog.String("request_id", reqID),
		slog.String("kind", string(req.Kind)),
		slog.String("file", req.Filename))

	_, warnings, err := h.service.Load(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "Dataset install abandoned",
			slog.String("request_id", reqID),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if len(warnings) > 0 {
		h.logger.WarnContext(ctx, "Dataset installed with warnings",
			slog.String("request_id", reqID),
			slog.Int("warnings", len(warnings)))
	}

	render.JSON(w, r, h.service.Summary())
}

// isBodyTooLarge reports whether the request body hit the MaxBytesReader cap.
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
