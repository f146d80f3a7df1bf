package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "esgboard/internal/errors"
	custommw "esgboard/internal/middleware"
	"esgboard/internal/services"
	api "esgboard/pkg/contracts/api/v1"
	"esgboard/pkg/contracts/domain"
)

// contextKey is a private key type for values this handler stores on the
// request context.
type contextKey string

const categoryContextKey contextKey = "category"

// CategoriesHandler handles category view, KPI, chart, and export HTTP
// requests with RFC 7807 compliance
type CategoriesHandler struct {
	metrics      MetricsServiceInterface
	exports      ExportServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewCategoriesHandler creates a new categories handler with RFC 7807 error handling
func NewCategoriesHandler(metrics MetricsServiceInterface, exports ExportServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *CategoriesHandler {
	return &CategoriesHandler{
		metrics:      metrics,
		exports:      exports,
		logger:       logger.With(slog.String("component", "categories_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the category routes with proper Chi patterns
func (h *CategoriesHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Use render for consistent JSON responses; the chart and export
	// handlers override the content type when they write raw bytes.
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.ListCategories)

	r.Route("/{category}", func(r chi.Router) {
		r.Use(h.CategoryCtx) // Resolve category into context

		r.Get("/view", h.GetView)
		r.Get("/kpis", h.GetKPIs)
		r.Get("/table", h.GetTable)
		r.Post("/chart", h.RenderChart)

		r.Route("/export", func(r chi.Router) {
			r.Get("/csv", h.ExportCSV)
			r.Get("/xlsx", h.ExportSpreadsheet)
			r.Get("/png", h.ExportChart)
			r.Get("/bundle", h.ExportBundle)
		})
	})

	return r
}

// CategoryCtx middleware resolves the category URL parameter case-insensitively
// and stores it in the request context.
func (h *CategoriesHandler) CategoryCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "category")
		category, ok := domain.ParseCategory(name)
		if !ok {
			h.errorHandler.HandleError(w, r, apierrors.CategoryNotFoundError(name))
			return
		}

		ctx := context.WithValue(r.Context(), categoryContextKey, category)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// categoryFromContext returns the category stored by CategoryCtx.
func categoryFromContext(ctx context.Context) domain.Category {
	category, _ := ctx.Value(categoryContextKey).(domain.Category)
	return category
}

// ListCategories handles GET /api/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	infos := h.metrics.Categories(r.Context())

	render.JSON(w, r, map[string]interface{}{
		"status":     "success",
		"categories": infos,
		"count":      len(infos),
	})
}

// GetView handles GET /api/categories/{category}/view with RFC 7807 errors
func (h *CategoriesHandler) GetView(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	req, err := h.viewRequest(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	view, err := h.metrics.View(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to project view",
			slog.String("category", string(req.Category)),
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.handleServiceError(w, r, err, req.Category)
		return
	}

	render.JSON(w, r, view)
}

// GetKPIs handles GET /api/categories/{category}/kpis with RFC 7807 errors
func (h *CategoriesHandler) GetKPIs(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	req, err := h.viewRequest(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	kpis, err := h.metrics.KPIs(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to compute KPIs",
			slog.String("category", string(req.Category)),
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.handleServiceError(w, r, err, req.Category)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status":   "success",
		"category": req.Category,
		"kpis":     kpis,
		"count":    len(kpis),
	})
}

// GetTable handles GET /api/categories/{category}/table with RFC 7807 errors
func (h *CategoriesHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	req, err := h.viewRequest(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	doc, err := h.metrics.TableRows(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to build table rows",
			slog.String("category", string(req.Category)),
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.handleServiceError(w, r, err, req.Category)
		return
	}

	render.JSON(w, r, doc)
}

// RenderChart handles POST /api/categories/{category}/chart. The response
// body is the rendered PNG, not JSON.
func (h *CategoriesHandler) RenderChart(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	data := &api.ChartRenderRequest{}
	if err := render.Bind(r, data); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	req := services.ChartRequest{
		ViewRequest: services.ViewRequest{
			Category: categoryFromContext(r.Context()),
			Window:   data.Window,
			Metrics:  data.Metrics,
		},
		ShowGoals: data.ShowGoals,
		ShowTrend: data.ShowTrend,
	}
	if data.Kind != "" {
		kind, ok := domain.ParseChartKind(data.Kind)
		if !ok {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("kind",
				fmt.Sprintf("Unknown chart kind %q; use Line, Bar, Area, or Scatter", data.Kind)))
			return
		}
		req.Kind = kind
	}

	h.logger.InfoContext(r.Context(), "rendering chart",
		slog.String("category", string(req.Category)),
		slog.String("kind", string(req.Kind)),
		slog.String("request_id", reqID),
	)

	artifact, err := h.exports.ChartPNG(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render chart",
			slog.String("category", string(req.Category)),
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.handleServiceError(w, r, err, req.Category)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Data)
}

// ExportCSV handles GET /api/categories/{category}/export/csv
func (h *CategoriesHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	req, err := h.viewRequest(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.serveExport(w, r, req.Category, "csv", func(ctx context.Context) (*services.Artifact, error) {
		return h.exports.CSV(ctx, req)
	})
}

// ExportSpreadsheet handles GET /api/categories/{category}/export/xlsx
func (h *CategoriesHandler) ExportSpreadsheet(w http.ResponseWriter, r *http.Request) {
	req, err := h.viewRequest(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.serveExport(w, r, req.Category, "xlsx", func(ctx context.Context) (*services.Artifact, error) {
		return h.exports.Spreadsheet(ctx, req)
	})
}

// ExportChart handles GET /api/categories/{category}/export/png
func (h *CategoriesHandler) ExportChart(w http.ResponseWriter, r *http.Request) {
	req, err := h.chartRequest(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.serveExport(w, r, req.Category, "png", func(ctx context.Context) (*services.Artifact, error) {
		return h.exports.ChartPNG(ctx, req)
	})
}

// ExportBundle handles GET /api/categories/{category}/export/bundle
func (h *CategoriesHandler) ExportBundle(w http.ResponseWriter, r *http.Request) {
	req, err := h.chartRequest(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.serveExport(w, r, req.Category, "bundle", func(ctx context.Context) (*services.Artifact, error) {
		return h.exports.Bundle(ctx, req)
	})
}

// serveExport builds an artifact and writes it as an attachment download.
func (h *CategoriesHandler) serveExport(w http.ResponseWriter, r *http.Request, category domain.Category, format string, build func(context.Context) (*services.Artifact, error)) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "building export",
		slog.String("category", string(category)),
		slog.String("format", format),
		slog.String("request_id", reqID),
	)

	artifact, err := build(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to build export",
			slog.String("category", string(category)),
			slog.String("format", format),
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.handleServiceError(w, r, err, category)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Data)
}

// viewRequest builds the service view request from the category context and
// the window/metrics query parameters.
func (h *CategoriesHandler) viewRequest(r *http.Request) (services.ViewRequest, error) {
	req := services.ViewRequest{Category: categoryFromContext(r.Context())}

	if raw := r.URL.Query().Get("window"); raw != "" {
		window, err := strconv.Atoi(raw)
		if err != nil || window < 1 {
			return req, apierrors.ErrValidation("window", "window must be a positive integer")
		}
		req.Window = window
	}

	if raw := r.URL.Query().Get("metrics"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				req.Metrics = append(req.Metrics, name)
			}
		}
	}

	return req, nil
}

// chartRequest extends the view request with the chart query parameters
// used by the png and bundle exports.
func (h *CategoriesHandler) chartRequest(r *http.Request) (services.ChartRequest, error) {
	view, err := h.viewRequest(r)
	if err != nil {
		return services.ChartRequest{}, err
	}
	req := services.ChartRequest{ViewRequest: view}

	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind, ok := domain.ParseChartKind(raw)
		if !ok {
			return req, apierrors.ErrValidation("kind",
				fmt.Sprintf("Unknown chart kind %q; use Line, Bar, Area, or Scatter", raw))
		}
		req.Kind = kind
	}

	if raw := r.URL.Query().Get("goals"); raw != "" {
		show, err := strconv.ParseBool(raw)
		if err != nil {
			return req, apierrors.ErrValidation("goals", "goals must be a boolean")
		}
		req.ShowGoals = show
	}

	if raw := r.URL.Query().Get("trend"); raw != "" {
		show, err := strconv.ParseBool(raw)
		if err != nil {
			return req, apierrors.ErrValidation("trend", "trend must be a boolean")
		}
		req.ShowTrend = show
	}

	return req, nil
}

// handleServiceError maps service errors to API errors before falling back
// to the shared taxonomy mapping.
func (h *CategoriesHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, category domain.Category) {
	switch {
	case errors.Is(err, services.ErrCategoryNotFound):
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusNotFound,
			"CATEGORY_NOT_FOUND",
			fmt.Sprintf("category %s has no data in the current dataset", category),
			string(category),
		))
	case errors.Is(err, services.ErrMetricNotFound):
		msg := "Requested metric is not in the current dataset"
		var appErr *apierrors.AppError
		if errors.As(err, &appErr) {
			msg = appErr.Message
		}
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusBadRequest,
			"METRIC_NOT_FOUND",
			msg,
		))
	default:
		// Anything the handler cannot classify counts against the system
		// error budget, labeled by the taxonomy type when one is attached.
		errorType := string(apierrors.ErrTypeInternal)
		var appErr *apierrors.AppError
		if errors.As(err, &appErr) {
			errorType = string(appErr.Type)
		}
		custommw.RecordSystemError(r.Context(), errorType, "categories_handler")

		h.errorHandler.HandleError(w, r, err)
	}
}
