package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"esgboard/internal/analytics"
	"esgboard/internal/chart"
	apperrors "esgboard/internal/errors"
	"esgboard/pkg/contracts/domain"
)

// DatasetProvider supplies the current dataset snapshot. DatasetService
// satisfies it.
type DatasetProvider interface {
	Current() *domain.Dataset
}

// ViewRequest carries the shared projection parameters. A Window of zero or
// less selects the full history; an empty Metrics list selects the first
// three metric columns of the category, the dashboard's initial selection.
type ViewRequest struct {
	Category domain.Category
	Window   int
	Metrics  []string
}

// ChartRequest extends a view request with chart options.
type ChartRequest struct {
	ViewRequest
	Kind      domain.ChartKind
	ShowGoals bool
	ShowTrend bool
}

// CategoryInfo lists one category's metric columns and goal values.
type CategoryInfo struct {
	Category domain.Category  `json:"category"`
	Metrics  []string         `json:"metrics"`
	Targets  domain.TargetMap `json:"targets"`
}

// TableDocument is the data-table projection: a header of Date plus metric
// names and one row of formatted cells per timestamp.
type TableDocument struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// MetricsService derives windowed views, KPIs, chart specifications, and
// table rows from the current dataset. Every call runs one full derivation
// pass over an immutable snapshot; nothing is cached between calls.
type MetricsService struct {
	datasets DatasetProvider
	logger   *slog.Logger
}

// NewMetricsService creates a metrics service over the given dataset source.
func NewMetricsService(datasets DatasetProvider, logger *slog.Logger) *MetricsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricsService{datasets: datasets, logger: logger}
}

// Categories lists the categories present in the current dataset with their
// metric columns and targets, in canonical order.
func (s *MetricsService) Categories(ctx context.Context) []CategoryInfo {
	ds := s.datasets.Current()

	infos := make([]CategoryInfo, 0, len(ds.Tables))
	for _, c := range domain.Categories() {
		table, ok := ds.Table(c)
		if !ok {
			continue
		}
		infos = append(infos, CategoryInfo{
			Category: c,
			Metrics:  table.Metrics,
			Targets:  ds.TargetsFor(c),
		})
	}
	return infos
}

// View projects the requested window of the category's series.
func (s *MetricsService) View(ctx context.Context, req ViewRequest) (*domain.FilteredView, error) {
	return s.project(s.datasets.Current(), req)
}

// KPIs derives the per-metric summary for the requested window.
func (s *MetricsService) KPIs(ctx context.Context, req ViewRequest) ([]domain.KPI, error) {
	ds := s.datasets.Current()
	view, err := s.project(ds, req)
	if err != nil {
		return nil, err
	}
	return analytics.ComputeKPIs(view, ds.TargetsFor(req.Category)), nil
}

// Chart builds the renderable chart specification for the requested window
// and options.
func (s *MetricsService) Chart(ctx context.Context, req ChartRequest) (*domain.ChartSpec, error) {
	ds := s.datasets.Current()
	view, err := s.project(ds, req.ViewRequest)
	if err != nil {
		return nil, err
	}
	return chart.BuildSpec(view, ds.TargetsFor(req.Category), chart.Options{
		Kind:      req.Kind,
		ShowGoals: req.ShowGoals,
		ShowTrend: req.ShowTrend,
	})
}

// TableRows formats the requested window as display rows: ISO dates and
// values rounded to one decimal.
func (s *MetricsService) TableRows(ctx context.Context, req ViewRequest) (*TableDocument, error) {
	view, err := s.View(ctx, req)
	if err != nil {
		return nil, err
	}

	doc := &TableDocument{
		Header: append([]string{"Date"}, view.Metrics...),
		Rows:   make([][]string, 0, len(view.Dates)),
	}
	for i, date := range view.Dates {
		row := make([]string, 0, len(view.Metrics)+1)
		row = append(row, date.Format("2006-01-02"))
		for _, metric := range view.Metrics {
			series := view.Values[metric]
			if i >= len(series) {
				return nil, apperrors.NewInternalAppError(
					fmt.Sprintf("series %q shorter than window", metric), nil)
			}
			row = append(row, strconv.FormatFloat(series[i], 'f', 1, 64))
		}
		doc.Rows = append(doc.Rows, row)
	}
	return doc, nil
}

// project applies the request defaults and runs the projection. Unknown
// categories and metric names come back wrapping the package sentinels so
// transport code can match them with errors.Is.
func (s *MetricsService) project(ds *domain.Dataset, req ViewRequest) (*domain.FilteredView, error) {
	table, ok := ds.Table(req.Category)
	if !ok {
		return nil, apperrors.NewAppError(apperrors.ErrTypeNotFound,
			fmt.Sprintf("no data for category %q", req.Category), ErrCategoryNotFound)
	}

	window := req.Window
	if window <= 0 {
		window = table.Rows()
	}

	metrics := req.Metrics
	if len(metrics) == 0 {
		metrics = defaultMetrics(table)
	}
	for _, name := range metrics {
		if !table.HasMetric(name) {
			return nil, apperrors.NewAppError(apperrors.ErrTypeValidation,
				fmt.Sprintf("unknown metric %q in category %q", name, req.Category), ErrMetricNotFound)
		}
	}

	return analytics.Project(ds, req.Category, window, metrics)
}

// defaultMetrics selects the first three metric columns.
func defaultMetrics(table *domain.Table) []string {
	n := 3
	if len(table.Metrics) < n {
		n = len(table.Metrics)
	}
	return table.Metrics[:n]
}
