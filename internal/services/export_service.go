package services

import (
	"context"
	"log/slog"
	"time"

	"esgboard/internal/chart"
	"esgboard/internal/config"
	"esgboard/internal/exporter"
	"esgboard/internal/infrastructure"
)

// Content types of the export artifacts.
const (
	ContentTypeCSV         = "text/csv; charset=utf-8"
	ContentTypeSpreadsheet = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePNG         = "image/png"
	ContentTypeZip         = "application/zip"
)

// Artifact is one downloadable export result.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService builds download artifacts from the current dataset: CSV and
// XLSX tables, chart PNGs, and the zip bundle of all three. Artifacts are
// derived fresh per call from an immutable view, so no state is shared.
type ExportService struct {
	metrics *MetricsService
	cfg     config.ExportConfig
	biz     *infrastructure.BusinessMetrics
	logger  *slog.Logger

	// now is swapped in tests to pin artifact filenames.
	now func() time.Time
}

// NewExportService creates an export service. biz may be nil.
func NewExportService(metrics *MetricsService, cfg config.ExportConfig, biz *infrastructure.BusinessMetrics, logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportService{
		metrics: metrics,
		cfg:     cfg,
		biz:     biz,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CSV builds the windowed table as a CSV artifact.
func (s *ExportService) CSV(ctx context.Context, req ViewRequest) (*Artifact, error) {
	start := s.now()

	view, err := s.metrics.View(ctx, req)
	if err != nil {
		infrastructure.RecordExportMetrics(ctx, s.biz, "csv", string(req.Category), time.Since(start), err)
		return nil, err
	}

	data, err := exporter.CSV(view, exporter.CSVOptions{BOMPrefix: s.cfg.CSVWithBOM})
	infrastructure.RecordExportMetrics(ctx, s.biz, "csv", string(req.Category), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return s.artifact(exporter.CSVFilename(req.Category, start), ContentTypeCSV, data), nil
}

// Spreadsheet builds the windowed table as an XLSX artifact.
func (s *ExportService) Spreadsheet(ctx context.Context, req ViewRequest) (*Artifact, error) {
	start := s.now()

	view, err := s.metrics.View(ctx, req)
	if err != nil {
		infrastructure.RecordExportMetrics(ctx, s.biz, "xlsx", string(req.Category), time.Since(start), err)
		return nil, err
	}

	data, err := exporter.Spreadsheet(view, "")
	infrastructure.RecordExportMetrics(ctx, s.biz, "xlsx", string(req.Category), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return s.artifact(exporter.SpreadsheetFilename(req.Category, start), ContentTypeSpreadsheet, data), nil
}

// ChartPNG renders the requested chart as a PNG artifact.
func (s *ExportService) ChartPNG(ctx context.Context, req ChartRequest) (*Artifact, error) {
	start := s.now()

	spec, err := s.metrics.Chart(ctx, req)
	if err != nil {
		infrastructure.RecordChartRenderMetrics(ctx, s.biz, string(req.Kind), err)
		return nil, err
	}

	data, err := exporter.PNG(spec, s.cfg.ChartWidth, s.cfg.ChartHeight)
	infrastructure.RecordChartRenderMetrics(ctx, s.biz, string(spec.Kind), err)
	infrastructure.RecordExportMetrics(ctx, s.biz, "png", string(req.Category), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return s.artifact(exporter.ChartFilename(req.Category, start), ContentTypePNG, data), nil
}

// Bundle builds the CSV, XLSX, and chart PNG and zips them into one archive.
// All three artifacts derive from the same dataset snapshot.
func (s *ExportService) Bundle(ctx context.Context, req ChartRequest) (*Artifact, error) {
	start := s.now()

	ds := s.metrics.datasets.Current()
	view, err := s.metrics.project(ds, req.ViewRequest)
	if err != nil {
		infrastructure.RecordExportMetrics(ctx, s.biz, "zip", string(req.Category), time.Since(start), err)
		return nil, err
	}

	spec, err := chart.BuildSpec(view, ds.TargetsFor(req.Category), chart.Options{
		Kind:      req.Kind,
		ShowGoals: req.ShowGoals,
		ShowTrend: req.ShowTrend,
	})
	if err != nil {
		infrastructure.RecordExportMetrics(ctx, s.biz, "zip", string(req.Category), time.Since(start), err)
		return nil, err
	}

	data, err := exporter.Bundle(ctx, view, spec, exporter.BundleOptions{
		CSV:    exporter.CSVOptions{BOMPrefix: s.cfg.CSVWithBOM},
		Width:  s.cfg.ChartWidth,
		Height: s.cfg.ChartHeight,
		At:     start,
	})
	infrastructure.RecordExportMetrics(ctx, s.biz, "zip", string(req.Category), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return s.artifact(exporter.BundleFilename(req.Category, start), ContentTypeZip, data), nil
}

func (s *ExportService) artifact(filename, contentType string, data []byte) *Artifact {
	s.logger.Debug("Export artifact built",
		slog.String("filename", filename),
		slog.Int("bytes", len(data)))

	return &Artifact{
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	}
}
