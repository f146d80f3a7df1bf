package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"esgboard/internal/config"
	"esgboard/internal/infrastructure"
	"esgboard/internal/loader"
	"esgboard/internal/services"
	"esgboard/internal/validation"
	"esgboard/pkg/contracts/domain"
)

func main() {
	source := flag.String("source", "synthetic", "dataset source: synthetic, a local .xlsx/.csv file, or an http(s) URL")
	category := flag.String("category", "environmental", "ESG category: environmental, social, or governance")
	window := flag.Int("window", 0, "number of most recent months to include (0 = full history)")
	metrics := flag.String("metrics", "", "comma-separated metric names (empty = first three columns)")
	chartKind := flag.String("chart", "Line", "chart style: Line, Bar, Area, or Scatter")
	showGoals := flag.Bool("goals", true, "draw goal lines on the chart")
	showTrend := flag.Bool("trend", false, "draw trend lines on the chart")
	outputDir := flag.String("out", "exports", "output directory for export files")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Every log line of a run shares one correlation ID so exported files
	// can be matched to the run that produced them.
	ctx := infrastructure.EnsureTraceID(context.Background())
	slog.SetDefault(infrastructure.LoggerWithContext(ctx))

	cat, ok := domain.ParseCategory(*category)
	if !ok {
		slog.Error("Unknown category", "category", *category,
			"hint", "use environmental, social, or governance")
		os.Exit(1)
	}

	kind, ok := domain.ParseChartKind(*chartKind)
	if !ok {
		slog.Error("Unknown chart kind", "chart", *chartKind,
			"hint", "use Line, Bar, Area, or Scatter")
		os.Exit(1)
	}

	// Wire the pipeline the same way the server does, minus the hub and
	// metrics instruments.
	datasetService := services.NewDatasetService(loader.New(cfg.Loader, slog.Default()), nil, nil, slog.Default())
	metricsService := services.NewMetricsService(datasetService, slog.Default())
	exportService := services.NewExportService(metricsService, cfg.Export, nil, slog.Default())

	// Install the requested source. Load never fails: a bad file or URL is
	// downgraded to a warning and the sample dataset is substituted.
	req := buildLoadRequest(*source, cfg)
	ds, warnings, err := datasetService.Load(ctx, req)
	if err != nil {
		slog.Error("Dataset load aborted", "error", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		slog.Warn(w)
	}
	slog.Info("Dataset installed",
		"source", string(ds.Source),
		"period", ds.Period,
		"rows", ds.Rows())

	viewReq := services.ViewRequest{
		Category: cat,
		Window:   *window,
		Metrics:  splitMetrics(*metrics),
	}

	// KPI table
	kpis, err := metricsService.KPIs(ctx, viewReq)
	if err != nil {
		slog.Error("Failed to compute KPIs", "category", string(cat), "error", err)
		os.Exit(1)
	}

	fmt.Printf("\n=== %s KPIs (%s, %d rows) ===\n", strings.ToUpper(string(cat)), ds.Period, ds.Rows())
	if err := printKPITable(kpis); err != nil {
		slog.Error("Failed to render KPI table", "error", err)
		os.Exit(1)
	}

	// Export artifacts
	chartReq := services.ChartRequest{
		ViewRequest: viewReq,
		Kind:        kind,
		ShowGoals:   *showGoals,
		ShowTrend:   *showTrend,
	}

	artifacts := make([]*services.Artifact, 0, 3)

	csvArtifact, err := exportService.CSV(ctx, viewReq)
	if err != nil {
		slog.Error("Failed to build CSV export", "error", err)
		os.Exit(1)
	}
	artifacts = append(artifacts, csvArtifact)

	xlsxArtifact, err := exportService.Spreadsheet(ctx, viewReq)
	if err != nil {
		slog.Error("Failed to build XLSX export", "error", err)
		os.Exit(1)
	}
	artifacts = append(artifacts, xlsxArtifact)

	pngArtifact, err := exportService.ChartPNG(ctx, chartReq)
	if err != nil {
		slog.Error("Failed to render chart", "error", err)
		os.Exit(1)
	}
	artifacts = append(artifacts, pngArtifact)

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		slog.Error("Failed to create output directory", "dir", *outputDir, "error", err)
		os.Exit(1)
	}

	for _, artifact := range artifacts {
		path := filepath.Join(*outputDir, artifact.Filename)
		if err := os.WriteFile(path, artifact.Data, 0644); err != nil {
			slog.Error("Failed to write export file", "path", path, "error", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s (%d bytes)\n", path, len(artifact.Data))
	}

	slog.Info("Exports complete",
		"category", string(cat),
		"files", len(artifacts),
		"dir", *outputDir)
}

// buildLoadRequest maps the -source flag onto a loader request. Unreadable
// local files degrade to the synthetic source here; everything else fails
// inside the loader and is handled by the dataset service's fallback policy.
func buildLoadRequest(source string, cfg *config.Config) loader.Request {
	switch {
	case source == "" || strings.EqualFold(source, "synthetic"):
		return loader.Request{Kind: domain.SourceSynthetic}

	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		return loader.Request{Kind: domain.SourceRemoteFetch, URL: source}

	default:
		uploads := validation.NewUploadValidator(cfg.Loader.MaxUploadBytes, slog.Default())
		kind, err := uploads.ValidateSourceFile(source)
		if err != nil {
			slog.Warn("Source file rejected, sample data will be used",
				"file", source, "error", err)
			return loader.Request{Kind: domain.SourceSynthetic}
		}

		payload, err := os.ReadFile(source)
		if err != nil {
			slog.Warn("Failed to read source file, sample data will be used",
				"file", source, "error", err)
			return loader.Request{Kind: domain.SourceSynthetic}
		}

		return loader.Request{
			Kind:     kind,
			Payload:  payload,
			Filename: filepath.Base(source),
		}
	}
}

// splitMetrics parses the comma-separated -metrics flag.
func splitMetrics(raw string) []string {
	if raw == "" {
		return nil
	}
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// printKPITable renders the KPI summary in the dashboard's card layout:
// current value, goal, percent change, and the goal marker.
func printKPITable(kpis []domain.KPI) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Metric", "Current", "Goal", "Change", "Status"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, k := range kpis {
		data = append(data, []string{
			k.Metric,
			fmt.Sprintf("%.1f", k.Current),
			fmt.Sprintf("%.1f", k.Target),
			fmt.Sprintf("%+.1f%%", k.PctChange),
			statusMarker(k),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// statusMarker mirrors the dashboard's goal badges.
func statusMarker(k domain.KPI) string {
	if k.Met {
		return "✅ met"
	}
	return "⚠️ missed"
}
