package loader

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/blake2b"

	"esgboard/internal/config"
	"esgboard/internal/dataset"
	apperrors "esgboard/internal/errors"
	"esgboard/pkg/contracts/domain"
)

// Request selects a source kind and carries the inputs that kind needs.
// Payload holds uploaded bytes for the spreadsheet and delimited kinds;
// URL and SpreadsheetID drive the remote kinds.
type Request struct {
	Kind          domain.SourceKind
	Payload       []byte
	Filename      string
	URL           string
	SpreadsheetID string
}

// LoadResult is a completed load: the normalized dataset plus any non-fatal
// notes the user should see, such as substituted target values.
type LoadResult struct {
	Dataset  *domain.Dataset
	Warnings []string
}

// Loader turns raw source material into datasets. It is safe for concurrent
// use; each Load call works on its own buffers.
type Loader struct {
	cfg    config.LoaderConfig
	client *http.Client
	logger *slog.Logger
}

// New creates a loader with the given ingestion limits.
func New(cfg config.LoaderConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.FetchTimeout},
		logger: logger,
	}
}

// Load dispatches on the request kind and returns the normalized dataset.
// Errors carry the taxonomy the service layer maps to warnings: SchemaError
// for missing sections, parsing errors for malformed cells, network errors
// for fetch failures.
func (l *Loader) Load(ctx context.Context, req Request) (*LoadResult, error) {
	start := time.Now()

	var (
		result *LoadResult
		err    error
	)
	switch req.Kind {
	case domain.SourceSynthetic:
		result = &LoadResult{Dataset: dataset.Default()}
	case domain.SourceSpreadsheetUpload:
		result, err = l.parseWorkbook(req.Payload, domain.SourceSpreadsheetUpload)
	case domain.SourceDelimitedUpload:
		result, err = l.parseDelimited(req.Payload, domain.SourceDelimitedUpload)
	case domain.SourceRemoteFetch:
		result, err = l.fetchRemote(ctx, req.URL)
	case domain.SourceSheetsFetch:
		result, err = l.fetchSheet(ctx, req.SpreadsheetID)
	default:
		err = apperrors.NewAppValidationError(fmt.Sprintf("unsupported source kind %q", req.Kind))
	}
	if err != nil {
		l.logger.Error("Dataset load failed",
			slog.String("kind", string(req.Kind)),
			slog.String("file", req.Filename),
			slog.String("error", err.Error()))
		return nil, err
	}

	l.logger.Info("Dataset loaded",
		slog.String("source", string(result.Dataset.Source)),
		slog.String("fingerprint", result.Dataset.Fingerprint),
		slog.String("period", result.Dataset.Period),
		slog.Int("rows", result.Dataset.Rows()),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

// Fingerprint returns the first 16 hex characters of the BLAKE2b-256 digest
// of the source bytes, stored on loaded datasets for provenance.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// assemble finalizes a parsed dataset: period label from the shared axis,
// provenance stamp, warnings attached.
func assemble(tables map[domain.Category]*domain.Table, targets map[domain.Category]domain.TargetMap, source domain.SourceKind, fingerprint string, warnings []string) *LoadResult {
	ds := &domain.Dataset{
		Tables:      tables,
		Targets:     targets,
		Source:      source,
		Period:      periodLabel(tables),
		LoadedAt:    time.Now().UTC(),
		Fingerprint: fingerprint,
		Warnings:    warnings,
	}
	return &LoadResult{Dataset: ds, Warnings: warnings}
}

// periodLabel renders the covered date range, e.g. "2023-01-31 to 2025-03-31".
func periodLabel(tables map[domain.Category]*domain.Table) string {
	for _, c := range domain.Categories() {
		t, ok := tables[c]
		if !ok || t.Rows() == 0 {
			continue
		}
		first := t.Dates[0].Format("2006-01-02")
		last := t.Dates[t.Rows()-1].Format("2006-01-02")
		return first + " to " + last
	}
	return ""
}
