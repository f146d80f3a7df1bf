package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"esgboard/internal/dataset"
	"esgboard/internal/infrastructure"
	"esgboard/internal/loader"
	"esgboard/pkg/contracts/domain"
	"esgboard/pkg/contracts/events"
)

// DatasetLoader runs one load request. *loader.Loader satisfies it.
type DatasetLoader interface {
	Load(ctx context.Context, req loader.Request) (*loader.LoadResult, error)
}

// EventBroadcaster pushes dataset lifecycle events to connected clients.
// The websocket hub satisfies it; a nil broadcaster disables pushes.
type EventBroadcaster interface {
	BroadcastDatasetEvent(msgType events.MessageType, data interface{})
}

// DatasetSummary describes the current dataset for API consumers.
type DatasetSummary struct {
	Source      domain.SourceKind `json:"source"`
	Period      string            `json:"period"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Rows        int               `json:"rows"`
	LoadedAt    time.Time         `json:"loaded_at"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// DatasetService owns the current dataset and the load policy around it.
// Loads swap the dataset pointer whole under a lock; readers always get an
// immutable snapshot. Loader failures are converted into a warning plus a
// synthetic substitution, so Current never returns nil and no load is fatal.
type DatasetService struct {
	loader      DatasetLoader
	broadcaster EventBroadcaster
	metrics     *infrastructure.BusinessMetrics
	logger      *slog.Logger

	mu      sync.RWMutex
	current *domain.Dataset
}

// NewDatasetService creates a dataset service bootstrapped with the sample
// dataset. broadcaster and metrics may be nil.
func NewDatasetService(ldr DatasetLoader, broadcaster EventBroadcaster, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}

	s := &DatasetService{
		loader:      ldr,
		broadcaster: broadcaster,
		metrics:     metrics,
		logger:      logger,
		current:     dataset.Default(),
	}

	logger.Info("DatasetService initialized with sample dataset",
		slog.String("period", s.current.Period),
		slog.Int("rows", s.current.Rows()))

	return s
}

// Current returns the active dataset. It never returns nil: the service is
// bootstrapped with the sample dataset and failed loads substitute it.
func (s *DatasetService) Current() *domain.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Summary describes the active dataset's provenance.
func (s *DatasetService) Summary() DatasetSummary {
	ds := s.Current()
	return DatasetSummary{
		Source:      ds.Source,
		Period:      ds.Period,
		Fingerprint: ds.Fingerprint,
		Rows:        ds.Rows(),
		LoadedAt:    ds.LoadedAt,
		Warnings:    ds.Warnings,
	}
}

// Load runs the loader and installs the result as the current dataset. Any
// loader error is downgraded to a warning naming the cause and the sample
// dataset is substituted whole, never partially. The returned warnings are
// the ones attached to the installed dataset. The error return is reserved
// for abandoned requests: when the caller's context is done the current
// dataset is left untouched and the context error is returned.
func (s *DatasetService) Load(ctx context.Context, req loader.Request) (*domain.Dataset, []string, error) {
	start := time.Now()

	result, err := s.loader.Load(ctx, req)

	var (
		ds       *domain.Dataset
		warnings []string
		fallback bool
	)
	switch {
	case err != nil && ctx.Err() != nil:
		return nil, nil, ctx.Err()
	case err != nil:
		fallback = true
		warnings = []string{FallbackWarning(req.Kind, err)}
		ds = fallbackDataset(warnings)
		s.logger.WarnContext(ctx, "Dataset load failed, substituting sample data",
			slog.String("source", string(req.Kind)),
			slog.String("error", err.Error()))
	default:
		ds = result.Dataset
		warnings = result.Warnings
	}

	s.mu.Lock()
	s.current = ds
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Dataset installed",
		slog.String("source", string(ds.Source)),
		slog.String("period", ds.Period),
		slog.String("fingerprint", ds.Fingerprint),
		slog.Int("rows", ds.Rows()),
		slog.Int("warnings", len(warnings)),
		slog.Bool("fallback", fallback),
		slog.Duration("duration", time.Since(start)))

	infrastructure.RecordDatasetLoadMetrics(ctx, s.metrics, string(req.Kind), time.Since(start), fallback, len(warnings))
	s.broadcastLifecycle(fallback, ds)

	return ds, warnings, nil
}

// FallbackWarning builds the user-visible note attached when a load fails
// and sample data is substituted.
func FallbackWarning(kind domain.SourceKind, err error) string {
	return fmt.Sprintf("Load from %s failed: %v. Sample data is shown instead.", kind, err)
}

// fallbackDataset wraps the shared sample tables in a dataset labeled as a
// fallback. Tables and targets are shared read-only with the sample dataset.
func fallbackDataset(warnings []string) *domain.Dataset {
	base := dataset.Default()
	return &domain.Dataset{
		Tables:   base.Tables,
		Targets:  base.Targets,
		Source:   domain.SourceSynthetic,
		Period:   dataset.FallbackPeriodLabel,
		LoadedAt: time.Now().UTC(),
		Warnings: warnings,
	}
}

func (s *DatasetService) broadcastLifecycle(fallback bool, ds *domain.Dataset) {
	if s.broadcaster == nil {
		return
	}

	msgType := events.MessageTypeDatasetLoaded
	if fallback {
		msgType = events.MessageTypeDatasetFallback
	}

	s.broadcaster.BroadcastDatasetEvent(msgType, events.DatasetSnapshot{
		Source:      string(ds.Source),
		Period:      ds.Period,
		Fingerprint: ds.Fingerprint,
		Rows:        ds.Rows(),
		LoadedAt:    ds.LoadedAt,
		Warnings:    ds.Warnings,
	})
}
