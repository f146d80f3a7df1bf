package http

import (
	"context"

	"esgboard/internal/loader"
	"esgboard/internal/services"
	"esgboard/pkg/contracts/domain"
)

// DatasetServiceInterface defines the interface for dataset lifecycle operations
type DatasetServiceInterface interface {
	Load(ctx context.Context, req loader.Request) (*domain.Dataset, []string, error)
	Summary() services.DatasetSummary
}
