package http

import (
	"context"

	"esgboard/internal/services"
	"esgboard/pkg/contracts/domain"
)

// MetricsServiceInterface defines the interface for metric view operations
type MetricsServiceInterface interface {
	Categories(ctx context.Context) []services.CategoryInfo
	View(ctx context.Context, req services.ViewRequest) (*domain.FilteredView, error)
	KPIs(ctx context.Context, req services.ViewRequest) ([]domain.KPI, error)
	TableRows(ctx context.Context, req services.ViewRequest) (*services.TableDocument, error)
}
