package http

import (
	"context"

	"esgboard/internal/services"
)

// ExportServiceInterface defines the interface for artifact generation
type ExportServiceInterface interface {
	CSV(ctx context.Context, req services.ViewRequest) (*services.Artifact, error)
	Spreadsheet(ctx context.Context, req services.ViewRequest) (*services.Artifact, error)
	ChartPNG(ctx context.Context, req services.ChartRequest) (*services.Artifact, error)
	Bundle(ctx context.Context, req services.ChartRequest) (*services.Artifact, error)
}
