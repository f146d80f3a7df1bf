// Package api contains API contract definitions for the ESGBoard service.
// Version v1 represents the current stable API version.
package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
)

// validate is shared by the Bind implementations; request DTOs carry their
// rules as struct tags so transport and CLI callers validate identically.
var validate = validator.New()

// Common request parameters

// ViewQuery represents the shared query parameters of the metric views:
// a trailing window of rows and an optional subset of metric names.
type ViewQuery struct {
	Window  int      `json:"window" query:"window" validate:"omitempty,min=1"`
	Metrics []string `json:"metrics,omitempty" query:"metrics"`
}

// Dataset API Requests

// DatasetFetchRequest asks the server to download a workbook or delimited
// file from a remote URL and install it as the current dataset.
type DatasetFetchRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// Bind implements render.Binder for request validation
func (r *DatasetFetchRequest) Bind(req *http.Request) error {
	return validate.Struct(r)
}

// DatasetSheetRequest asks the server to pull a Google Sheets spreadsheet
// by ID and install it as the current dataset.
type DatasetSheetRequest struct {
	SpreadsheetID string `json:"spreadsheet_id" validate:"required,min=8"`
}

// Bind implements render.Binder for request validation
func (r *DatasetSheetRequest) Bind(req *http.Request) error {
	return validate.Struct(r)
}

// Chart API Requests

// ChartRenderRequest selects the chart style and data slice to render.
// An empty kind falls back to the line chart.
type ChartRenderRequest struct {
	Kind      string   `json:"kind" validate:"omitempty,oneof=Line Bar Area Scatter"`
	ShowGoals bool     `json:"show_goals"`
	ShowTrend bool     `json:"show_trend"`
	Window    int      `json:"window" validate:"omitempty,min=1"`
	Metrics   []string `json:"metrics,omitempty"`
}

// Bind implements render.Binder for request validation
func (r *ChartRenderRequest) Bind(req *http.Request) error {
	return validate.Struct(r)
}
