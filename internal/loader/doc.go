// Package loader normalizes every supported data source into the canonical
// three-category dataset: Excel workbooks, wide delimited files, remote URLs,
// and Google Sheets documents all funnel through the same grid parsing and
// shape validation.
//
// Loaders return explicit errors and never substitute sample data; the
// fallback policy belongs to the service layer, which decides what a failed
// load means for the running process.
package loader
