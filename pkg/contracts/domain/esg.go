package domain

import (
	"strings"
	"time"
)

// Category identifies one of the three ESG metric groups.
type Category string

const (
	CategoryEnvironmental Category = "Environmental"
	CategorySocial        Category = "Social"
	CategoryGovernance    Category = "Governance"
)

// Categories returns the category list in canonical display order.
func Categories() []Category {
	return []Category{CategoryEnvironmental, CategorySocial, CategoryGovernance}
}

// ParseCategory resolves a case-insensitive category name.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories() {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// SourceKind identifies the origin of a loaded dataset.
type SourceKind string

const (
	SourceSynthetic         SourceKind = "synthetic"
	SourceSpreadsheetUpload SourceKind = "spreadsheet_upload"
	SourceDelimitedUpload   SourceKind = "delimited_upload"
	SourceRemoteFetch       SourceKind = "remote_fetch"
	SourceSheetsFetch       SourceKind = "sheets_fetch"
)

// Table holds the aligned monthly series for one category. Metrics preserves
// column order; every Values entry has the same length as Dates, and Dates is
// strictly increasing.
type Table struct {
	Dates   []time.Time          `json:"dates"`
	Metrics []string             `json:"metrics"`
	Values  map[string][]float64 `json:"values"`
}

// Rows returns the number of timestamps on the shared axis.
func (t *Table) Rows() int {
	if t == nil {
		return 0
	}
	return len(t.Dates)
}

// Series returns the value column for a metric.
func (t *Table) Series(metric string) ([]float64, bool) {
	if t == nil {
		return nil, false
	}
	v, ok := t.Values[metric]
	return v, ok
}

// HasMetric reports whether the table carries the named metric.
func (t *Table) HasMetric(metric string) bool {
	_, ok := t.Series(metric)
	return ok
}

// TargetMap maps metric names to goal values. Metrics without an entry have
// an effectively unset goal of 0.
type TargetMap map[string]float64

// Value returns the goal for a metric, defaulting to 0 when unset.
func (m TargetMap) Value(metric string) float64 {
	if m == nil {
		return 0
	}
	return m[metric]
}

// Dataset is the unit of loading: three category tables plus their target
// maps, produced together and immutable once constructed. Provenance fields
// record where the data came from; Warnings carries user-visible notes
// attached during the load (fallbacks, substituted targets).
type Dataset struct {
	Tables   map[Category]*Table    `json:"tables"`
	Targets  map[Category]TargetMap `json:"targets"`
	Source   SourceKind             `json:"source"`
	Period   string                 `json:"period"`
	LoadedAt time.Time              `json:"loaded_at"`

	// Fingerprint is a short content hash of the source bytes, empty for
	// the synthetic dataset.
	Fingerprint string   `json:"fingerprint,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Table returns the series table for a category.
func (d *Dataset) Table(c Category) (*Table, bool) {
	t, ok := d.Tables[c]
	return t, ok
}

// TargetsFor returns the target map for a category, never nil.
func (d *Dataset) TargetsFor(c Category) TargetMap {
	if m, ok := d.Targets[c]; ok {
		return m
	}
	return TargetMap{}
}

// Rows returns the shared row count, taken from the first category table.
func (d *Dataset) Rows() int {
	for _, c := range Categories() {
		if t, ok := d.Tables[c]; ok {
			return t.Rows()
		}
	}
	return 0
}
