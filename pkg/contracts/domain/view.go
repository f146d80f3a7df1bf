package domain

import (
	"time"
)

// FilteredView is a read-only projection of one category table: the most
// recent window of rows restricted to a metric subset. Its slices are copies,
// never aliases of the source Dataset.
type FilteredView struct {
	Category Category             `json:"category"`
	Dates    []time.Time          `json:"dates"`
	Metrics  []string             `json:"metrics"`
	Values   map[string][]float64 `json:"values"`
}

// Rows returns the window length.
func (v *FilteredView) Rows() int {
	if v == nil {
		return 0
	}
	return len(v.Dates)
}

// Series returns the value column for a metric in the view.
func (v *FilteredView) Series(metric string) ([]float64, bool) {
	if v == nil {
		return nil, false
	}
	s, ok := v.Values[metric]
	return s, ok
}

// KPI is the derived per-metric summary for the selected window.
type KPI struct {
	Metric        string  `json:"metric"`
	Current       float64 `json:"current"`
	Target        float64 `json:"target"`
	PctChange     float64 `json:"pct_change"`
	LowerIsBetter bool    `json:"lower_is_better"`
	Met           bool    `json:"met"`
}
