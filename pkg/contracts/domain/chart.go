package domain

import (
	"time"
)

// ChartKind selects the visualization style.
type ChartKind string

const (
	ChartLine    ChartKind = "Line"
	ChartBar     ChartKind = "Bar"
	ChartArea    ChartKind = "Area"
	ChartScatter ChartKind = "Scatter"
)

// ChartKinds returns the supported kinds in menu order.
func ChartKinds() []ChartKind {
	return []ChartKind{ChartLine, ChartBar, ChartArea, ChartScatter}
}

// ParseChartKind resolves a chart kind name.
func ParseChartKind(s string) (ChartKind, bool) {
	for _, k := range ChartKinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// ChartSeries is one plotted metric over the shared date axis.
type ChartSeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// GoalLine is a horizontal reference line at a metric's target value.
type GoalLine struct {
	Metric string  `json:"metric"`
	Label  string  `json:"label"`
	Value  float64 `json:"value"`
}

// TrendLine is the least-squares fit for one metric over index positions
// x = 0..N-1, drawn as a dashed overlay. Y at position i is
// Intercept + Slope*i.
type TrendLine struct {
	Metric    string  `json:"metric"`
	Label     string  `json:"label"`
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// ChartSpec is the complete rendering request for one chart: series, goal
// lines, and trend overlays against the shared timestamp axis.
type ChartSpec struct {
	Title  string        `json:"title"`
	Kind   ChartKind     `json:"kind"`
	Dates  []time.Time   `json:"dates"`
	Series []ChartSeries `json:"series"`
	Goals  []GoalLine    `json:"goals,omitempty"`
	Trends []TrendLine   `json:"trends,omitempty"`
}

// Rows returns the number of x-axis positions.
func (s *ChartSpec) Rows() int {
	if s == nil {
		return 0
	}
	return len(s.Dates)
}
