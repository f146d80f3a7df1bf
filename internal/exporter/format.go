package exporter

import (
	"math"
	"strconv"
	"time"
)

// formatValue renders a metric value with exactly one decimal place,
// matching the dashboard's display precision. This ensures values like 13
// appear as 13.0 in CSV.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// roundValue rounds to the same one-decimal precision for numeric workbook
// cells.
func roundValue(v float64) float64 {
	return math.Round(v*10) / 10
}

// formatDate renders a timestamp as an ISO date.
func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
