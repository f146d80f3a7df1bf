package analytics

import (
	"gonum.org/v1/gonum/stat"
)

// Trend fits an ordinary least-squares line to a series over its index
// positions x = 0..N-1 and returns the slope and intercept. A window shorter
// than two points has no defined slope and yields a flat line at the value.
func Trend(series []float64) (slope, intercept float64) {
	if len(series) == 0 {
		return 0, 0
	}
	if len(series) == 1 {
		return 0, series[0]
	}

	xs := make([]float64, len(series))
	for i := range xs {
		xs[i] = float64(i)
	}
	intercept, slope = stat.LinearRegression(xs, series, nil, false)
	return slope, intercept
}
