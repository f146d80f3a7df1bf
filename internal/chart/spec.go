package chart

import (
	"fmt"
	"time"

	"esgboard/internal/analytics"
	apperrors "esgboard/internal/errors"
	"esgboard/pkg/contracts/domain"
)

// Options select the visualization style and overlays for one chart.
type Options struct {
	Kind      domain.ChartKind
	ShowGoals bool
	ShowTrend bool
}

// titleSuffixes carry the original dashboard's heading wording per kind.
var titleSuffixes = map[domain.ChartKind]string{
	domain.ChartLine:    "Trends",
	domain.ChartBar:     "Comparisons",
	domain.ChartArea:    "Cumulative",
	domain.ChartScatter: "Points",
}

// Title renders the chart heading for a category and kind, e.g.
// "Environmental Trends".
func Title(category domain.Category, kind domain.ChartKind) string {
	suffix, ok := titleSuffixes[kind]
	if !ok {
		suffix = "Trends"
	}
	return fmt.Sprintf("%s %s", category, suffix)
}

// BuildSpec assembles the rendering request for a view: one series per
// metric in view order, optionally a horizontal goal line per metric at its
// target and a dashed least-squares trend overlay per metric. The spec copies
// everything it keeps, so later loads cannot disturb a chart in flight.
func BuildSpec(view *domain.FilteredView, targets domain.TargetMap, opts Options) (*domain.ChartSpec, error) {
	if view == nil {
		return nil, apperrors.NewAppValidationError("a filtered view is required")
	}
	kind := opts.Kind
	if kind == "" {
		kind = domain.ChartLine
	}
	if _, ok := titleSuffixes[kind]; !ok {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("unsupported chart kind %q", opts.Kind))
	}

	spec := &domain.ChartSpec{
		Title: Title(view.Category, kind),
		Kind:  kind,
		Dates: append([]time.Time(nil), view.Dates...),
	}
	for _, metric := range view.Metrics {
		series, ok := view.Series(metric)
		if !ok {
			continue
		}
		spec.Series = append(spec.Series, domain.ChartSeries{
			Name:   metric,
			Values: append([]float64(nil), series...),
		})
		if opts.ShowGoals {
			spec.Goals = append(spec.Goals, domain.GoalLine{
				Metric: metric,
				Label:  "Goal: " + metric,
				Value:  targets.Value(metric),
			})
		}
		if opts.ShowTrend {
			slope, intercept := analytics.Trend(series)
			spec.Trends = append(spec.Trends, domain.TrendLine{
				Metric:    metric,
				Label:     metric + " Trend",
				Slope:     slope,
				Intercept: intercept,
			})
		}
	}
	return spec, nil
}
