package analytics

import (
	"esgboard/internal/dataset"
	"esgboard/pkg/contracts/domain"
)

// ComputeKPIs derives one KPI per metric in view order. Current is the last
// value of the window, percent change spans the window from its first row,
// and a zero first value is defined as 0% change. Targets default to 0 when
// unset. Attainment follows metric polarity: lower-is-better metrics are met
// at or below target, all others at or above.
func ComputeKPIs(view *domain.FilteredView, targets domain.TargetMap) []domain.KPI {
	kpis := make([]domain.KPI, 0, len(view.Metrics))
	for _, metric := range view.Metrics {
		series := view.Values[metric]
		if len(series) == 0 {
			continue
		}

		first := series[0]
		current := series[len(series)-1]

		pctChange := 0.0
		if first != 0 {
			pctChange = (current - first) / first * 100
		}

		target := targets.Value(metric)
		lower := dataset.LowerIsBetter(metric)
		met := (lower && current <= target) || (!lower && current >= target)

		kpis = append(kpis, domain.KPI{
			Metric:        metric,
			Current:       current,
			Target:        target,
			PctChange:     pctChange,
			LowerIsBetter: lower,
			Met:           met,
		})
	}
	return kpis
}
