package dataset

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"esgboard/pkg/contracts/domain"
)

// Generation parameters for the sample dataset: 27 month-end timestamps from
// 2023-01-31 through 2025-03-31, drawn from a fixed-seed source so every run
// produces the same values.
const (
	syntheticSeed = 42
	SyntheticRows = 27
)

// Period labels attached to generated datasets.
const (
	SamplePeriodLabel   = "Q1 2023 - Q1 2025 (Sample Data)"
	FallbackPeriodLabel = "Q1 2023 - Q1 2025 (Sample Fallback)"
)

type noiseKind int

const (
	// noiseCumulative accumulates non-negative normal increments, scaled
	// down by a divisor. Used for metrics that only ever grow.
	noiseCumulative noiseKind = iota
	// noiseClipped draws independent normal samples clipped to [0,100].
	// Used for percentage and score metrics.
	noiseClipped
)

type noiseModel struct {
	kind  noiseKind
	mean  float64
	dev   float64
	scale float64
}

// models parameterizes the sample series per metric. Count-style metrics
// (incidents, audits, violations) accumulate increments with mean lambda and
// deviation sqrt(lambda).
var models = map[string]noiseModel{
	"CO2 Emissions (tons)":      {noiseCumulative, 1200, 150, 1000},
	"Energy Consumption (MWh)":  {noiseCumulative, 4500, 400, 1000},
	"Water Usage (m³)":          {noiseCumulative, 32000, 2500, 1000},
	"Waste Recycled (%)":        {noiseClipped, 78, 5, 1},
	"Sustainable Materials (%)": {noiseClipped, 65, 8, 1},

	"Safety Incidents":            {noiseCumulative, 0.8, sqrt(0.8), 1},
	"Employee Training (hours)":   {noiseCumulative, 2500, 300, 1000},
	"Diversity (% women)":         {noiseClipped, 32, 3, 1},
	"Community Investment ($)":    {noiseCumulative, 150000, 20000, 1000},
	"Worker Satisfaction (score)": {noiseClipped, 75, 5, 1},

	"Ethics Training (%)":   {noiseClipped, 95, 4, 1},
	"Supplier Audits":       {noiseCumulative, 2.5, sqrt(2.5), 1},
	"Board Diversity (%)":   {noiseClipped, 45, 3, 1},
	"Compliance Violations": {noiseCumulative, 0.2, sqrt(0.2), 1},
	"Transparency Score":    {noiseClipped, 85, 5, 1},
}

func sqrt(v float64) float64 { return math.Sqrt(v) }

func (m noiseModel) series(rng *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	switch m.kind {
	case noiseCumulative:
		sum := 0.0
		for i := range out {
			inc := rng.NormFloat64()*m.dev + m.mean
			if inc < 0 {
				inc = 0
			}
			sum += inc
			out[i] = sum / m.scale
		}
	case noiseClipped:
		for i := range out {
			v := rng.NormFloat64()*m.dev + m.mean
			if v < 0 {
				v = 0
			} else if v > 100 {
				v = 100
			}
			out[i] = v
		}
	}
	return out
}

// MonthEndDates returns n consecutive month-end dates starting 2023-01-31.
func MonthEndDates(n int) []time.Time {
	dates := make([]time.Time, n)
	for i := range dates {
		// Day 0 of the following month is the last day of month i.
		dates[i] = time.Date(2023, time.January+time.Month(i)+1, 0, 0, 0, 0, 0, time.UTC)
	}
	return dates
}

// Generate builds a fresh synthetic dataset. Most callers want Default,
// which computes the sequence once and reuses it.
func Generate() *domain.Dataset {
	rng := rand.New(rand.NewSource(syntheticSeed))
	dates := MonthEndDates(SyntheticRows)

	tables := make(map[domain.Category]*domain.Table, len(schemas))
	for _, c := range domain.Categories() {
		sch := schemas[c]
		table := &domain.Table{
			Dates:   dates,
			Metrics: make([]string, 0, len(sch.Metrics)),
			Values:  make(map[string][]float64, len(sch.Metrics)),
		}
		for _, metric := range sch.Metrics {
			table.Metrics = append(table.Metrics, metric)
			table.Values[metric] = models[metric].series(rng, SyntheticRows)
		}
		tables[c] = table
	}

	return &domain.Dataset{
		Tables:   tables,
		Targets:  CanonicalTargets(),
		Source:   domain.SourceSynthetic,
		Period:   SamplePeriodLabel,
		LoadedAt: time.Now().UTC(),
	}
}

var (
	defaultOnce sync.Once
	defaultSet  *domain.Dataset
)

// Default returns the process-wide synthetic dataset. The sequence is
// computed once and shared read-only thereafter.
func Default() *domain.Dataset {
	defaultOnce.Do(func() {
		defaultSet = Generate()
	})
	return defaultSet
}
