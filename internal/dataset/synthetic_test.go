package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgboard/pkg/contracts/domain"
)

func TestMonthEndDates(t *testing.T) {
	dates := MonthEndDates(SyntheticRows)
	require.Len(t, dates, 27)

	assert.Equal(t, time.Date(2023, time.January, 31, 0, 0, 0, 0, time.UTC), dates[0])
	assert.Equal(t, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC), dates[26])

	for i, d := range dates {
		// A month-end date is followed by the 1st of the next month.
		assert.Equal(t, 1, d.AddDate(0, 0, 1).Day(), "date %d (%s) is not a month end", i, d)
		if i > 0 {
			assert.True(t, d.After(dates[i-1]), "dates must be strictly increasing at %d", i)
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	first := Generate()
	second := Generate()

	for _, c := range domain.Categories() {
		tableA, ok := first.Table(c)
		require.True(t, ok)
		tableB, ok := second.Table(c)
		require.True(t, ok)

		assert.Equal(t, tableA.Dates, tableB.Dates)
		assert.Equal(t, tableA.Metrics, tableB.Metrics)
		for _, m := range tableA.Metrics {
			assert.Equal(t, tableA.Values[m], tableB.Values[m], "metric %s diverged", m)
		}
	}
}

func TestDefaultIsCached(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestGenerateShape(t *testing.T) {
	ds := Generate()

	assert.Equal(t, domain.SourceSynthetic, ds.Source)
	assert.Equal(t, SamplePeriodLabel, ds.Period)
	require.Len(t, ds.Tables, 3)

	for _, c := range domain.Categories() {
		table, ok := ds.Table(c)
		require.True(t, ok, "missing table for %s", c)
		assert.Equal(t, 27, table.Rows())
		assert.Equal(t, Metrics(c), table.Metrics)

		for _, m := range table.Metrics {
			series, ok := table.Series(m)
			require.True(t, ok)
			require.Len(t, series, 27)
		}
	}
}

func TestGenerateSeriesModels(t *testing.T) {
	ds := Generate()

	t.Run("cumulative metrics never decrease", func(t *testing.T) {
		table, _ := ds.Table(domain.CategoryEnvironmental)
		series, ok := table.Series("CO2 Emissions (tons)")
		require.True(t, ok)
		for i := 1; i < len(series); i++ {
			assert.GreaterOrEqual(t, series[i], series[i-1])
		}
	})

	t.Run("count metrics stay non-negative", func(t *testing.T) {
		table, _ := ds.Table(domain.CategoryGovernance)
		series, ok := table.Series("Compliance Violations")
		require.True(t, ok)
		for _, v := range series {
			assert.GreaterOrEqual(t, v, 0.0)
		}
	})

	t.Run("percentage metrics stay within bounds", func(t *testing.T) {
		table, _ := ds.Table(domain.CategoryEnvironmental)
		series, ok := table.Series("Waste Recycled (%)")
		require.True(t, ok)
		for _, v := range series {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	})
}

func TestGenerateTargetsMatchSchema(t *testing.T) {
	ds := Generate()

	for _, c := range domain.Categories() {
		assert.Equal(t, Targets(c), ds.TargetsFor(c))
	}
}

func TestModelsCoverEveryMetric(t *testing.T) {
	for _, c := range domain.Categories() {
		for _, m := range Metrics(c) {
			_, ok := models[m]
			assert.True(t, ok, "no noise model for %s", m)
		}
	}
}
