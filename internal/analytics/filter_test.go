package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgboard/internal/dataset"
	"esgboard/pkg/contracts/domain"
)

// testDataset builds a small five-row dataset with one category so tests can
// assert exact values.
func testDataset(t *testing.T) *domain.Dataset {
	t.Helper()

	table := &domain.Table{
		Dates:   dataset.MonthEndDates(5),
		Metrics: []string{"CO2 Emissions (tons)", "Waste Recycled (%)", "Energy Consumption (MWh)"},
		Values: map[string][]float64{
			"CO2 Emissions (tons)":     {1.0, 2.0, 3.0, 4.0, 5.0},
			"Waste Recycled (%)":       {70, 72, 74, 76, 78},
			"Energy Consumption (MWh)": {10, 20, 30, 40, 50},
		},
	}

	return &domain.Dataset{
		Tables: map[domain.Category]*domain.Table{
			domain.CategoryEnvironmental: table,
		},
		Targets: map[domain.Category]domain.TargetMap{
			domain.CategoryEnvironmental: {"CO2 Emissions (tons)": 1.0},
		},
		Source: domain.SourceSynthetic,
	}
}

func TestProjectWindowClamping(t *testing.T) {
	ds := testDataset(t)

	tests := []struct {
		name     string
		window   int
		wantRows int
	}{
		{"window within range", 3, 3},
		{"window of one", 1, 1},
		{"zero clamps to one", 0, 1},
		{"negative clamps to one", -4, 1},
		{"oversized clamps to total", 99, 5},
		{"exact total", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := Project(ds, domain.CategoryEnvironmental, tt.window, []string{"CO2 Emissions (tons)"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantRows, view.Rows())
		})
	}
}

func TestProjectSelectsMostRecentRows(t *testing.T) {
	ds := testDataset(t)

	view, err := Project(ds, domain.CategoryEnvironmental, 2, []string{"Energy Consumption (MWh)"})
	require.NoError(t, err)

	assert.Equal(t, []float64{40, 50}, view.Values["Energy Consumption (MWh)"])

	table, _ := ds.Table(domain.CategoryEnvironmental)
	assert.Equal(t, table.Dates[3:], view.Dates)
}

func TestProjectMetricOrderFollowsRequest(t *testing.T) {
	ds := testDataset(t)

	requested := []string{"Waste Recycled (%)", "CO2 Emissions (tons)"}
	view, err := Project(ds, domain.CategoryEnvironmental, 3, requested)
	require.NoError(t, err)

	assert.Equal(t, requested, view.Metrics)
}

func TestProjectEmptySelection(t *testing.T) {
	ds := testDataset(t)

	view, err := Project(ds, domain.CategoryEnvironmental, 3, nil)
	require.NoError(t, err)

	assert.Empty(t, view.Metrics)
	assert.Empty(t, view.Values)
	assert.Equal(t, 3, view.Rows())
}

func TestProjectDuplicateMetricsDeduplicated(t *testing.T) {
	ds := testDataset(t)

	view, err := Project(ds, domain.CategoryEnvironmental, 3,
		[]string{"CO2 Emissions (tons)", "CO2 Emissions (tons)"})
	require.NoError(t, err)

	assert.Equal(t, []string{"CO2 Emissions (tons)"}, view.Metrics)
}

func TestProjectUnknownMetric(t *testing.T) {
	ds := testDataset(t)

	_, err := Project(ds, domain.CategoryEnvironmental, 3, []string{"Nonexistent"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nonexistent")
}

func TestProjectUnknownCategory(t *testing.T) {
	ds := testDataset(t)

	_, err := Project(ds, domain.CategorySocial, 3, nil)
	require.Error(t, err)
}

func TestProjectNeverMutatesSource(t *testing.T) {
	ds := testDataset(t)
	table, _ := ds.Table(domain.CategoryEnvironmental)
	originalValues := append([]float64(nil), table.Values["CO2 Emissions (tons)"]...)
	originalDates := append([]time.Time(nil), table.Dates...)

	view, err := Project(ds, domain.CategoryEnvironmental, 5, []string{"CO2 Emissions (tons)"})
	require.NoError(t, err)

	view.Values["CO2 Emissions (tons)"][0] = -999
	view.Dates[0] = time.Time{}

	assert.Equal(t, originalValues, table.Values["CO2 Emissions (tons)"])
	assert.Equal(t, originalDates, table.Dates)
}

func TestProjectOnSyntheticDataset(t *testing.T) {
	ds := dataset.Generate()

	view, err := Project(ds, domain.CategoryEnvironmental, 3, []string{"CO2 Emissions (tons)"})
	require.NoError(t, err)

	assert.Equal(t, 3, view.Rows())
	assert.Equal(t, []string{"CO2 Emissions (tons)"}, view.Metrics)

	table, _ := ds.Table(domain.CategoryEnvironmental)
	full, _ := table.Series("CO2 Emissions (tons)")
	assert.Equal(t, full[24:], view.Values["CO2 Emissions (tons)"])
}
