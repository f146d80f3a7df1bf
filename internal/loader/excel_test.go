package loader

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"esgboard/internal/config"
	"esgboard/internal/dataset"
	apperrors "esgboard/internal/errors"
	"esgboard/pkg/contracts/domain"
)

func testLoaderConfig() config.LoaderConfig {
	return config.LoaderConfig{
		FetchTimeout:   2 * time.Second,
		MaxUploadBytes: 10 << 20,
		MaxFetchBytes:  10 << 20,
	}
}

// buildWorkbook writes the given grids into an in-memory workbook, one sheet
// per name in order.
func buildWorkbook(t *testing.T, names []string, grids map[string][][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for _, name := range names {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for r, row := range grids[name] {
			for c, cell := range row {
				axis, err := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(name, axis, cell))
			}
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func sampleGrids() map[string][][]interface{} {
	return map[string][][]interface{}{
		"Environmental": {
			{"Date", "CO2 Emissions (tons)", "Energy Consumption (MWh)"},
			{"2023-01-31", 1.2, 4.5},
			{"2023-02-28", 2.4, 9.1},
			{"2023-03-31", 3.8, 13.0},
		},
		"Social": {
			{"Date", "Safety Incidents"},
			{"2023-01-31", 1},
			{"2023-02-28", 2},
			{"2023-03-31", 2},
		},
		"Governance": {
			{"Date", "Transparency Score"},
			{"2023-01-31", 81.5},
			{"2023-02-28", 84.5},
			{"2023-03-31", 88.0},
		},
		"Targets": {
			{"Metric", "Environmental", "Social", "Governance"},
			{"CO2 Emissions (tons)", 1.0, "", ""},
			{"Safety Incidents", "", 0, ""},
			{"Transparency Score", "", "", 90},
		},
	}
}

func TestLoadWorkbook(t *testing.T) {
	payload := buildWorkbook(t, dataset.RequiredSheets(), sampleGrids())

	l := New(testLoaderConfig(), nil)
	result, err := l.Load(context.Background(), Request{
		Kind:     domain.SourceSpreadsheetUpload,
		Payload:  payload,
		Filename: "esg.xlsx",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)

	ds := result.Dataset
	assert.Equal(t, domain.SourceSpreadsheetUpload, ds.Source)
	assert.Equal(t, "2023-01-31 to 2023-03-31", ds.Period)
	assert.Len(t, ds.Fingerprint, 16)
	assert.False(t, ds.LoadedAt.IsZero())

	env, ok := ds.Table(domain.CategoryEnvironmental)
	require.True(t, ok)
	assert.Equal(t, []string{"CO2 Emissions (tons)", "Energy Consumption (MWh)"}, env.Metrics)
	require.Equal(t, 3, env.Rows())
	assert.Equal(t, time.Date(2023, time.February, 28, 0, 0, 0, 0, time.UTC), env.Dates[1])
	assert.InDeltaSlice(t, []float64{1.2, 2.4, 3.8}, env.Values["CO2 Emissions (tons)"], 1e-9)

	soc, ok := ds.Table(domain.CategorySocial)
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{1, 2, 2}, soc.Values["Safety Incidents"], 1e-9)

	assert.InDelta(t, 1.0, ds.TargetsFor(domain.CategoryEnvironmental).Value("CO2 Emissions (tons)"), 1e-9)
	assert.InDelta(t, 0.0, ds.TargetsFor(domain.CategorySocial).Value("Safety Incidents"), 1e-9)
	assert.InDelta(t, 90.0, ds.TargetsFor(domain.CategoryGovernance).Value("Transparency Score"), 1e-9)
}

func TestLoadWorkbookMissingSheets(t *testing.T) {
	payload := buildWorkbook(t, []string{"Environmental", "Social"}, sampleGrids())

	l := New(testLoaderConfig(), nil)
	_, err := l.Load(context.Background(), Request{
		Kind:    domain.SourceSpreadsheetUpload,
		Payload: payload,
	})

	var schemaErr *apperrors.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"Governance", "Targets"}, schemaErr.Missing)
}

func TestLoadWorkbookBadCell(t *testing.T) {
	grids := sampleGrids()
	grids["Governance"][2][1] = "confidential"
	payload := buildWorkbook(t, dataset.RequiredSheets(), grids)

	l := New(testLoaderConfig(), nil)
	_, err := l.Load(context.Background(), Request{
		Kind:    domain.SourceSpreadsheetUpload,
		Payload: payload,
	})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeParsing, appErr.Type)
	assert.Contains(t, appErr.Message, "Governance")
}

func TestLoadWorkbookGarbageBytes(t *testing.T) {
	l := New(testLoaderConfig(), nil)
	_, err := l.Load(context.Background(), Request{
		Kind:    domain.SourceSpreadsheetUpload,
		Payload: []byte("this is not a workbook"),
	})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeParsing, appErr.Type)
}
