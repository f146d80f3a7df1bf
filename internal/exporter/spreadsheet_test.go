package exporter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"esgboard/internal/dataset"
	"esgboard/pkg/contracts/domain"
)

func TestSpreadsheetShape(t *testing.T) {
	out, err := Spreadsheet(testView(t), "Environmental")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Environmental"}, f.GetSheetList())

	rows, err := f.GetRows("Environmental")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"Date", "CO2 Emissions (tons)", "Waste Recycled (%)"}, rows[0])
	assert.Equal(t, "2023-01-31", rows[1][0])
	assert.Equal(t, "1.2", rows[1][1])
	assert.Equal(t, "72.5", rows[2][2])
}

func TestSpreadsheetDefaultSheetName(t *testing.T) {
	out, err := Spreadsheet(testView(t), "")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Environmental"}, f.GetSheetList())
}

func TestSpreadsheetEmptyMetrics(t *testing.T) {
	view := &domain.FilteredView{
		Category: domain.CategoryGovernance,
		Dates:    dataset.MonthEndDates(2),
		Values:   map[string][]float64{},
	}

	out, err := Spreadsheet(view, "")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Governance")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Date"}, rows[0])
}

func TestSpreadsheetNilView(t *testing.T) {
	_, err := Spreadsheet(nil, "")
	assert.Error(t, err)
}
