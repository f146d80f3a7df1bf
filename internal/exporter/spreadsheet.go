package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"esgboard/internal/dataset"
	apperrors "esgboard/internal/errors"
	"esgboard/pkg/contracts/domain"
)

// Spreadsheet renders a filtered view as a single-sheet workbook with the
// same shape as the CSV export. Numeric cells carry the one-decimal-rounded
// values so the workbook matches what the dashboard displays.
func Spreadsheet(view *domain.FilteredView, sheetName string) ([]byte, error) {
	if view == nil {
		return nil, apperrors.NewAppValidationError("a filtered view is required")
	}
	if sheetName == "" {
		sheetName = string(view.Category)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, apperrors.NewInternalAppError("failed to name export sheet", err)
	}

	header := make([]interface{}, 0, len(view.Metrics)+1)
	header = append(header, dataset.DateColumn)
	for _, m := range view.Metrics {
		header = append(header, m)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, apperrors.NewInternalAppError("failed to write export header", err)
	}

	for i, date := range view.Dates {
		row := make([]interface{}, 0, len(view.Metrics)+1)
		row = append(row, formatDate(date))
		for _, m := range view.Metrics {
			series := view.Values[m]
			if i >= len(series) {
				return nil, apperrors.NewInternalAppError(
					fmt.Sprintf("series %s is shorter than the date axis", m), nil)
			}
			row = append(row, roundValue(series[i]))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, apperrors.NewInternalAppError("failed to address export row", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, apperrors.NewInternalAppError(fmt.Sprintf("failed to write export row %d", i+1), err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, apperrors.NewInternalAppError("failed to encode workbook", err)
	}
	return buf.Bytes(), nil
}
