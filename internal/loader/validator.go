package loader

import (
	"strings"

	"esgboard/internal/dataset"
	apperrors "esgboard/internal/errors"
)

// ValidateWorkbookShape checks that a workbook carries every required sheet.
// All missing sheets are reported in one SchemaError so the user can fix the
// file in a single pass; nothing is partially accepted.
func ValidateWorkbookShape(sheetNames []string) error {
	present := make(map[string]bool, len(sheetNames))
	for _, name := range sheetNames {
		present[strings.TrimSpace(name)] = true
	}

	var missing []string
	for _, required := range dataset.RequiredSheets() {
		if !present[required] {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return apperrors.NewSchemaError(missing)
	}
	return nil
}

// ValidateWideShape checks the header of a wide delimited table: a Date
// column plus at least one category-prefixed metric column. Columns that
// match no category prefix are ignored, they are not an error.
func ValidateWideShape(header []string) error {
	hasDate := false
	metricCols := 0
	for _, col := range header {
		name := strings.TrimSpace(col)
		if strings.EqualFold(name, dataset.DateColumn) {
			hasDate = true
			continue
		}
		if _, _, ok := dataset.SplitWideColumn(name); ok {
			metricCols++
		}
	}

	var missing []string
	if !hasDate {
		missing = append(missing, dataset.DateColumn)
	}
	if metricCols == 0 {
		missing = append(missing, "category metric columns")
	}
	if len(missing) > 0 {
		return apperrors.NewSchemaError(missing)
	}
	return nil
}
