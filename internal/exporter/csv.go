package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"esgboard/internal/dataset"
	apperrors "esgboard/internal/errors"
	"esgboard/pkg/contracts/domain"
)

// CSVOptions configures CSV byte production.
type CSVOptions struct {
	// BOMPrefix adds a UTF-8 BOM so Excel recognizes the encoding.
	BOMPrefix bool
}

// CSV renders a filtered view as CSV: a Date header plus one column per
// metric in view order, one row per timestamp, values to one decimal.
func CSV(view *domain.FilteredView, opts CSVOptions) ([]byte, error) {
	if view == nil {
		return nil, apperrors.NewAppValidationError("a filtered view is required")
	}

	var buf bytes.Buffer
	if opts.BOMPrefix {
		buf.Write([]byte{0xEF, 0xBB, 0xBF})
	}

	writer := csv.NewWriter(&buf)
	header := append([]string{dataset.DateColumn}, view.Metrics...)
	if err := writer.Write(header); err != nil {
		return nil, apperrors.NewInternalAppError("failed to write csv header", err)
	}

	for i, date := range view.Dates {
		record := make([]string, 0, len(view.Metrics)+1)
		record = append(record, formatDate(date))
		for _, m := range view.Metrics {
			series := view.Values[m]
			if i >= len(series) {
				return nil, apperrors.NewInternalAppError(
					fmt.Sprintf("series %s is shorter than the date axis", m), nil)
			}
			record = append(record, formatValue(series[i]))
		}
		if err := writer.Write(record); err != nil {
			return nil, apperrors.NewInternalAppError(fmt.Sprintf("failed to write csv row %d", i+1), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, apperrors.NewInternalAppError("failed to flush csv", err)
	}
	return buf.Bytes(), nil
}
