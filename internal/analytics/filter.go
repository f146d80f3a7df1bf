package analytics

import (
	"fmt"
	"time"

	apperrors "esgboard/internal/errors"
	"esgboard/pkg/contracts/domain"
)

// Project derives the working view for one category: the most recent
// windowSize rows restricted to the selected metrics, in the order requested.
// windowSize is clamped to [1, totalRows]. An empty metric selection yields a
// valid zero-column view. The returned view copies dates and values, so the
// source dataset is never aliased or mutated.
func Project(ds *domain.Dataset, category domain.Category, windowSize int, metrics []string) (*domain.FilteredView, error) {
	table, ok := ds.Table(category)
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("category %q", category))
	}

	rows := table.Rows()
	if windowSize < 1 {
		windowSize = 1
	}
	if windowSize > rows {
		windowSize = rows
	}
	start := rows - windowSize

	dates := make([]time.Time, windowSize)
	copy(dates, table.Dates[start:])

	view := &domain.FilteredView{
		Category: category,
		Dates:    dates,
		Metrics:  make([]string, 0, len(metrics)),
		Values:   make(map[string][]float64, len(metrics)),
	}

	for _, metric := range metrics {
		if _, seen := view.Values[metric]; seen {
			continue
		}
		src, ok := table.Series(metric)
		if !ok {
			return nil, apperrors.NewAppValidationError(
				fmt.Sprintf("unknown metric %q in category %q", metric, category))
		}
		values := make([]float64, windowSize)
		copy(values, src[start:])
		view.Metrics = append(view.Metrics, metric)
		view.Values[metric] = values
	}

	return view, nil
}
