package loader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"esgboard/internal/dataset"
	apperrors "esgboard/internal/errors"
	"esgboard/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SubstitutedTargetsWarning is attached to every delimited load; the wide
// format carries no Targets section, so the sample goal values stand in.
const SubstitutedTargetsWarning = "Delimited sources carry no targets; sample goal values were applied."

// parseDelimited normalizes one wide delimited table: a Date column plus
// <Category>_<Metric> columns, split by prefix into per-category tables
// sharing the date axis. Columns matching no category prefix are ignored.
func (l *Loader) parseDelimited(data []byte, source domain.SourceKind) (*LoadResult, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to parse delimited data", err)
	}
	records = trimEmptyRows(records)
	if len(records) < 2 {
		return nil, apperrors.NewParsingError("delimited data has no data rows", nil)
	}

	header := records[0]
	if err := ValidateWideShape(header); err != nil {
		return nil, err
	}

	type metricCol struct {
		category domain.Category
		metric   string
		col      int
	}
	dateCol := -1
	var cols []metricCol
	for i, name := range header {
		trimmed := strings.TrimSpace(name)
		if dateCol < 0 && strings.EqualFold(trimmed, dataset.DateColumn) {
			dateCol = i
			continue
		}
		if c, metric, ok := dataset.SplitWideColumn(trimmed); ok {
			cols = append(cols, metricCol{category: c, metric: metric, col: i})
		}
	}

	tables := make(map[domain.Category]*domain.Table, 3)
	for _, mc := range cols {
		t, ok := tables[mc.category]
		if !ok {
			t = &domain.Table{Values: make(map[string][]float64)}
			tables[mc.category] = t
		}
		t.Metrics = append(t.Metrics, mc.metric)
		t.Values[mc.metric] = make([]float64, 0, len(records)-1)
	}

	var (
		dates []time.Time
		prev  time.Time
	)
	for i, row := range records[1:] {
		rowNum := i + 2
		if isEmptyRow(row) {
			continue
		}
		date, err := ParseDate(row[dateCol])
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("row %d: %v", rowNum, err), nil)
		}
		if len(dates) > 0 && !date.After(prev) {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("row %d: dates must be strictly increasing", rowNum), nil)
		}
		prev = date
		dates = append(dates, date)
		for _, mc := range cols {
			v, err := parseNumber(row[mc.col])
			if err != nil {
				return nil, apperrors.NewParsingError(
					fmt.Sprintf("row %d, column %s: %v", rowNum, dataset.WideColumn(mc.category, mc.metric), err), nil)
			}
			tables[mc.category].Values[mc.metric] = append(tables[mc.category].Values[mc.metric], v)
		}
	}
	if len(dates) == 0 {
		return nil, apperrors.NewParsingError("delimited data has no data rows", nil)
	}
	for _, t := range tables {
		t.Dates = dates
	}

	warnings := []string{SubstitutedTargetsWarning}
	return assemble(tables, dataset.CanonicalTargets(), source, Fingerprint(data), warnings), nil
}
