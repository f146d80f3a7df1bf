package loader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"esgboard/internal/dataset"
	apperrors "esgboard/internal/errors"
	"esgboard/pkg/contracts/domain"
)

// dateLayouts are the accepted textual date formats, tried in order.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "01/02/2006"}

// ParseDate parses a date cell: ISO date, RFC 3339, US-style, or an Excel
// serial number. The result is normalized to midnight UTC.
func ParseDate(cell string) (time.Time, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date cell")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return midnightUTC(t), nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date serial %q", s)
		}
		return midnightUTC(t), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// parseNumber parses a numeric cell, tolerating thousands separators.
func parseNumber(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, fmt.Errorf("empty cell")
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", cell)
	}
	return v, nil
}

// tableFromGrid converts one sheet grid into an aligned category table. The
// first row is the header, a Date column followed by metric names; every
// data row must carry a parseable date and one value per metric, and dates
// must be strictly increasing.
func tableFromGrid(c domain.Category, rows [][]string) (*domain.Table, error) {
	rows = trimEmptyRows(rows)
	if len(rows) < 2 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("sheet %s has no data rows", c), nil)
	}

	header := rows[0]
	if len(header) < 2 || !strings.EqualFold(strings.TrimSpace(header[0]), dataset.DateColumn) {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("sheet %s must start with a %s column followed by metric columns", c, dataset.DateColumn), nil)
	}
	metrics := make([]string, 0, len(header)-1)
	for _, name := range header[1:] {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		metrics = append(metrics, name)
	}
	if len(metrics) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("sheet %s has no metric columns", c), nil)
	}

	table := &domain.Table{
		Metrics: metrics,
		Values:  make(map[string][]float64, len(metrics)),
	}
	for _, m := range metrics {
		table.Values[m] = make([]float64, 0, len(rows)-1)
	}

	var prev time.Time
	for i, row := range rows[1:] {
		rowNum := i + 2
		if isEmptyRow(row) {
			continue
		}
		if len(row) < len(metrics)+1 {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("sheet %s row %d has %d cells, expected %d", c, rowNum, len(row), len(metrics)+1), nil)
		}
		date, err := ParseDate(row[0])
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("sheet %s row %d: %v", c, rowNum, err), nil)
		}
		if len(table.Dates) > 0 && !date.After(prev) {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("sheet %s row %d: dates must be strictly increasing", c, rowNum), nil)
		}
		prev = date
		table.Dates = append(table.Dates, date)
		for j, m := range metrics {
			v, err := parseNumber(row[j+1])
			if err != nil {
				return nil, apperrors.NewParsingError(
					fmt.Sprintf("sheet %s row %d, column %s: %v", c, rowNum, m, err), nil)
			}
			table.Values[m] = append(table.Values[m], v)
		}
	}
	if table.Rows() == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("sheet %s has no data rows", c), nil)
	}
	return table, nil
}

// targetsFromGrid converts the Targets sheet into per-category goal maps.
// The header is Metric plus one column per category name; each data row
// populates whichever category columns carry a value.
func targetsFromGrid(rows [][]string) (map[domain.Category]domain.TargetMap, error) {
	rows = trimEmptyRows(rows)
	if len(rows) < 2 {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("sheet %s has no data rows", dataset.TargetsSheet), nil)
	}

	header := rows[0]
	if len(header) == 0 || !strings.EqualFold(strings.TrimSpace(header[0]), dataset.TargetMetricColumn) {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("sheet %s must start with a %s column", dataset.TargetsSheet, dataset.TargetMetricColumn), nil)
	}
	colCategory := make(map[int]domain.Category, len(header)-1)
	for i, name := range header[1:] {
		if c, ok := domain.ParseCategory(strings.TrimSpace(name)); ok {
			colCategory[i+1] = c
		}
	}
	if len(colCategory) == 0 {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("sheet %s has no category columns", dataset.TargetsSheet), nil)
	}

	targets := make(map[domain.Category]domain.TargetMap, 3)
	for _, c := range domain.Categories() {
		targets[c] = make(domain.TargetMap)
	}
	for i, row := range rows[1:] {
		rowNum := i + 2
		if isEmptyRow(row) {
			continue
		}
		metric := strings.TrimSpace(row[0])
		if metric == "" {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("sheet %s row %d has no metric name", dataset.TargetsSheet, rowNum), nil)
		}
		for col, c := range colCategory {
			if col >= len(row) || strings.TrimSpace(row[col]) == "" {
				continue
			}
			v, err := parseNumber(row[col])
			if err != nil {
				return nil, apperrors.NewParsingError(
					fmt.Sprintf("sheet %s row %d, column %s: %v", dataset.TargetsSheet, rowNum, c, err), nil)
			}
			targets[c][metric] = v
		}
	}
	return targets, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// trimEmptyRows drops fully empty trailing rows, which spreadsheet editors
// routinely leave behind.
func trimEmptyRows(rows [][]string) [][]string {
	end := len(rows)
	for end > 0 && isEmptyRow(rows[end-1]) {
		end--
	}
	return rows[:end]
}
