package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"esgboard/internal/dataset"
	apperrors "esgboard/internal/errors"
	"esgboard/pkg/contracts/domain"
)

// fetchSheet loads the four required ranges from a Google Sheets document in
// one BatchGet. The document must be link-readable and the API key must be
// configured; the value grids then go through the same parsing as workbook
// sheets.
func (l *Loader) fetchSheet(ctx context.Context, spreadsheetID string) (*LoadResult, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, apperrors.NewAppValidationError("spreadsheet id is required")
	}
	if l.cfg.SheetsAPIKey == "" {
		return nil, apperrors.NewAppValidationError(
			"Google Sheets source is not configured; set a Sheets API key")
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.FetchTimeout)
	defer cancel()

	svc, err := sheets.NewService(ctx, option.WithAPIKey(l.cfg.SheetsAPIKey))
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to create sheets client", err)
	}

	resp, err := svc.Spreadsheets.Values.BatchGet(spreadsheetID).
		Ranges(dataset.RequiredSheets()...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, apperrors.NewNetworkError(
			fmt.Sprintf("failed to fetch spreadsheet %s", spreadsheetID), err)
	}

	grids := make(map[string][][]string, len(resp.ValueRanges))
	for _, vr := range resp.ValueRanges {
		if vr == nil {
			continue
		}
		grids[rangeSheetName(vr.Range)] = gridFromValues(vr.Values)
	}

	var missing []string
	for _, required := range dataset.RequiredSheets() {
		if len(grids[required]) == 0 {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewSchemaError(missing)
	}

	tables := make(map[domain.Category]*domain.Table, 3)
	for _, c := range domain.Categories() {
		table, err := tableFromGrid(c, grids[string(c)])
		if err != nil {
			return nil, err
		}
		tables[c] = table
	}
	targets, err := targetsFromGrid(grids[dataset.TargetsSheet])
	if err != nil {
		return nil, err
	}

	// No file bytes exist for an API fetch, so fingerprint the cell grids.
	raw, err := json.Marshal(resp.ValueRanges)
	if err != nil {
		return nil, apperrors.NewInternalAppError("failed to fingerprint spreadsheet values", err)
	}
	return assemble(tables, targets, domain.SourceSheetsFetch, Fingerprint(raw), nil), nil
}

// rangeSheetName extracts the sheet name from an A1 range like
// "Environmental!A1:F28". Quoted names lose their quotes.
func rangeSheetName(a1 string) string {
	name := a1
	if i := strings.Index(a1, "!"); i >= 0 {
		name = a1[:i]
	}
	return strings.Trim(strings.TrimSpace(name), "'")
}

// gridFromValues flattens the API's untyped cell grid into strings for the
// shared grid parsers.
func gridFromValues(values [][]interface{}) [][]string {
	grid := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, cell := range row {
			if cell == nil {
				continue
			}
			cells[j] = strings.TrimSpace(fmt.Sprint(cell))
		}
		grid[i] = cells
	}
	return grid
}
