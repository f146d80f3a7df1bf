package loader

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"esgboard/internal/dataset"
	apperrors "esgboard/internal/errors"
	"esgboard/pkg/contracts/domain"
)

// parseWorkbook normalizes an Excel workbook. The workbook must carry the
// Environmental, Social, Governance, and Targets sheets; shape problems
// surface as one SchemaError naming everything missing, before any cell is
// parsed.
func (l *Loader) parseWorkbook(data []byte, source domain.SourceKind) (*LoadResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()

	if err := ValidateWorkbookShape(f.GetSheetList()); err != nil {
		return nil, err
	}

	tables := make(map[domain.Category]*domain.Table, 3)
	for _, c := range domain.Categories() {
		rows, err := f.GetRows(string(c))
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %s", c), err)
		}
		table, err := tableFromGrid(c, rows)
		if err != nil {
			return nil, err
		}
		tables[c] = table
	}

	targetRows, err := f.GetRows(dataset.TargetsSheet)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %s", dataset.TargetsSheet), err)
	}
	targets, err := targetsFromGrid(targetRows)
	if err != nil {
		return nil, err
	}

	return assemble(tables, targets, source, Fingerprint(data), nil), nil
}
