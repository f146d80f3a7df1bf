package exporter

import (
	"fmt"
	"strings"
	"time"

	"esgboard/pkg/contracts/domain"
)

// filenameDate is the stamp layout in export filenames.
const filenameDate = "20060102"

// CSVFilename returns the conventional CSV name, e.g.
// "environmental_esg_20250131.csv".
func CSVFilename(c domain.Category, at time.Time) string {
	return fmt.Sprintf("%s_esg_%s.csv", strings.ToLower(string(c)), at.Format(filenameDate))
}

// SpreadsheetFilename returns the conventional workbook name, e.g.
// "environmental_esg_20250131.xlsx".
func SpreadsheetFilename(c domain.Category, at time.Time) string {
	return fmt.Sprintf("%s_esg_%s.xlsx", strings.ToLower(string(c)), at.Format(filenameDate))
}

// ChartFilename returns the conventional chart image name, e.g.
// "environmental_chart_20250131.png".
func ChartFilename(c domain.Category, at time.Time) string {
	return fmt.Sprintf("%s_chart_%s.png", strings.ToLower(string(c)), at.Format(filenameDate))
}

// BundleFilename returns the conventional ZIP name, e.g.
// "environmental_esg_20250131.zip".
func BundleFilename(c domain.Category, at time.Time) string {
	return fmt.Sprintf("%s_esg_%s.zip", strings.ToLower(string(c)), at.Format(filenameDate))
}
