package dataset

import (
	"strings"

	"esgboard/pkg/contracts/domain"
)

// Canonical column and sheet names shared by every loader.
const (
	DateColumn         = "Date"
	TargetsSheet       = "Targets"
	TargetMetricColumn = "Metric"
)

// CategorySchema describes the expected shape of one category table: the
// ordered metric names and the canonical goal values used whenever a source
// carries no targets of its own.
type CategorySchema struct {
	Category domain.Category
	Metrics  []string
	Targets  domain.TargetMap
}

var schemas = map[domain.Category]CategorySchema{
	domain.CategoryEnvironmental: {
		Category: domain.CategoryEnvironmental,
		Metrics: []string{
			"CO2 Emissions (tons)",
			"Energy Consumption (MWh)",
			"Water Usage (m³)",
			"Waste Recycled (%)",
			"Sustainable Materials (%)",
		},
		Targets: domain.TargetMap{
			"CO2 Emissions (tons)":      1.0,
			"Energy Consumption (MWh)":  4.0,
			"Water Usage (m³)":          30.0,
			"Waste Recycled (%)":        85,
			"Sustainable Materials (%)": 75,
		},
	},
	domain.CategorySocial: {
		Category: domain.CategorySocial,
		Metrics: []string{
			"Safety Incidents",
			"Employee Training (hours)",
			"Diversity (% women)",
			"Community Investment ($)",
			"Worker Satisfaction (score)",
		},
		Targets: domain.TargetMap{
			"Safety Incidents":            0,
			"Employee Training (hours)":   3.0,
			"Diversity (% women)":         40,
			"Community Investment ($)":    200.0,
			"Worker Satisfaction (score)": 80,
		},
	},
	domain.CategoryGovernance: {
		Category: domain.CategoryGovernance,
		Metrics: []string{
			"Ethics Training (%)",
			"Supplier Audits",
			"Board Diversity (%)",
			"Compliance Violations",
			"Transparency Score",
		},
		Targets: domain.TargetMap{
			"Ethics Training (%)":   100,
			"Supplier Audits":       30,
			"Board Diversity (%)":   50,
			"Compliance Violations": 0,
			"Transparency Score":    90,
		},
	},
}

// Schema returns the descriptor for a category.
func Schema(c domain.Category) (CategorySchema, bool) {
	s, ok := schemas[c]
	return s, ok
}

// Metrics returns a copy of the ordered metric names for a category.
func Metrics(c domain.Category) []string {
	s, ok := schemas[c]
	if !ok {
		return nil
	}
	out := make([]string, len(s.Metrics))
	copy(out, s.Metrics)
	return out
}

// Targets returns a copy of the canonical target map for a category.
func Targets(c domain.Category) domain.TargetMap {
	s, ok := schemas[c]
	if !ok {
		return domain.TargetMap{}
	}
	out := make(domain.TargetMap, len(s.Targets))
	for k, v := range s.Targets {
		out[k] = v
	}
	return out
}

// CanonicalTargets returns fresh copies of the target maps for all
// categories. Used whenever a source format carries no targets of its own.
func CanonicalTargets() map[domain.Category]domain.TargetMap {
	out := make(map[domain.Category]domain.TargetMap, len(schemas))
	for _, c := range domain.Categories() {
		out[c] = Targets(c)
	}
	return out
}

// RequiredSheets lists the sheet names a workbook source must contain.
func RequiredSheets() []string {
	names := make([]string, 0, len(schemas)+1)
	for _, c := range domain.Categories() {
		names = append(names, string(c))
	}
	return append(names, TargetsSheet)
}

// lowerIsBetterMarkers drive the polarity rule: metric names containing any
// of these substrings favor lower values. Kept identical to the original
// dashboard's heuristic so imported datasets classify the same way.
var lowerIsBetterMarkers = []string{"Emissions", "Usage", "Violations"}

// LowerIsBetter reports whether a metric favors lower values.
func LowerIsBetter(metric string) bool {
	for _, marker := range lowerIsBetterMarkers {
		if strings.Contains(metric, marker) {
			return true
		}
	}
	return false
}

// WideColumn builds the delimited-format column name for a category metric,
// e.g. "Environmental_CO2 Emissions (tons)".
func WideColumn(c domain.Category, metric string) string {
	return string(c) + "_" + metric
}

// SplitWideColumn resolves a prefixed delimited-format column into its
// category and metric name.
func SplitWideColumn(col string) (domain.Category, string, bool) {
	for _, c := range domain.Categories() {
		prefix := string(c) + "_"
		if strings.HasPrefix(col, prefix) && len(col) > len(prefix) {
			return c, col[len(prefix):], true
		}
	}
	return "", "", false
}
