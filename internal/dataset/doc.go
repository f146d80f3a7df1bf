// Package dataset defines the expected shape of ESG data and generates the
// deterministic sample dataset.
//
// The schema descriptor maps each category to its ordered metric names,
// canonical targets, and the polarity rule, so loaders slice wide tables
// deterministically instead of matching column substrings at each call site.
//
// The synthetic generator produces 27 month-end rows (2023-01-31 through
// 2025-03-31) from a fixed seed; Default caches the result for the process
// lifetime and it is the fallback whenever a real source fails to load.
package dataset
