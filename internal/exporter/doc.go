// Package exporter produces the downloadable artifacts for a filtered view:
// CSV (with optional UTF-8 BOM for Excel compatibility), a single-sheet
// workbook, the rendered chart PNG, and a ZIP bundle of all three.
//
// Every producer is a pure function from an immutable view or chart spec to
// bytes, so the bundle can build its parts concurrently without locking.
// Filenames follow the dashboard's convention:
//
//	environmental_esg_20250131.csv
//	environmental_esg_20250131.xlsx
//	environmental_chart_20250131.png
package exporter
