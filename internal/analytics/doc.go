// Package analytics computes the derived views of a dataset: windowed metric
// projections, per-metric KPIs, and least-squares trend fits. Everything here
// is pure computation over immutable inputs; projections copy their backing
// slices so no caller can mutate a loaded dataset.
package analytics
