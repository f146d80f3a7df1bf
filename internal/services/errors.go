package services

import "errors"

// Service-level sentinel errors. The services wrap these as causes inside
// the typed errors they return, so handlers can branch with errors.Is while
// the error handler still sees the full taxonomy.
var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrMetricNotFound   = errors.New("metric not found")
)
