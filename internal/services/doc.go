// Package services implements the business logic layer of the ESGBoard
// application. It provides a clean separation between HTTP handlers and the
// loading/derivation pipeline, ensuring that business rules are centralized
// and testable.
//
// # Architecture
//
// Services follow these architectural principles:
//
//	1. Interface-driven design for testability
//	2. Context propagation for cancellation and tracing
//	3. Dependency injection for loose coupling
//	4. Immutable datasets swapped whole, never mutated in place
//	5. Domain-focused methods that encapsulate business rules
//
// # Common Service Pattern
//
// Services typically follow this structure:
//
//	type ServiceName struct {
//	    deps   Dependencies
//	    logger *slog.Logger
//	}
//
//	func NewServiceName(deps Dependencies, logger *slog.Logger) *ServiceName {
//	    if logger == nil {
//	        logger = slog.Default()
//	    }
//	    return &ServiceName{deps: deps, logger: logger}
//	}
//
// # Available Services
//
// The package provides these core services:
//
//	- DatasetService: owns the current dataset and the load/fallback policy
//	- MetricsService: windowed views, KPIs, chart specs, and table rows
//	- ExportService: CSV/XLSX/PNG artifacts and the zip bundle
//	- HealthService: liveness and readiness checks
//
// # Error Handling
//
// Loader failures are never fatal: DatasetService converts every load error
// into a user-visible warning plus a synthetic substitution, so downstream
// stages always see a valid dataset. Residual errors (unknown categories,
// bad parameters, render failures) are typed application errors that the
// transport layer maps to problem documents.
package services
