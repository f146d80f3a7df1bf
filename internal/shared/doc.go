// Package shared provides cross-cutting utilities used across the esgboard
// codebase. It is a home for code that does not belong to any specific
// domain or architectural layer.
//
// # Structure
//
//   - testutil: testing helpers shared by multiple packages, currently the
//     slog capture handler used to assert on structured log output.
//
// # Usage Guidelines
//
// This package should only contain:
//
//  1. Test utilities used by multiple packages
//  2. Generic helpers with no domain-specific logic
//
// It should NOT contain business logic, dataset or export code, or
// dependencies on other internal packages.
package shared
