// Package config provides centralized configuration management for the ESG
// Board system. It handles loading configuration from multiple sources,
// validation, and provides a type-safe API for accessing configuration values
// throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern ESG_* for namespacing:
//
//	ESG_SERVER_PORT=8080
//	ESG_LOGGING_LEVEL=info
//	ESG_LOADER_FETCH_TIMEOUT=10s
//	ESG_LOADER_SHEETS_API_KEY=...
//	ESG_EXPORT_CSV_WITH_BOM=true
//
// # Configuration File
//
// The loader looks for config.yaml in the working directory (or
// configs/config.yaml), or at the path named by ESG_CONFIG_FILE:
//
//	server:
//	  port: 8080
//	loader:
//	  fetch_timeout: 10s
//	export:
//	  chart_width: 1000
//	  chart_height: 600
//
// # Validation
//
// All configuration is validated at load time to ensure:
//
//	- Values are within acceptable ranges
//	- Timeouts and limits are positive
//	- Logging settings fall back to safe defaults
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
