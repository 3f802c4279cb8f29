// Package config provides centralized configuration management for the
// DealPulse service. It handles loading configuration from multiple sources,
// validation, and a type-safe API for accessing configuration values
// throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file (config.yaml or configs/config.yaml)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern DP_* for namespacing:
//
//	DP_SERVER_PORT=8080
//	DP_DATABASE_DSN=postgres://...
//	DP_LOGGING_LEVEL=info
//	DP_JOBS_WORKERS=4
//	DP_ENGINE_SENSITIVITY_PARALLEL=8
//
// # Validation
//
// All configuration is validated at load time to ensure required fields are
// present and values are within acceptable ranges. Logging format and output
// are normalized to supported values rather than rejected.
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
