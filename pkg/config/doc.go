// Package config provides configuration management for keygate.
//
// This package handles loading, validating, and managing configuration from
// an optional YAML file with environment variable overrides.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("keygate.yaml")
//
//  2. From a YAML file (or none) with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("keygate.yaml")
//     cfg, err := config.LoadConfigWithEnvOverrides("")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention KEYGATE_SECTION_FIELD:
//
//   - KEYGATE_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - KEYGATE_IAM_URL overrides iam.url
//   - KEYGATE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// The deployment variables used by existing environments are honored too,
// with lower precedence than the KEYGATE_ names:
//
//   - SERVER      -> server.listen_address
//   - IAM_API     -> iam.url
//   - IAM_KEY     -> iam.api_key
//   - SENTRY_URI  -> telemetry.sentry.dsn
//   - ENV         -> telemetry.sentry.environment
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Deployment environment variables
//  4. KEYGATE_ environment variables
//  5. Validation (fails fast if invalid)
//
// iam.url and iam.api_key have no defaults; the process refuses to start
// without them.
//
// # Usage
//
// The configuration is loaded once at startup and passed explicitly to the
// components that need it; there is no package-level instance.
//
//	cfg, err := config.LoadConfigWithEnvOverrides(path)
//	if err != nil {
//	    return err
//	}
//	srv, err := server.New(&cfg.Server, &cfg.Telemetry, deps)
package config
