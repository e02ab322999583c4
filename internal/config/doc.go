// Package config provides centralized configuration management for optexec.
// It loads configuration from multiple sources, validates it, and exposes a
// type-safe API for the rest of the application.
//
// # Configuration Sources
//
// Configuration is layered in the following order of precedence:
//
//	1. Environment variables, including a .env file in the working directory (highest)
//	2. A YAML configuration file
//	3. Default values from Default() (lowest)
//
// The YAML file is taken from OPTEXEC_CONFIG_FILE, or the first of config.yaml,
// configs/config.yaml and ../configs/config.yaml that exists.
//
// # Environment Variables
//
// All environment variables follow the pattern OPTEXEC_<SECTION>_<FIELD>:
//
//	OPTEXEC_SERVER_PORT=8080
//	OPTEXEC_LOGGING_LEVEL=debug
//	OPTEXEC_EXECUTION_RISK_AVERSION=0.8
//	OPTEXEC_EXECUTION_MIN_TIME_SLICE=10
//	OPTEXEC_MARKET_DATA_SOURCE=fixed
//	OPTEXEC_REPORTS_FORMATS=csv,xlsx
//
// # Validation
//
// Load validates struct tags with go-playground/validator and then checks the
// engine section with execution.Config.Validate, so a loaded configuration can
// always construct an orchestrator.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	orch, err := execution.NewOrchestrator(cfg.Execution.EngineConfig(), feed, logger)
//
// # Testing
//
// Tests use config.Default() directly, or LoadFile with a temporary YAML file.
package config
