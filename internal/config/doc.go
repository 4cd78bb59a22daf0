// Package config provides configuration management for trialmerge.
// It loads settings from defaults, an optional YAML file and the environment,
// validates them, and resolves the paths a merge run reads from and writes to.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern TRIAL_<SECTION>_<FIELD>:
//
//	TRIAL_LOGGING_LEVEL=debug
//	TRIAL_PATHS_OUTPUT_FILE=out/master.csv
//	TRIAL_EXPORT_BOM_PREFIX=true
//	TRIAL_SERVER_PORT=9090
//
// TRIAL_CONFIG points at the YAML file when --config is not given.
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	paths, err := config.ResolvePaths(cfg.Paths)
package config
