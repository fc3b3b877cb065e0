// Package config provides application configuration management.
//
// The config package handles loading and validation of the application's
// configuration from YAML files. It covers the evaluation runner settings
// (timeout, parallelism, entry point), the on-disk directory contract for
// inputs, outputs and logs, the sandbox engine selection, and logging.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Engine backend: %s\n", cfg.Engine.Backend)
package config
