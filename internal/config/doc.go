// Package config provides configuration management for stimulus.
//
// This package handles:
//   - Loading and saving settings from JSON files
//   - Default configuration values
//   - Overriding settings from STIMULUS_* environment variables and .env files
//   - Conversion to ReportConfig for the report writer
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Reports go to ~/Stimulus/results as CSV
//	// Four stimuli are preloaded at a time
//	// Missing image files are warnings, not errors
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.json")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// # Environment
//
//	_ = config.LoadEnv()  // reads ./.env when present
//	settings.ApplyEnv()   // STIMULUS_SEED=7 etc.
//
// # Saving Settings
//
//	settings.OutputDir = "/data/results"
//	err := settings.Save("/path/to/config.json")
package config
