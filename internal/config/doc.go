// Package config provides loading and environment overlay for Sluice pipe
// profiles. It exposes a Default() baseline, Load for JSON or YAML files
// (picked by extension), and FromEnv to overlay SLUICE_* variables.
//
// Example:
//
//	prof := config.Default()
//	if fileProf, err := config.Load("pipeline.yaml"); err == nil {
//	    prof = fileProf
//	}
//	config.FromEnv(&prof)
package config
