package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Profile is the tuning surface for a pipe run.
type Profile struct {
	MaxSize     int      `json:"maxSize" yaml:"maxSize"`
	Wait        Duration `json:"wait" yaml:"wait"`
	Concurrency int      `json:"concurrency" yaml:"concurrency"`
	Expiration  Duration `json:"expiration" yaml:"expiration"`

	Dedup          bool `json:"dedup" yaml:"dedup"`
	MaxTrackedKeys int  `json:"maxTrackedKeys" yaml:"maxTrackedKeys"`

	// Rate limits stdin intake in lines per second; 0 disables.
	Rate float64 `json:"rate" yaml:"rate"`
	// Filter is a CEL expression applied to each input line.
	Filter string `json:"filter" yaml:"filter"`

	LogLevel  string `json:"logLevel" yaml:"logLevel"`
	LogFormat string `json:"logFormat" yaml:"logFormat"`
}

// Default returns built-in defaults.
func Default() Profile {
	return Profile{
		Concurrency: 1,
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Load reads a profile from a JSON or YAML file by extension. An empty path
// returns the defaults.
func Load(path string) (Profile, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	prof := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &prof); err != nil {
			return Profile{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json", "":
		if err := json.Unmarshal(b, &prof); err != nil {
			return Profile{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return Profile{}, fmt.Errorf("unsupported profile extension %q", filepath.Ext(path))
	}
	return prof, nil
}

// Validate rejects values the queuer cannot honor.
func (p Profile) Validate() error {
	if p.MaxSize < 0 {
		return fmt.Errorf("maxSize must be >= 0, got %d", p.MaxSize)
	}
	if p.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", p.Concurrency)
	}
	if p.Wait < 0 {
		return fmt.Errorf("wait must be >= 0, got %s", p.Wait)
	}
	if p.Rate < 0 {
		return fmt.Errorf("rate must be >= 0, got %v", p.Rate)
	}
	return nil
}
