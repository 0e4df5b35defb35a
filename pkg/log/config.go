package log

import "fmt"

// Config declaratively describes a logger, typically sourced from flags or
// environment variables.
type Config struct {
	Level  string `json:"level" yaml:"level"`   // debug|info|warn|error|fatal
	Format string `json:"format" yaml:"format"` // text|json
}

// ApplyConfig builds a Logger from cfg. Empty fields fall back to info/text.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var formatter Formatter
	switch cfg.Format {
	case "", "text":
		formatter = &TextFormatter{}
	case "json":
		formatter = &JSONFormatter{}
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return NewLogger(WithLevel(level), WithFormatter(formatter), WithOutput(NewConsoleOutput())), nil
}
