package config

import (
	"os"
	"strconv"
	"time"
)

// FromEnv overlays SLUICE_* environment variables onto prof.
func FromEnv(prof *Profile) {
	if v := os.Getenv("SLUICE_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			prof.MaxSize = n
		}
	}
	if v := os.Getenv("SLUICE_WAIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			prof.Wait = Duration(d)
		}
	}
	if v := os.Getenv("SLUICE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			prof.Concurrency = n
		}
	}
	if v := os.Getenv("SLUICE_EXPIRATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			prof.Expiration = Duration(d)
		}
	}
	if v := os.Getenv("SLUICE_DEDUP"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			prof.Dedup = b
		}
	}
	if v := os.Getenv("SLUICE_MAX_TRACKED_KEYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			prof.MaxTrackedKeys = n
		}
	}
	if v := os.Getenv("SLUICE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			prof.Rate = f
		}
	}
	if v := os.Getenv("SLUICE_FILTER"); v != "" {
		prof.Filter = v
	}
	if v := os.Getenv("SLUICE_LOG_LEVEL"); v != "" {
		prof.LogLevel = v
	}
	if v := os.Getenv("SLUICE_LOG_FORMAT"); v != "" {
		prof.LogFormat = v
	}
}
