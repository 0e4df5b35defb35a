package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so profiles can say "250ms" or "2s" in both
// JSON and YAML. Bare numbers are taken as nanoseconds, matching
// time.Duration's native encoding.
type Duration time.Duration

// Std returns the standard library form.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String formats like time.Duration.
func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	return d.set(raw)
}

// MarshalJSON emits the string form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalYAML accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var asString string
	if err := node.Decode(&asString); err == nil {
		return d.set(asString)
	}
	var asInt int64
	if err := node.Decode(&asInt); err == nil {
		return d.set(float64(asInt))
	}
	return fmt.Errorf("invalid duration %q", node.Value)
}

// MarshalYAML emits the string form.
func (d Duration) MarshalYAML() (any, error) { return d.String(), nil }

func (d *Duration) set(raw any) error {
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	case float64:
		*d = Duration(time.Duration(v))
		return nil
	default:
		return fmt.Errorf("invalid duration %v", raw)
	}
}
