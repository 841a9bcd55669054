package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// State is the runtime-mutable part of the configuration. It is rewritten
// whenever an operator adds/removes a domain or changes the interval, so
// those changes survive a restart.
type State struct {
	Domains         []string `yaml:"domains"`
	IntervalSeconds int      `yaml:"interval_seconds"`
}

// LoadState reads the state file. A missing file yields (nil, nil).
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	return &st, nil
}

// SaveState writes the state file atomically (write-then-rename).
func SaveState(path string, st State) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
