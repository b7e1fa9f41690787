package config

import (
	"fmt"
	"os"

	"shot-clock/internal/clock"

	"gopkg.in/yaml.v3"
)

// SessionDefaults fills the settings fields a create or update request
// leaves out.
type SessionDefaults struct {
	Settings clock.Settings `yaml:"settings"`
}

var builtinDefaults = clock.Settings{SeatCount: 6, TimeLimit: 30, MaxTimeBank: 3}

// LoadSessionDefaults reads defaults from a YAML file. An empty path yields
// the built-in defaults.
func LoadSessionDefaults(path string) (SessionDefaults, error) {
	out := SessionDefaults{Settings: builtinDefaults}
	if path == "" {
		return out, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("read session defaults: %w", err)
	}
	var file struct {
		Settings clock.SettingsPatch `yaml:"settings"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return out, fmt.Errorf("parse session defaults: %w", err)
	}
	out.Settings = file.Settings.Resolve(builtinDefaults)
	if err := out.Settings.Validate(); err != nil {
		return out, fmt.Errorf("session defaults: %w", err)
	}
	return out, nil
}
