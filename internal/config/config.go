// Package config loads the tool's own settings, as opposed to the matrix
// file it operates on. Settings come from .matrix/config.yaml with
// MATRIX_* environment variables layered on top.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Settings holds tool-level configuration.
type Settings struct {
	// ConfigPath is the default matrix file, relative to the working
	// directory unless absolute.
	ConfigPath string `yaml:"config_path" env:"MATRIX_CONFIG"`

	// Timeout bounds each executed command. Zero disables the bound.
	Timeout time.Duration `yaml:"timeout" env:"MATRIX_TIMEOUT"`

	// NoColor disables styled terminal output.
	NoColor bool `yaml:"no_color" env:"MATRIX_NO_COLOR"`

	// History toggles the run ledger.
	History bool `yaml:"history" env:"MATRIX_HISTORY"`
}

// UnmarshalYAML decodes settings, accepting human-readable durations
// ("2m", "90s") for timeout. Absent keys leave prior values in place.
func (s *Settings) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		ConfigPath *string `yaml:"config_path"`
		Timeout    *string `yaml:"timeout"`
		NoColor    *bool   `yaml:"no_color"`
		History    *bool   `yaml:"history"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.ConfigPath != nil {
		s.ConfigPath = *raw.ConfigPath
	}
	if raw.Timeout != nil {
		d, err := time.ParseDuration(*raw.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		s.Timeout = d
	}
	if raw.NoColor != nil {
		s.NoColor = *raw.NoColor
	}
	if raw.History != nil {
		s.History = *raw.History
	}
	return nil
}

// Defaults returns the baseline settings.
func Defaults() Settings {
	return Settings{
		ConfigPath: "matrix.ini",
		History:    true,
	}
}

// SettingsPath returns the per-directory settings file location.
func SettingsPath(dir string) string {
	return filepath.Join(dir, ".matrix", "config.yaml")
}

// Load reads settings from path (a missing file just means defaults) and
// then applies environment overrides.
func Load(path string) (Settings, error) {
	s := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Defaults only.
	case err != nil:
		return s, fmt.Errorf("read settings: %w", err)
	default:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("parse settings %s: %w", path, err)
		}
	}

	if err := env.Parse(&s); err != nil {
		return s, fmt.Errorf("parse environment overrides: %w", err)
	}
	return s, nil
}
