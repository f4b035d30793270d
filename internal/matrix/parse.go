package matrix

import (
	"fmt"
	"path/filepath"
	"strings"

	"testmatrix/internal/ini"
)

// Parse builds a Config from an already parsed ini file.
func Parse(file *ini.File, path string) (*Config, error) {
	abs := path
	if a, err := filepath.Abs(path); err == nil {
		abs = a
	}
	cfg := &Config{
		Path: path,
		Dir:  filepath.Dir(abs),
		File: file,
	}

	if v, ok := file.Get(SectionMatrix, "minversion"); ok {
		cfg.MinVersion = strings.TrimSpace(v)
	}

	if v, ok := file.Get(SectionMatrix, "envlist"); ok {
		for _, name := range splitTopLevel(v) {
			expanded, err := expandBraces(name)
			if err != nil {
				line := 0
				if s := file.Section(SectionMatrix); s != nil {
					if k := s.Key("envlist"); k != nil {
						line = k.Line
					}
				}
				return nil, &Error{Path: path, Line: line, Err: fmt.Errorf("envlist: %w", err)}
			}
			cfg.EnvList = append(cfg.EnvList, expanded...)
		}
	}

	return cfg, nil
}

// Load parses and validates the matrix file at path.
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	return Parse(file, path)
}

// DefinedEnvs returns the names of all [env:NAME] sections in file order.
func (c *Config) DefinedEnvs() []string {
	var out []string
	for _, s := range c.File.Sections {
		if name, ok := strings.CutPrefix(s.Name, envPrefix); ok {
			out = append(out, name)
		}
	}
	return out
}

// envSection returns the raw [env:name] section, or nil.
func (c *Config) envSection(name string) *ini.Section {
	return c.File.Section(envPrefix + name)
}

// defaultsSection returns the raw [env] section, or nil.
func (c *Config) defaultsSection() *ini.Section {
	return c.File.Section(SectionDefaults)
}
