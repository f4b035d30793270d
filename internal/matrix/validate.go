package matrix

import (
	"fmt"
	"strings"
)

// Severity classifies a validation finding.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Problem is a single validation finding with a file position.
type Problem struct {
	Severity Severity
	Path     string
	Line     int
	Env      string
	Msg      string
}

func (p Problem) String() string {
	pos := p.Path
	if p.Line > 0 {
		pos = fmt.Sprintf("%s:%d", p.Path, p.Line)
	}
	if p.Env != "" {
		return fmt.Sprintf("%s: %s: env %s: %s", pos, p.Severity, p.Env, p.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", pos, p.Severity, p.Msg)
}

// Validate checks the whole configuration: section and key shapes, and a
// full resolution of every envlist entry. Warnings do not make the config
// invalid; any error-severity problem does.
func (c *Config) Validate(opts ResolveOptions) []Problem {
	var problems []Problem

	for _, section := range c.File.Sections {
		switch {
		case section.Name == SectionMatrix:
			for _, k := range section.Keys {
				if k.Name != "envlist" && k.Name != "minversion" {
					problems = append(problems, Problem{
						Severity: SeverityWarning,
						Path:     c.Path,
						Line:     k.Line,
						Msg:      fmt.Sprintf("unknown key %q in [%s]", k.Name, SectionMatrix),
					})
				}
			}
		case section.Name == SectionDefaults || strings.HasPrefix(section.Name, envPrefix):
			envName := strings.TrimPrefix(section.Name, envPrefix)
			for _, k := range section.Keys {
				if !knownEnvKeys[k.Name] {
					problems = append(problems, Problem{
						Severity: SeverityWarning,
						Path:     c.Path,
						Line:     k.Line,
						Env:      envName,
						Msg:      fmt.Sprintf("unknown key %q", k.Name),
					})
				}
			}
		default:
			// Free-form sections are legal as cross-reference targets;
			// nothing to check inside them.
		}
	}

	if c.MinVersion != "" && versionLess(Version, c.MinVersion) {
		line := 0
		if s := c.File.Section(SectionMatrix); s != nil {
			if k := s.Key("minversion"); k != nil {
				line = k.Line
			}
		}
		problems = append(problems, Problem{
			Severity: SeverityWarning,
			Path:     c.Path,
			Line:     line,
			Msg:      fmt.Sprintf("minversion %s is newer than this tool (version %s)", c.MinVersion, Version),
		})
	}

	if len(c.EnvList) == 0 {
		problems = append(problems, Problem{
			Severity: SeverityWarning,
			Path:     c.Path,
			Msg:      "no envlist declared in [matrix]",
		})
	}

	for _, name := range c.EnvList {
		if _, err := c.Resolve(name, opts); err != nil {
			problems = append(problems, problemFromError(c, name, err))
		}
	}

	// Defined environments outside the envlist still have to resolve;
	// they are reachable through `run -e`.
	listed := make(map[string]bool, len(c.EnvList))
	for _, name := range c.EnvList {
		listed[name] = true
	}
	for _, name := range c.DefinedEnvs() {
		if listed[name] {
			continue
		}
		if _, err := c.Resolve(name, opts); err != nil {
			problems = append(problems, problemFromError(c, name, err))
		}
	}

	return problems
}

func problemFromError(c *Config, env string, err error) Problem {
	p := Problem{Severity: SeverityError, Path: c.Path, Env: env, Msg: err.Error()}
	if me, ok := err.(*Error); ok {
		p.Line = me.Line
		p.Msg = me.Err.Error()
	}
	return p
}

// HasErrors reports whether any problem is error severity.
func HasErrors(problems []Problem) bool {
	for _, p := range problems {
		if p.Severity == SeverityError {
			return true
		}
	}
	return false
}
