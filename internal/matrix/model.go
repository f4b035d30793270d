// Package matrix models and resolves test-matrix configuration files.
//
// A matrix file declares named environments: an interpreter label, a
// dependency list, environment variable pass-through, an installation
// mode, and a sequence of command lines. The package parses the file,
// expands the environment list, resolves each environment against the
// shared defaults (inheritance, factor filters, substitution), and
// renders configurations back out canonically.
package matrix

import (
	"fmt"
	"strings"

	"testmatrix/internal/ini"
)

// Well-known section names.
const (
	SectionMatrix   = "matrix"
	SectionDefaults = "env"
	envPrefix       = "env:"
)

// Environment keys accepted in [env] and [env:NAME] sections. Anything
// else is reported as a validation warning, not an error, so files can
// carry forward-compatible keys.
var knownEnvKeys = map[string]bool{
	"interpreter": true,
	"description": true,
	"deps":        true,
	"passenv":     true,
	"setenv":      true,
	"develop":     true,
	"changedir":   true,
	"commands":    true,
}

// Config is a parsed matrix file before environment resolution.
type Config struct {
	// Path is the config file location; Dir is its directory, which
	// anchors {confdir} and changedir.
	Path string
	Dir  string

	// MinVersion is the declared minimum tool version, if any.
	MinVersion string

	// EnvList is the expanded, ordered environment list from [matrix].
	EnvList []string

	// File is the underlying parse, kept for positions and rendering.
	File *ini.File
}

// Environment is a fully resolved environment record.
type Environment struct {
	Name        string    `yaml:"name"`
	Interpreter string    `yaml:"interpreter,omitempty"`
	Description string    `yaml:"description,omitempty"`
	Deps        []string  `yaml:"deps,omitempty"`
	PassEnv     []string  `yaml:"passenv,omitempty"`
	SetEnv      []EnvVar  `yaml:"setenv,omitempty"`
	Develop     bool      `yaml:"develop,omitempty"`
	ChangeDir   string    `yaml:"changedir,omitempty"`
	Commands    []Command `yaml:"commands,omitempty"`
}

// EnvVar is a single NAME=VALUE pair, order-preserving.
type EnvVar struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Command is one resolved command line.
type Command struct {
	// Argv is the split command line; Argv[0] is the program.
	Argv []string `yaml:"argv"`

	// IgnoreExit marks a command whose non-zero exit status does not
	// fail the environment (a leading `-` in the config).
	IgnoreExit bool `yaml:"ignore_exit,omitempty"`
}

// String renders the command roughly as written, for display.
func (c Command) String() string {
	var b strings.Builder
	if c.IgnoreExit {
		b.WriteByte('-')
	}
	for i, arg := range c.Argv {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(quoteArg(arg))
	}
	return b.String()
}

// Factors returns the hyphen-separated parts of an environment name.
// "py38-lint" has factors "py38" and "lint".
func (e *Environment) Factors() []string {
	return splitFactors(e.Name)
}

// Error is a resolution failure tied to an environment and, when known,
// a config file position.
type Error struct {
	Env  string
	Path string
	Line int
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Line > 0 && e.Path != "" && e.Env != "":
		return fmt.Sprintf("%s:%d: env %s: %v", e.Path, e.Line, e.Env, e.Err)
	case e.Line > 0 && e.Path != "":
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	case e.Env != "":
		return fmt.Sprintf("env %s: %v", e.Env, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }
