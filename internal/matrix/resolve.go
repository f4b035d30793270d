package matrix

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"testmatrix/internal/ini"
)

// ResolveOptions carries per-invocation inputs to resolution.
type ResolveOptions struct {
	// PosArgs are CLI positional arguments substituted for {posargs}.
	PosArgs []string

	// Environ looks up process environment variables for {env:VAR}.
	// Defaults to os.LookupEnv.
	Environ func(string) (string, bool)
}

func (o ResolveOptions) environ() func(string) (string, bool) {
	if o.Environ != nil {
		return o.Environ
	}
	return os.LookupEnv
}

// Resolve produces the fully resolved environment for name: the
// [env:name] section layered over [env] defaults, factor filters applied,
// substitutions expanded, and command lines split into argv form.
//
// A name with no [env:name] section resolves from defaults alone when it
// carries an interpreter version factor (py38, pypy3, ...); otherwise the
// environment is undefined.
func (c *Config) Resolve(name string, opts ResolveOptions) (*Environment, error) {
	section := c.envSection(name)
	if section == nil && !hasVersionFactor(name) {
		return nil, &Error{Env: name, Path: c.Path, Err: fmt.Errorf("environment is not defined and has no version factor")}
	}

	sub := &substituter{
		cfg:     c,
		envName: name,
		posArgs: opts.PosArgs,
		environ: opts.environ(),
		active:  make(map[string]bool),
	}
	r := &resolver{cfg: c, name: name, section: section, sub: sub}
	return r.resolve()
}

// ResolveAll resolves every environment in the envlist, in order.
func (c *Config) ResolveAll(opts ResolveOptions) ([]*Environment, error) {
	envs := make([]*Environment, 0, len(c.EnvList))
	for _, name := range c.EnvList {
		env, err := c.Resolve(name, opts)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return envs, nil
}

type resolver struct {
	cfg     *Config
	name    string
	section *ini.Section
	sub     *substituter
}

// key returns the raw entry for an environment key, preferring the
// [env:name] section over [env] defaults.
func (r *resolver) key(name string) *ini.Key {
	if r.section != nil {
		if k := r.section.Key(name); k != nil {
			return k
		}
	}
	if d := r.cfg.defaultsSection(); d != nil {
		if k := d.Key(name); k != nil {
			return k
		}
	}
	return nil
}

func (r *resolver) resolve() (*Environment, error) {
	env := &Environment{Name: r.name}

	var err error
	if env.Interpreter, err = r.scalar("interpreter"); err != nil {
		return nil, err
	}
	if env.Interpreter == "" {
		env.Interpreter = interpreterForName(r.name)
	}
	if env.Description, err = r.scalar("description"); err != nil {
		return nil, err
	}
	if env.ChangeDir, err = r.scalar("changedir"); err != nil {
		return nil, err
	}

	if k := r.key("develop"); k != nil {
		v, perr := strconv.ParseBool(strings.TrimSpace(k.Value))
		if perr != nil {
			return nil, r.errAt(k, fmt.Errorf("develop: not a boolean: %q", k.Value))
		}
		env.Develop = v
	}

	deps, err := r.lines("deps")
	if err != nil {
		return nil, err
	}
	for _, d := range deps {
		env.Deps = append(env.Deps, ini.List(d)...)
	}

	if k := r.key("passenv"); k != nil {
		expanded, serr := r.sub.expand(k.Value)
		if serr != nil {
			return nil, r.errAt(k, serr)
		}
		env.PassEnv = strings.FieldsFunc(expanded, func(c rune) bool {
			return c == ' ' || c == '\t' || c == ',' || c == '\n'
		})
	}

	setenv, err := r.lines("setenv")
	if err != nil {
		return nil, err
	}
	for _, line := range setenv {
		name, value, ok := strings.Cut(line, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, r.errAt(r.key("setenv"), fmt.Errorf("setenv: expected NAME=VALUE, got %q", line))
		}
		env.SetEnv = append(env.SetEnv, EnvVar{Name: name, Value: strings.TrimSpace(value)})
	}

	commands, err := r.lines("commands")
	if err != nil {
		return nil, err
	}
	for _, line := range commands {
		cmd, perr := parseCommand(line)
		if perr != nil {
			return nil, r.errAt(r.key("commands"), perr)
		}
		if len(cmd.Argv) == 0 {
			continue
		}
		env.Commands = append(env.Commands, cmd)
	}

	return env, nil
}

// scalar resolves a single-valued key with substitution applied.
func (r *resolver) scalar(name string) (string, error) {
	k := r.key(name)
	if k == nil {
		return "", nil
	}
	v, err := r.sub.expand(strings.TrimSpace(k.Value))
	if err != nil {
		return "", r.errAt(k, err)
	}
	return v, nil
}

// lines resolves a multi-line key: factor-conditional lines are filtered
// for this environment, then each surviving line is substituted.
func (r *resolver) lines(name string) ([]string, error) {
	k := r.key(name)
	if k == nil {
		return nil, nil
	}
	var out []string
	for _, line := range ini.Lines(k.Value) {
		line, keep := r.filterFactorLine(line)
		if !keep {
			continue
		}
		expanded, err := r.sub.expand(line)
		if err != nil {
			return nil, r.errAt(k, err)
		}
		if expanded = strings.TrimSpace(expanded); expanded != "" {
			out = append(out, expanded)
		}
	}
	return out, nil
}

// filterFactorLine handles `factor: value` conditional lines. The prefix
// is treated as a condition only when every alternative is built from
// known factors; anything else (URLs, Windows paths, plain colons in
// command text) passes through untouched.
func (r *resolver) filterFactorLine(line string) (string, bool) {
	prefix, rest, ok := strings.Cut(line, ":")
	if !ok || prefix == "" || strings.ContainsAny(prefix, " \t{}/\\=\"'") {
		return line, true
	}
	known := r.cfg.knownFactors()
	for _, alt := range strings.Split(prefix, ",") {
		for _, factor := range splitFactors(strings.TrimSpace(alt)) {
			if !known[factor] {
				return line, true
			}
		}
	}
	for _, alt := range strings.Split(prefix, ",") {
		if hasFactors(r.name, strings.TrimSpace(alt)) {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

// knownFactors collects every factor that appears in the envlist or in a
// defined environment name.
func (c *Config) knownFactors() map[string]bool {
	known := make(map[string]bool)
	for _, name := range c.EnvList {
		for _, f := range splitFactors(name) {
			known[f] = true
		}
	}
	for _, name := range c.DefinedEnvs() {
		for _, f := range splitFactors(name) {
			known[f] = true
		}
	}
	return known
}

func (r *resolver) errAt(k *ini.Key, err error) error {
	e := &Error{Env: r.name, Path: r.cfg.Path, Err: err}
	if k != nil {
		e.Line = k.Line
	}
	return e
}

// parseCommand splits one command line into argv form, honoring single
// and double quotes and backslash escapes outside single quotes. A
// leading `-` marks the exit status as ignored.
func parseCommand(line string) (Command, error) {
	var cmd Command
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "--") {
		cmd.IgnoreExit = true
		line = strings.TrimSpace(line[1:])
	}

	argv, err := splitWords(line)
	if err != nil {
		return Command{}, err
	}
	cmd.Argv = argv
	return cmd, nil
}

func splitWords(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inWord  bool
		quote   byte
	)
	flush := func() {
		if inWord {
			args = append(args, current.String())
			current.Reset()
			inWord = false
		}
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote == '\'':
			if c == '\'' {
				quote = 0
			} else {
				current.WriteByte(c)
			}
		case quote == '"':
			switch c {
			case '"':
				quote = 0
			case '\\':
				if i+1 < len(line) && (line[i+1] == '"' || line[i+1] == '\\') {
					i++
					current.WriteByte(line[i])
				} else {
					current.WriteByte(c)
				}
			default:
				current.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote = c
			inWord = true
		case c == '\\' && i+1 < len(line):
			i++
			current.WriteByte(line[i])
			inWord = true
		case c == ' ' || c == '\t':
			flush()
		default:
			current.WriteByte(c)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c-quote in command %q", quote, line)
	}
	flush()
	return args, nil
}
