package matrix

import (
	"fmt"
	"strings"
)

// maxSubstDepth bounds nested substitution so broken cross-references
// fail instead of recursing forever.
const maxSubstDepth = 32

// substituter expands {token} references inside config values.
//
// Supported tokens:
//
//	{envname}            current environment name
//	{confdir}            directory containing the config file
//	{posargs}            CLI positional arguments; {posargs:default} form
//	{env:VAR}            pass-through variable; {env:VAR:default} form
//	{[section]key}       cross-section reference, itself substituted
//
// Literal braces are written doubled: {{ and }}.
type substituter struct {
	cfg     *Config
	envName string
	posArgs []string

	// environ looks up a process environment variable for {env:...}.
	environ func(string) (string, bool)

	// active guards against cross-reference cycles; keys are
	// "[section]key" strings.
	active map[string]bool
}

func (s *substituter) expand(value string) (string, error) {
	return s.expandDepth(value, 0)
}

func (s *substituter) expandDepth(value string, depth int) (string, error) {
	if depth > maxSubstDepth {
		return "", fmt.Errorf("substitution nested too deeply")
	}

	var b strings.Builder
	for i := 0; i < len(value); {
		c := value[i]
		switch {
		case c == '{' && i+1 < len(value) && value[i+1] == '{':
			b.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(value) && value[i+1] == '}':
			b.WriteByte('}')
			i += 2
		case c == '{':
			end := matchingBrace(value, i)
			if end < 0 {
				return "", fmt.Errorf("unterminated substitution in %q", value)
			}
			repl, err := s.token(value[i+1:end], depth)
			if err != nil {
				return "", err
			}
			b.WriteString(repl)
			i = end + 1
		case c == '}':
			return "", fmt.Errorf("unmatched '}' in %q", value)
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

// matchingBrace returns the index of the '}' closing the '{' at open,
// or -1. Nesting is respected so {posargs:{envname}} scans correctly.
func matchingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (s *substituter) token(tok string, depth int) (string, error) {
	switch {
	case tok == "envname":
		return s.envName, nil

	case tok == "confdir":
		return s.cfg.Dir, nil

	case tok == "posargs" || strings.HasPrefix(tok, "posargs:"):
		if len(s.posArgs) > 0 {
			return joinArgs(s.posArgs), nil
		}
		if rest, ok := strings.CutPrefix(tok, "posargs:"); ok {
			return s.expandDepth(rest, depth+1)
		}
		return "", nil

	case strings.HasPrefix(tok, "env:"):
		spec := tok[len("env:"):]
		name, def, hasDef := strings.Cut(spec, ":")
		if name == "" {
			return "", fmt.Errorf("empty variable name in {env:...}")
		}
		if v, ok := s.environ(name); ok {
			return v, nil
		}
		if hasDef {
			return s.expandDepth(def, depth+1)
		}
		return "", fmt.Errorf("environment variable %s is not set and has no default", name)

	case strings.HasPrefix(tok, "["):
		end := strings.IndexByte(tok, ']')
		if end < 0 {
			return "", fmt.Errorf("malformed cross-reference {%s}", tok)
		}
		section := tok[1:end]
		key := tok[end+1:]
		if section == "" || key == "" {
			return "", fmt.Errorf("malformed cross-reference {%s}", tok)
		}
		ref := "[" + section + "]" + key
		if s.active[ref] {
			return "", fmt.Errorf("substitution cycle through {%s}", ref)
		}
		raw, ok := s.cfg.File.Get(section, key)
		if !ok {
			return "", fmt.Errorf("cross-reference {%s}: no such key", ref)
		}
		s.active[ref] = true
		defer delete(s.active, ref)
		return s.expandDepth(raw, depth+1)

	default:
		return "", fmt.Errorf("unknown substitution {%s}", tok)
	}
}

// joinArgs renders positional arguments back into a command line,
// quoting any argument that word-splitting would break apart.
func joinArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = quoteArg(a)
	}
	return strings.Join(quoted, " ")
}

func quoteArg(a string) string {
	if a == "" {
		return `""`
	}
	if strings.ContainsAny(a, " \t\"'") {
		return `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
	}
	return a
}
