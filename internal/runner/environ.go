package runner

import (
	"path"
	"strings"

	"testmatrix/internal/matrix"
)

// Variables forwarded into every environment regardless of passenv.
// Commands are unrunnable without PATH; the rest keep subprocess
// toolchains from misbehaving in surprising ways.
var alwaysPass = []string{"PATH", "HOME", "TMPDIR", "LANG", "LC_ALL"}

// buildEnviron computes the subprocess environment for env: the parent
// environment filtered through passenv patterns, the setenv overlay, and
// MATRIX_ENV_NAME for the environment's own use.
func buildEnviron(parent []string, env *matrix.Environment) []string {
	patterns := make([]string, 0, len(alwaysPass)+len(env.PassEnv))
	patterns = append(patterns, alwaysPass...)
	patterns = append(patterns, env.PassEnv...)

	var out []string
	seen := make(map[string]int)
	for _, kv := range parent {
		name, _, ok := strings.Cut(kv, "=")
		if !ok || !matchAny(name, patterns) {
			continue
		}
		seen[name] = len(out)
		out = append(out, kv)
	}

	for _, sv := range env.SetEnv {
		kv := sv.Name + "=" + sv.Value
		if i, ok := seen[sv.Name]; ok {
			out[i] = kv
			continue
		}
		seen[sv.Name] = len(out)
		out = append(out, kv)
	}

	kv := "MATRIX_ENV_NAME=" + env.Name
	if i, ok := seen["MATRIX_ENV_NAME"]; ok {
		out[i] = kv
	} else {
		out = append(out, kv)
	}
	return out
}

// matchAny reports whether name matches one of the passenv patterns.
// Patterns are exact names or globs (CI_*); matching is case-sensitive.
func matchAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if p == name {
			return true
		}
		if strings.ContainsAny(p, "*?[") {
			if ok, err := path.Match(p, name); err == nil && ok {
				return true
			}
		}
	}
	return false
}
