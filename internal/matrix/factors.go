package matrix

import (
	"fmt"
	"regexp"
	"strings"
)

// expandBraces expands generative names like "py{38,39}-{lint,test}" into
// the cross product of their alternatives. A name without braces expands
// to itself.
func expandBraces(name string) ([]string, error) {
	open := strings.IndexByte(name, '{')
	if open < 0 {
		if strings.ContainsRune(name, '}') {
			return nil, fmt.Errorf("unmatched '}' in %q", name)
		}
		return []string{name}, nil
	}
	end := strings.IndexByte(name[open:], '}')
	if end < 0 {
		return nil, fmt.Errorf("unmatched '{' in %q", name)
	}
	end += open

	prefix := name[:open]
	alts := strings.Split(name[open+1:end], ",")
	rest := name[end+1:]

	tails, err := expandBraces(rest)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, alt := range alts {
		alt = strings.TrimSpace(alt)
		for _, tail := range tails {
			out = append(out, prefix+alt+tail)
		}
	}
	return out, nil
}

// splitTopLevel splits an envlist value on commas and newlines that are
// not inside braces, so generative names like py{38,39} survive intact.
func splitTopLevel(value string) []string {
	var out []string
	depth := 0
	start := 0
	flush := func(end int) {
		if s := strings.TrimSpace(value[start:end]); s != "" {
			out = append(out, s)
		}
	}
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',', '\n':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(value))
	return out
}

// splitFactors returns the hyphen-separated parts of an env name.
func splitFactors(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, "-")
}

// hasFactors reports whether the environment name carries every factor in
// the hyphen-joined expression. Matching is on whole factors: "py3" does
// not match "py38".
func hasFactors(envName, expr string) bool {
	have := make(map[string]bool)
	for _, f := range splitFactors(envName) {
		have[f] = true
	}
	for _, want := range strings.Split(expr, "-") {
		if !have[want] {
			return false
		}
	}
	return true
}

var versionFactorRe = regexp.MustCompile(`^py(\d)(\d*)$`)

// interpreterForName derives the default interpreter label from a version
// factor in the environment name: py38 -> python3.8, py310 -> python3.10,
// py2 -> python2, pypy3 -> pypy3. Returns "" when no factor applies.
func interpreterForName(name string) string {
	for _, factor := range splitFactors(name) {
		switch {
		case factor == "pypy" || strings.HasPrefix(factor, "pypy"):
			return factor
		case factor == "py":
			return "python"
		}
		if m := versionFactorRe.FindStringSubmatch(factor); m != nil {
			if m[2] == "" {
				return "python" + m[1]
			}
			return "python" + m[1] + "." + m[2]
		}
	}
	return ""
}

// hasVersionFactor reports whether the name carries an interpreter version
// factor. Environments named only in envlist still resolve from defaults
// when this holds.
func hasVersionFactor(name string) bool {
	return interpreterForName(name) != ""
}
