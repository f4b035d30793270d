// Package testutil holds helpers shared by this repo's tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// MakeFile writes a file for a test, creating parent directories as
// needed. The text is dedented first so call sites can indent file
// bodies naturally inside test source. Returns the path.
func MakeFile(t *testing.T, path, text string) string {
	t.Helper()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(Dedent(text)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// MakeMatrixFile writes a matrix config into dir and returns its path.
func MakeMatrixFile(t *testing.T, dir, text string) string {
	t.Helper()
	return MakeFile(t, filepath.Join(dir, "matrix.ini"), text)
}

// Dedent removes the longest common leading whitespace from every
// non-blank line.
func Dedent(text string) string {
	lines := strings.Split(text, "\n")

	prefix := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			prefix = indent
			first = false
			continue
		}
		for !strings.HasPrefix(indent, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	if prefix == "" {
		return text
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Join(lines, "\n")
}
