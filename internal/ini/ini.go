// Package ini reads the sectioned configuration dialect used by matrix files.
//
// The dialect is INI-like: `[section]` headers, `key = value` pairs, and
// multi-line values written as indented continuation lines below the key.
// Full-line comments start with `#` or `;`. Section and key order is
// preserved so the file can be re-rendered canonically.
package ini

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// File is a parsed configuration file.
type File struct {
	// Path is the source path, used in error positions. Empty for readers.
	Path string

	// Sections in definition order.
	Sections []*Section
}

// Section is a named `[...]` block.
type Section struct {
	Name string
	Line int

	// Keys in definition order.
	Keys []*Key
}

// Key is a single `key = value` entry. Value holds continuation lines
// joined with newlines; a key with no inline value and no continuations
// has an empty Value.
type Key struct {
	Name  string
	Value string
	Line  int
}

// ParseError is a parse failure with a file position.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	path := e.Path
	if path == "" {
		path = "<input>"
	}
	return fmt.Sprintf("%s:%d: %s", path, e.Line, e.Msg)
}

// Load parses the file at path.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	parsed, err := Parse(f, path)
	if err != nil {
		return nil, err
	}
	return parsed, nil
}

// Parse reads a configuration file from r. The path is only used for
// error positions.
func Parse(r io.Reader, path string) (*File, error) {
	file := &File{Path: path}

	var (
		section *Section
		key     *Key
		lineNo  int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		// Blank lines and full-line comments end nothing; a value may
		// continue after them only if the next line is still indented,
		// which the continuation branch below handles naturally.
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") {
			continue
		}

		// Section header.
		if strings.HasPrefix(trimmed, "[") {
			if !strings.HasSuffix(trimmed, "]") {
				return nil, &ParseError{Path: path, Line: lineNo, Msg: "unterminated section header"}
			}
			name := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
			if name == "" {
				return nil, &ParseError{Path: path, Line: lineNo, Msg: "empty section name"}
			}
			if file.section(name) != nil {
				return nil, &ParseError{Path: path, Line: lineNo, Msg: fmt.Sprintf("duplicate section [%s]", name)}
			}
			section = &Section{Name: name, Line: lineNo}
			file.Sections = append(file.Sections, section)
			key = nil
			continue
		}

		// Continuation: indented line under the current key.
		if line != trimmed && len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			if key == nil {
				return nil, &ParseError{Path: path, Line: lineNo, Msg: "continuation line with no preceding key"}
			}
			if key.Value == "" {
				key.Value = trimmed
			} else {
				key.Value += "\n" + trimmed
			}
			continue
		}

		// Key line.
		if section == nil {
			return nil, &ParseError{Path: path, Line: lineNo, Msg: "content outside of any section"}
		}
		name, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			return nil, &ParseError{Path: path, Line: lineNo, Msg: fmt.Sprintf("expected key = value, got %q", trimmed)}
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, &ParseError{Path: path, Line: lineNo, Msg: "empty key name"}
		}
		if section.key(name) != nil {
			return nil, &ParseError{Path: path, Line: lineNo, Msg: fmt.Sprintf("duplicate key %q in [%s]", name, section.Name)}
		}
		key = &Key{Name: name, Value: strings.TrimSpace(value), Line: lineNo}
		section.Keys = append(section.Keys, key)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return file, nil
}

// Section returns the named section, or nil.
func (f *File) Section(name string) *Section {
	return f.section(name)
}

func (f *File) section(name string) *Section {
	for _, s := range f.Sections {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Get returns a key's value from the named section.
func (f *File) Get(section, key string) (string, bool) {
	s := f.section(section)
	if s == nil {
		return "", false
	}
	return s.Get(key)
}

// Get returns the value for key.
func (s *Section) Get(name string) (string, bool) {
	k := s.key(name)
	if k == nil {
		return "", false
	}
	return k.Value, true
}

// Key returns the named key entry, or nil.
func (s *Section) Key(name string) *Key {
	return s.key(name)
}

func (s *Section) key(name string) *Key {
	for _, k := range s.Keys {
		if k.Name == name {
			return k
		}
	}
	return nil
}

// Lines splits a multi-line value into its non-empty lines.
func Lines(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(value, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// List splits a value on commas and newlines, trimming each element.
// Used for envlist-style values.
func List(value string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == '\n'
	}) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
