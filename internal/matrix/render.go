package matrix

import (
	"strings"

	"testmatrix/internal/ini"
)

// Keys rendered one value per line regardless of how the source wrote
// them. Everything else renders inline.
var multiLineKeys = map[string]bool{
	"envlist":  true,
	"deps":     true,
	"setenv":   true,
	"commands": true,
}

// Render produces the canonical text form of the configuration: sections
// and keys in source order, normalized spacing, multi-valued keys one
// entry per line indented four spaces. Rendering a canonical file is a
// fixed point: Render(Parse(Render(x))) == Render(x).
func (c *Config) Render() string {
	var b strings.Builder
	for i, section := range c.File.Sections {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteByte('[')
		b.WriteString(section.Name)
		b.WriteString("]\n")
		for _, k := range section.Keys {
			renderKey(&b, k)
		}
	}
	return b.String()
}

func renderKey(b *strings.Builder, k *ini.Key) {
	if multiLineKeys[k.Name] {
		values := splitForRender(k)
		if len(values) == 0 {
			b.WriteString(k.Name)
			b.WriteString(" =\n")
			return
		}
		b.WriteString(k.Name)
		b.WriteString(" =\n")
		for _, v := range values {
			b.WriteString("    ")
			b.WriteString(v)
			b.WriteByte('\n')
		}
		return
	}

	b.WriteString(k.Name)
	b.WriteString(" = ")
	b.WriteString(strings.Join(ini.Lines(k.Value), " "))
	b.WriteByte('\n')
}

// splitForRender breaks a multi-valued key into entries. envlist splits
// on top-level commas (brace groups stay whole), deps on commas and
// newlines; setenv and commands are line-oriented only, since their
// values may contain literal commas.
func splitForRender(k *ini.Key) []string {
	switch k.Name {
	case "envlist":
		return splitTopLevel(k.Value)
	case "deps":
		return ini.List(k.Value)
	}
	return ini.Lines(k.Value)
}
