package config

import (
	"strings"

	"gopkg.in/ini.v1"
)

// document is a parsed INI file: sections in file order, each a map of
// lowercased keys to interpolated values. The DEFAULT section is used for
// interpolation only and is not part of the document.
type document struct {
	order    []string
	sections map[string]map[string]string
}

var iniOptions = ini.LoadOptions{
	// Indented continuation lines extend the previous value, as in
	// Python's ConfigParser, so lists can span several lines.
	AllowPythonMultilineValues: true,
	// Shell commands may legitimately contain '#' and ';'.
	IgnoreInlineComment: true,
	InsensitiveKeys:     true,
}

// parseDocument parses INI data. Values have %(key)s references resolved
// against the same section, then DEFAULT.
func parseDocument(data []byte) (*document, error) {
	f, err := ini.LoadSources(iniOptions, data)
	if err != nil {
		return nil, err
	}

	doc := &document{sections: make(map[string]map[string]string)}
	for _, sec := range f.Sections() {
		name := sec.Name()
		if name == ini.DefaultSection {
			continue
		}
		values := make(map[string]string, len(sec.Keys()))
		for _, key := range sec.Keys() {
			values[key.Name()] = key.String()
		}
		doc.order = append(doc.order, name)
		doc.sections[name] = values
	}
	return doc, nil
}

func (d *document) section(name string) (map[string]string, bool) {
	s, ok := d.sections[name]
	return s, ok
}

// values returns the document in the shape the schema validator expects.
func (d *document) values() map[string]map[string]string {
	return d.sections
}

// parseList splits a newline-separated value, trimming entries and dropping
// blank lines.
func parseList(value string) []string {
	var items []string
	for _, line := range strings.Split(value, "\n") {
		if item := strings.TrimSpace(line); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// uniqueList drops repeated entries, keeping the first occurrence. The
// repeats are returned once each.
func uniqueList(items []string) (unique, repeated []string) {
	seen := make(map[string]int, len(items))
	for _, item := range items {
		seen[item]++
		switch seen[item] {
		case 1:
			unique = append(unique, item)
		case 2:
			repeated = append(repeated, item)
		}
	}
	return unique, repeated
}

// parseWords splits a value on commas and whitespace.
func parseWords(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}
