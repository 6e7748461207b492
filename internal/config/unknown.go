package config

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// detectUnknownKeys warns about keys nightowl does not read and sections
// no buildout refers to.
func detectUnknownKeys(doc *document, cfg *Config) []string {
	var warnings []string

	listed := make(map[string]bool, len(cfg.Buildouts))
	for _, b := range cfg.Buildouts {
		listed[b.Name] = true
	}

	knownMain := getKoanfFields(reflect.TypeOf(MainSettings{}))
	knownBuildout := getKoanfFields(reflect.TypeOf(buildoutSection{}))

	for _, name := range doc.order {
		var known map[string]bool
		switch {
		case name == MainSection:
			known = knownMain
		case listed[name]:
			known = knownBuildout
		default:
			warnings = append(warnings, fmt.Sprintf("section %q is not listed in buildouts (ignored)", name))
			continue
		}

		for _, key := range sortedKeys(doc.sections[name]) {
			if !known[key] {
				warnings = append(warnings, fmt.Sprintf("unknown key %q in section %q (ignored)", key, name))
			}
		}
	}

	return warnings
}

// getKoanfFields returns a map of known koanf key names for a struct type.
func getKoanfFields(t reflect.Type) map[string]bool {
	fields := make(map[string]bool)
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		if name := strings.Split(tag, ",")[0]; name != "" {
			fields[name] = true
		}
	}
	return fields
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
