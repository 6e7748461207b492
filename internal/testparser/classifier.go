package testparser

import (
	"strings"

	"github.com/acarl005/stripansi"
)

// Classifier turns raw test output into an Outcome.
type Classifier struct {
	patterns     []Pattern
	importMarker string
}

// NewClassifier creates a classifier that tries patterns in the given order.
// An empty importMarker disables the import-failure check.
func NewClassifier(patterns []Pattern, importMarker string) *Classifier {
	ps := make([]Pattern, len(patterns))
	copy(ps, patterns)
	return &Classifier{
		patterns:     ps,
		importMarker: importMarker,
	}
}

// NewDefaultClassifier creates a classifier with the built-in patterns and
// the zope.testrunner import-failure marker.
func NewDefaultClassifier() *Classifier {
	return NewClassifier(BuiltinPatterns(), DefaultImportFailureMarker)
}

// Patterns returns the pattern names in the order they are tried.
func (c *Classifier) Patterns() []string {
	names := make([]string, 0, len(c.patterns))
	for _, p := range c.patterns {
		names = append(names, p.Name)
	}
	return names
}

// Classify applies the summary patterns to raw in priority order and returns
// the first match, or an Unparseable outcome. ANSI color codes are stripped
// first since several runners colorize their summary line.
func (c *Classifier) Classify(raw string) Outcome {
	text := stripansi.Strip(raw)

	outcome := Outcome{Kind: Unparseable}
	for _, p := range c.patterns {
		if o, ok := extract(p, text); ok {
			outcome = o
			break
		}
	}

	if c.importMarker != "" && strings.Contains(text, c.importMarker) {
		outcome.HasImportErrors = true
	}

	return outcome
}
