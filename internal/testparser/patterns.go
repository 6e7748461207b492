package testparser

import (
	"fmt"
	"regexp"
	"strconv"
)

// Named groups understood by the pattern interpreter.
const (
	GroupTests    = "tests"
	GroupFailures = "failures"
	GroupErrors   = "errors"
	GroupResult   = "result"
)

// Names of the built-in summary patterns, in priority order.
const (
	PatternZopeTotal = "zope-total"
	PatternZopeRan   = "zope-ran"
	PatternUnittest  = "unittest"
)

// DefaultImportFailureMarker is printed by zope.testrunner when test modules
// cannot be imported. Such runs may still report zero failures.
const DefaultImportFailureMarker = "Test-module import failures"

// Pattern is a named summary regexp.
//
// The regexp must capture GroupTests, and either GroupResult (OK/FAILED)
// or at least one of GroupFailures and GroupErrors.
type Pattern struct {
	Name   string
	Regexp *regexp.Regexp
}

// Static regexes for the built-in summary formats.
// Compiled once at package init.
var (
	// Total: 10 tests, 2 failures, 1 errors
	zopeTotalRegex = regexp.MustCompile(
		`Total: (?P<tests>\d+) tests?, (?P<failures>\d+) failures?, (?P<errors>\d+) errors?`)

	// Ran 10 tests with 2 failures and 1 errors in 3.210 seconds.
	zopeRanRegex = regexp.MustCompile(
		`Ran (?P<tests>\d+) tests? with (?P<failures>\d+) failures? and (?P<errors>\d+) errors? in [\d.]+ seconds`)

	// Ran 5 tests in 1.234s
	//
	// OK
	unittestRegex = regexp.MustCompile(
		`Ran (?P<tests>\d+) tests? in [\d.]+s\s+(?P<result>OK|FAILED)`)
)

// BuiltinPatterns returns the built-in summary patterns in priority order.
// The aggregate zope "Total:" line wins over the per-layer "Ran ... with"
// lines; the unittest format comes last.
func BuiltinPatterns() []Pattern {
	return []Pattern{
		{Name: PatternZopeTotal, Regexp: zopeTotalRegex},
		{Name: PatternZopeRan, Regexp: zopeRanRegex},
		{Name: PatternUnittest, Regexp: unittestRegex},
	}
}

// CompilePattern compiles a user-supplied summary regexp and checks that it
// captures the groups the interpreter needs.
func CompilePattern(name, expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("pattern %q: %w", name, err)
	}

	groups := make(map[string]bool)
	for _, g := range re.SubexpNames() {
		if g != "" {
			groups[g] = true
		}
	}

	if !groups[GroupTests] {
		return Pattern{}, fmt.Errorf("pattern %q: missing named group %q", name, GroupTests)
	}
	if !groups[GroupResult] && !groups[GroupFailures] && !groups[GroupErrors] {
		return Pattern{}, fmt.Errorf("pattern %q: needs a %q group or %q/%q groups",
			name, GroupResult, GroupFailures, GroupErrors)
	}

	return Pattern{Name: name, Regexp: re}, nil
}

// extract runs p against output and interprets the named groups.
// Returns false if the pattern does not match.
func extract(p Pattern, output string) (Outcome, bool) {
	match := p.Regexp.FindStringSubmatch(output)
	if match == nil {
		return Outcome{}, false
	}

	groups := make(map[string]string, len(match))
	for i, name := range p.Regexp.SubexpNames() {
		if name != "" && i < len(match) {
			groups[name] = match[i]
		}
	}

	outcome := Outcome{Kind: Parsed, Pattern: p.Name}
	outcome.Tests = atoi(groups[GroupTests])

	_, hasFailures := groups[GroupFailures]
	_, hasErrors := groups[GroupErrors]
	if hasFailures || hasErrors {
		outcome.Failures = atoi(groups[GroupFailures])
		outcome.Errors = atoi(groups[GroupErrors])
		return outcome, true
	}

	// Boolean-only formats: OK maps to no failures, FAILED to one failure.
	outcome.BooleanOnly = true
	if groups[GroupResult] != "OK" {
		outcome.Failures = 1
	}
	return outcome, true
}

// atoi converts a captured digit run. Non-matching optional groups capture
// the empty string, which reads as zero.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
