// Package testparser classifies the free-text output of test runners.
//
// A Classifier tries an ordered list of summary patterns against the whole
// output and stops at the first one that matches. Each pattern is a regular
// expression with named groups; a small interpreter (see extract) turns the
// captured groups into counts.
package testparser

// Kind tags an Outcome.
type Kind int

const (
	// Unparseable means no summary pattern matched the output.
	Unparseable Kind = iota
	// Parsed means a summary pattern matched and counts were extracted.
	Parsed
)

func (k Kind) String() string {
	if k == Parsed {
		return "parsed"
	}
	return "unparseable"
}

// Outcome is the result of classifying one test run.
type Outcome struct {
	Kind Kind

	// Counts are only meaningful when Kind is Parsed.
	Tests    int
	Failures int
	Errors   int

	// Pattern is the name of the summary pattern that matched.
	Pattern string

	// BooleanOnly is set for formats that only report OK/FAILED. Failures is
	// then 0 or 1 and must be read as a verdict, not a count.
	BooleanOnly bool

	// HasImportErrors is set when the raw output contains the import-failure
	// marker, independently of the summary match.
	HasImportErrors bool
}

// IsParsed reports whether a summary pattern matched.
func (o Outcome) IsParsed() bool {
	return o.Kind == Parsed
}

// Passed reports whether the run is a clean pass.
func (o Outcome) Passed() bool {
	return o.Kind == Parsed && o.Failures == 0 && o.Errors == 0 && !o.HasImportErrors
}

// NeedsNotification reports whether a failure mail should be sent.
func (o Outcome) NeedsNotification() bool {
	return !o.Passed()
}

// Status returns a one-word description: "passed", "failed" or "unparseable".
func (o Outcome) Status() string {
	switch {
	case o.Kind != Parsed:
		return "unparseable"
	case o.Passed():
		return "passed"
	default:
		return "failed"
	}
}
