// Package errors provides structured error types and exit codes for nightowl.
//
// Only configuration and report allocation errors stop a run. Command,
// classification and mail errors are scoped to a single step or buildout:
// the runner logs them and moves on.
package errors

import (
	"errors"
	"fmt"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess      = 0 // Run completed, whatever the buildout results
	ExitRuntimeError = 1 // Run aborted (report directory could not be created, etc.)
	ExitConfigError  = 2 // Invalid config or invalid command-line usage
)

// ErrorKind represents the type of error.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindConfig
	KindUsage
	KindReport
	KindCommand
	KindClassification
	KindMail
)

// String returns a short lowercase name for the kind, used in log fields.
func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindUsage:
		return "usage"
	case KindReport:
		return "report"
	case KindCommand:
		return "command"
	case KindClassification:
		return "classification"
	case KindMail:
		return "mail"
	default:
		return "runtime"
	}
}

// OwlError is the base error type for nightowl.
type OwlError struct {
	Kind     ErrorKind
	Message  string
	Buildout string // Buildout name if applicable
	Step     string // Step name if applicable ("update", "pre_test", "test")
	Cause    error  // Underlying error
}

func (e *OwlError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Buildout != "" && e.Step != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Buildout, e.Step, msg)
	}
	if e.Buildout != "" {
		return fmt.Sprintf("[%s] %s", e.Buildout, msg)
	}
	return msg
}

func (e *OwlError) Unwrap() error {
	return e.Cause
}

// Fatal reports whether the error must abort the whole run.
func (e *OwlError) Fatal() bool {
	switch e.Kind {
	case KindConfig, KindUsage, KindReport, KindRuntime:
		return true
	default:
		return false
	}
}

// ExitCode returns the appropriate exit code for this error.
func (e *OwlError) ExitCode() int {
	switch e.Kind {
	case KindConfig, KindUsage:
		return ExitConfigError
	default:
		return ExitRuntimeError
	}
}

// New creates a new runtime error.
func New(message string) *OwlError {
	return &OwlError{
		Kind:    KindRuntime,
		Message: message,
	}
}

// Newf creates a new runtime error with formatting.
func Newf(format string, args ...interface{}) *OwlError {
	return New(fmt.Sprintf(format, args...))
}

// Config creates a new configuration error.
func Config(message string) *OwlError {
	return &OwlError{
		Kind:    KindConfig,
		Message: message,
	}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...interface{}) *OwlError {
	return Config(fmt.Sprintf(format, args...))
}

// WrapConfig wraps err as a configuration error.
func WrapConfig(err error, message string) *OwlError {
	return &OwlError{
		Kind:    KindConfig,
		Message: message,
		Cause:   err,
	}
}

// Usage creates a command-line usage error.
func Usage(message string) *OwlError {
	return &OwlError{
		Kind:    KindUsage,
		Message: message,
	}
}

// Report creates a report allocation error.
func Report(err error, message string) *OwlError {
	return &OwlError{
		Kind:    KindReport,
		Message: message,
		Cause:   err,
	}
}

// Command creates an error for a command that could not be launched.
func Command(buildout, step string, err error) *OwlError {
	return &OwlError{
		Kind:     KindCommand,
		Message:  "could not launch command",
		Buildout: buildout,
		Step:     step,
		Cause:    err,
	}
}

// Classification creates an error for test output no summary pattern matched.
func Classification(buildout string) *OwlError {
	return &OwlError{
		Kind:     KindClassification,
		Message:  "unexpected output from test process",
		Buildout: buildout,
		Step:     "test",
	}
}

// Mail creates an error for a failure notification that did not reach every
// recipient.
func Mail(buildout string, err error) *OwlError {
	return &OwlError{
		Kind:     KindMail,
		Message:  "failure notification not delivered",
		Buildout: buildout,
		Step:     "notify",
		Cause:    err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) *OwlError {
	return &OwlError{
		Kind:    KindRuntime,
		Message: message,
		Cause:   err,
	}
}

// Is reports whether err is or wraps an OwlError of the given kind.
func Is(err error, kind ErrorKind) bool {
	var oe *OwlError
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}

// IsFatal reports whether err must abort the run. Errors that are not an
// OwlError are fatal.
func IsFatal(err error) bool {
	var oe *OwlError
	if errors.As(err, &oe) {
		return oe.Fatal()
	}
	return true
}

// GetExitCode returns the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var oe *OwlError
	if errors.As(err, &oe) {
		return oe.ExitCode()
	}
	return ExitRuntimeError
}
