// Package nightowl provides public constants for tools that wrap the
// nightowl CLI, such as cron wrappers and CI jobs.
package nightowl

// Exit codes returned by the nightowl CLI.
//
// A run in which buildouts fail still exits with ExitSuccess: buildout health
// is reported through the report directory and failure mail, never through
// the exit status.
const (
	// ExitSuccess indicates the run completed.
	ExitSuccess = 0

	// ExitFailure indicates the run was aborted (report directory could not be created, etc.).
	ExitFailure = 1

	// ExitConfigError indicates an invalid config file or invalid command-line usage.
	ExitConfigError = 2
)
