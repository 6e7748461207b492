package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Summary is the machine-readable record of a run, written to summary.yaml.
type Summary struct {
	ID        string           `yaml:"id"`
	Started   time.Time        `yaml:"started"`
	Finished  time.Time        `yaml:"finished"`
	Directory string           `yaml:"directory"`
	Update    StepResult       `yaml:"update"`
	Buildouts []BuildoutResult `yaml:"buildouts"`
}

// StepResult records one command.
type StepResult struct {
	Command  string `yaml:"command"`
	Artifact string `yaml:"artifact"`
	// Error is set when the command could not be launched.
	Error string `yaml:"error,omitempty"`
}

// BuildoutResult records one buildout's test run.
type BuildoutResult struct {
	Name     string      `yaml:"name"`
	PreTest  *StepResult `yaml:"pre_test,omitempty"`
	Test     StepResult  `yaml:"test"`
	Status   string      `yaml:"status"`
	Pattern  string      `yaml:"pattern,omitempty"`
	Tests    int         `yaml:"tests"`
	Failures int         `yaml:"failures"`
	Errors   int         `yaml:"errors"`
	// ImportErrors is set when the output contained the import failure marker.
	ImportErrors bool `yaml:"import_errors,omitempty"`
	Notified     bool `yaml:"notified"`
	// MailError is set when the notification could not be delivered.
	MailError string `yaml:"mail_error,omitempty"`
}

// Failed reports whether the buildout did not pass.
func (b BuildoutResult) Failed() bool {
	return b.Status != "passed"
}

// Failed returns the buildouts that did not pass.
func (s *Summary) Failed() []BuildoutResult {
	var failed []BuildoutResult
	for _, b := range s.Buildouts {
		if b.Failed() {
			failed = append(failed, b)
		}
	}
	return failed
}

// WriteSummary writes s to summary.yaml in the run directory.
func (r *Run) WriteSummary(s *Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(r.Path, SummaryFileName), data, 0644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// ReadSummary loads a summary.yaml written by WriteSummary.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &s, nil
}
