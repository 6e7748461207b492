// Package runner drives one nightly run: update the sources, then test each
// buildout in order, record everything in a fresh report directory and mail
// the output of every failing buildout.
package runner

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/AndreyAkinshin/nightowl/internal/command"
	"github.com/AndreyAkinshin/nightowl/internal/config"
	owlerrors "github.com/AndreyAkinshin/nightowl/internal/errors"
	"github.com/AndreyAkinshin/nightowl/internal/logging"
	"github.com/AndreyAkinshin/nightowl/internal/mail"
	"github.com/AndreyAkinshin/nightowl/internal/metrics"
	"github.com/AndreyAkinshin/nightowl/internal/report"
	"github.com/AndreyAkinshin/nightowl/internal/testparser"
)

// Artifact names, without the .txt extension.
const (
	UpdateArtifact        = "update"
	testArtifactSuffix    = "_out"
	preTestArtifactSuffix = "_pre_test_out"
)

// TestArtifact names the artifact holding a buildout's test output.
func TestArtifact(buildout string) string {
	return buildout + testArtifactSuffix
}

// PreTestArtifact names the artifact holding a buildout's pre-test output.
func PreTestArtifact(buildout string) string {
	return buildout + preTestArtifactSuffix
}

// PushFunc publishes a finished run's summary.
type PushFunc func(ctx context.Context, gateway string, s *report.Summary) error

// Options configures a Runner. Zero values select the defaults.
type Options struct {
	// Sender delivers failure mail. Nil disables notifications.
	Sender mail.Sender
	// LogOutput receives report.txt once the run directory exists. Nil
	// skips the run log.
	LogOutput *logging.Output
	// Allocator creates the run directory.
	Allocator *report.Allocator
	// Now returns the current time.
	Now func() time.Time
	// Push publishes metrics when a gateway is configured.
	Push PushFunc
}

// Runner executes the run described by a Config.
type Runner struct {
	cfg      *config.Config
	exec     command.Executor
	log      zerolog.Logger
	opts     Options
	registry *testparser.Registry
}

// New creates a runner. It fails only if the configured summary patterns
// do not compile, which config.Load already rules out.
func New(cfg *config.Config, exec command.Executor, log zerolog.Logger, opts Options) (*Runner, error) {
	registry, err := testparser.NewRegistryWith(cfg.SummaryPatterns)
	if err != nil {
		return nil, owlerrors.WrapConfig(err, "invalid summary_patterns")
	}
	if opts.Allocator == nil {
		opts.Allocator = &report.DefaultAllocator
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Push == nil {
		opts.Push = metrics.Push
	}
	return &Runner{
		cfg:      cfg,
		exec:     exec,
		log:      log.With().Str("component", "runner").Logger(),
		opts:     opts,
		registry: registry,
	}, nil
}

// Run performs the whole run and returns its summary.
//
// Only fatal errors (report directory problems, bad pattern selections)
// abort the run; command, classification and mail failures are logged and
// recorded in the summary. Once the report directory exists an aborted or
// cancelled run still writes summary.yaml for the steps that completed.
func (r *Runner) Run(ctx context.Context) (*report.Summary, error) {
	started := r.opts.Now()

	run, err := r.opts.Allocator.Allocate(r.cfg.OutputRoot, started)
	if err != nil {
		return nil, err
	}
	if err := report.PointCurrent(run.Root, run.Path); err != nil {
		return nil, err
	}

	if r.opts.LogOutput != nil {
		f, err := run.OpenLog()
		if err != nil {
			return nil, err
		}
		r.opts.LogOutput.AttachReport(f)
		defer func() {
			if err := r.opts.LogOutput.Close(); err != nil {
				r.log.Error().Err(err).Msg("failed to close run log")
			}
		}()
	}

	log := r.log.With().Str("run_id", run.ID).Logger()
	log.Info().Str("report", run.Name()).Str("dir", run.Path).Msg("report directory ready")

	summary := &report.Summary{
		ID:        run.ID,
		Started:   started,
		Directory: run.Path,
	}

	summary.Update, err = r.step(ctx, log, run, "", "update", r.cfg.Dir, r.cfg.UpdateCommand, UpdateArtifact)
	if err != nil {
		return r.finish(ctx, log, run, summary, err)
	}

	for _, b := range r.cfg.Buildouts {
		if err := ctx.Err(); err != nil {
			return r.finish(ctx, log, run, summary, owlerrors.Wrap(err, "run interrupted"))
		}

		result, err := r.runBuildout(ctx, log, run, b)
		summary.Buildouts = append(summary.Buildouts, result)
		if err != nil {
			if owlerrors.IsFatal(err) {
				return r.finish(ctx, log, run, summary, err)
			}
			log.Error().Err(err).Str("buildout", b.Name).Msg("buildout skipped")
		}
	}

	return r.finish(ctx, log, run, summary, nil)
}

func (r *Runner) runBuildout(ctx context.Context, log zerolog.Logger, run *report.Run, b config.Buildout) (report.BuildoutResult, error) {
	log = log.With().Str("buildout", b.Name).Logger()
	result := report.BuildoutResult{Name: b.Name}

	if b.HasPreTest() {
		log.Info().Msg("updating")
		pre, err := r.step(ctx, log, run, b.Name, "pre_test", b.Path, b.PreTestCommand, PreTestArtifact(b.Name))
		if err != nil {
			return result, err
		}
		result.PreTest = &pre
	}

	log.Info().Msg("running tests")
	test, out, err := r.stepOutput(ctx, log, run, b.Name, "test", b.Path, b.TestCommand, TestArtifact(b.Name))
	if err != nil {
		return result, err
	}
	result.Test = test

	outcome, err := r.classify(b, out)
	if err != nil {
		return result, err
	}
	result.Status = outcome.Status()
	result.Pattern = outcome.Pattern
	result.Tests = outcome.Tests
	result.Failures = outcome.Failures
	result.Errors = outcome.Errors
	result.ImportErrors = outcome.HasImportErrors

	switch {
	case !outcome.IsParsed():
		log.Error().Err(owlerrors.Classification(b.Name)).Msg("unexpected output from test process")
	case outcome.Passed():
		log.Info().Int("tests", outcome.Tests).Msg("tests successful")
	default:
		if outcome.HasImportErrors {
			log.Warn().Msg("test modules failed to import")
		}
		log.Info().
			Int("tests", outcome.Tests).
			Int("failures", outcome.Failures).
			Int("errors", outcome.Errors).
			Msg("tests failed")
	}

	if outcome.NeedsNotification() {
		result.Notified, result.MailError = r.notify(ctx, log, b.Name, out)
	}
	return result, nil
}

func (r *Runner) classify(b config.Buildout, out string) (testparser.Outcome, error) {
	patterns, err := r.registry.Select(b.Patterns)
	if err != nil {
		return testparser.Outcome{}, owlerrors.WrapConfig(err, b.Name+".patterns")
	}
	return testparser.NewClassifier(patterns, r.cfg.ImportFailureMarker).Classify(out), nil
}

// notify mails the failing output. It reports whether the message was
// handed to the server and, if not entirely, why.
func (r *Runner) notify(ctx context.Context, log zerolog.Logger, buildout, out string) (bool, string) {
	if r.opts.Sender == nil || !r.cfg.MailEnabled() {
		log.Debug().Msg("notifications disabled")
		return false, ""
	}

	err := r.opts.Sender.Notify(ctx, r.cfg.ErrorEmails, mail.FailureSubject(buildout), out)

	var refused *mail.RecipientsRefusedError
	var smtpErr *mail.SMTPError
	switch {
	case err == nil:
		return true, ""
	case errors.As(err, &refused):
		log.Error().Err(owlerrors.Mail(buildout, err)).Strs("recipients", refused.Recipients()).Msg("SMTP recipients refused")
		return refused.Delivered(), err.Error()
	case errors.As(err, &smtpErr):
		log.Error().Err(owlerrors.Mail(buildout, smtpErr.Cause)).Str("op", smtpErr.Op).Msg("SMTP error")
		return false, err.Error()
	default:
		log.Error().Err(owlerrors.Mail(buildout, err)).Msg("SMTP error")
		return false, err.Error()
	}
}

// step runs one command and stores its output as an artifact.
func (r *Runner) step(ctx context.Context, log zerolog.Logger, run *report.Run, buildout, name, dir, commandLine, artifact string) (report.StepResult, error) {
	result, _, err := r.stepOutput(ctx, log, run, buildout, name, dir, commandLine, artifact)
	return result, err
}

// stepOutput is step that also returns the captured output. A command that
// cannot be launched is logged and recorded with empty output; only a
// failed artifact write is returned as an error.
func (r *Runner) stepOutput(ctx context.Context, log zerolog.Logger, run *report.Run, buildout, name, dir, commandLine, artifact string) (report.StepResult, string, error) {
	result := report.StepResult{
		Command:  commandLine,
		Artifact: artifact + ".txt",
	}

	out, err := r.exec.Run(ctx, dir, commandLine)
	if err != nil {
		launchErr := owlerrors.Command(buildout, name, err)
		log.Error().Err(launchErr).Msg("command failed to start")
		result.Error = err.Error()
		out = ""
	}

	if err := run.WriteArtifact(artifact, out); err != nil {
		return result, "", owlerrors.Report(err, "failed to write artifact")
	}
	return result, out, nil
}

// finish writes the summary and pushes metrics. runErr is returned as is.
func (r *Runner) finish(ctx context.Context, log zerolog.Logger, run *report.Run, summary *report.Summary, runErr error) (*report.Summary, error) {
	summary.Finished = r.opts.Now()

	if err := run.WriteSummary(summary); err != nil {
		log.Error().Err(err).Msg("failed to write summary")
	}

	if r.cfg.MetricsGateway != "" && runErr == nil {
		if err := r.opts.Push(ctx, r.cfg.MetricsGateway, summary); err != nil {
			log.Warn().Err(err).Msg("failed to push metrics")
		}
	}

	failed := len(summary.Failed())
	log.Info().
		Int("buildouts", len(summary.Buildouts)).
		Int("failed", failed).
		Msg("run finished")
	return summary, runErr
}
