// Package cli provides the nightowl command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AndreyAkinshin/nightowl/internal/command"
	"github.com/AndreyAkinshin/nightowl/internal/config"
	"github.com/AndreyAkinshin/nightowl/internal/errors"
	"github.com/AndreyAkinshin/nightowl/internal/logging"
	"github.com/AndreyAkinshin/nightowl/internal/mail"
	"github.com/AndreyAkinshin/nightowl/internal/output"
	"github.com/AndreyAkinshin/nightowl/internal/runner"
)

// Version is set at build time.
var Version = "dev"

// DefaultConfigName is the config file looked up next to the install prefix.
const DefaultConfigName = "owl.cfg"

// GlobalOptions holds parsed flags.
type GlobalOptions struct {
	Quiet        bool
	Verbose      bool
	NoMail       bool
	ListPatterns bool
	Classify     string
	Buildout     string
	TestMail     string
}

// Verbosity maps the flags to a console verbosity.
func (o *GlobalOptions) Verbosity() logging.Verbosity {
	switch {
	case o.Verbose:
		return logging.VerbosityVerbose
	case o.Quiet:
		return logging.VerbosityQuiet
	default:
		return logging.VerbosityDefault
	}
}

// app carries the process streams so tests can capture them.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	out    *output.Writer
	opts   GlobalOptions
	// defaultConfig returns the config path used when none is given.
	defaultConfig func() (string, error)
}

// Run executes the CLI with the given arguments and returns an exit code.
func Run(args []string) int {
	a := &app{
		stdin:         os.Stdin,
		stdout:        os.Stdout,
		stderr:        os.Stderr,
		out:           output.New(),
		defaultConfig: defaultConfigPath,
	}
	return a.run(args)
}

func (a *app) run(args []string) int {
	cmd := a.newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		return errors.ExitSuccess
	}

	if errors.Is(err, errors.KindUsage) {
		a.out.ErrorPrefix("%v", err)
		fmt.Fprint(a.stderr, cmd.UsageString())
		return errors.ExitConfigError
	}
	a.out.ErrorPrefix("%v", err)
	return errors.GetExitCode(err)
}

func (a *app) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nightowl [flags] [config]",
		Short: "nightowl - nightly build and test runner",
		Long: `nightowl updates the sources, runs the test suite of every configured
buildout, stores all output in a dated report directory and mails the
output of failing buildouts.

The config defaults to <prefix>/` + DefaultConfigName + `, where <prefix> is the parent
of the directory holding the nightowl executable.`,
		Version: Version,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 1 {
				return errors.Usage(fmt.Sprintf("expected at most one config path, got %d arguments", len(args)))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.execute(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("nightowl {{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Usage(err.Error())
	})

	flags := cmd.Flags()
	flags.BoolVarP(&a.opts.Verbose, "verbose", "v", false, "log debug output, including command output, to the console")
	flags.BoolVarP(&a.opts.Quiet, "quiet", "q", false, "log only critical messages to the console")
	flags.BoolVarP(&a.opts.NoMail, "no-mail", "n", false, "do not send failure mail")
	flags.String("smtp-host", "", "SMTP server host (overrides smtp_host)")
	flags.Int("smtp-port", 0, "SMTP server port (overrides smtp_port)")
	flags.BoolVar(&a.opts.ListPatterns, "list-patterns", false, "list the summary patterns and exit")
	flags.StringVar(&a.opts.Classify, "classify", "", "classify saved test output from `file` (- for stdin) and exit")
	flags.StringVar(&a.opts.Buildout, "buildout", "", "with --classify or --list-patterns, use the patterns selected for `name`")
	flags.StringVar(&a.opts.TestMail, "test-mail", "", "send a test message to `address` and exit")

	return cmd
}

func (a *app) execute(cmd *cobra.Command, args []string) error {
	if a.opts.Quiet && a.opts.Verbose {
		return errors.Usage("--quiet and --verbose are mutually exclusive")
	}
	a.out.SetQuiet(a.opts.Quiet)

	if a.opts.ListPatterns {
		return a.listPatterns(cmd, args)
	}
	if a.opts.Classify != "" {
		return a.classify(cmd, args)
	}

	cfgPath, err := a.configPath(args)
	if err != nil {
		return err
	}

	log, logOut := logging.New(a.stderr, logging.ConsoleLevel(a.opts.Verbosity()), a.out.Color())

	cfg, warnings, err := config.LoadAndValidate(cfgPath, cmd.Flags())
	for _, w := range warnings {
		a.out.Warning("%s", w)
	}
	if err != nil {
		return err
	}
	log.Debug().Str("config", cfg.Path).Msg("configuration loaded")

	notifier := mail.NewNotifier(mail.Options{
		Addr:       cfg.Mail.Addr(),
		From:       cfg.Mail.From,
		IncludeOwl: cfg.Mail.IncludeOwl,
	}, log)

	if a.opts.TestMail != "" {
		return a.testMail(cmd.Context(), notifier)
	}

	opts := runner.Options{LogOutput: logOut}
	if !a.opts.NoMail && cfg.MailEnabled() {
		opts.Sender = notifier
	}

	r, err := runner.New(cfg, command.NewShell(log, nil), log, opts)
	if err != nil {
		return err
	}

	summary, err := r.Run(cmd.Context())
	if summary != nil {
		a.out.RunSummary(summary)
	}
	return err
}

// configPath returns the config given on the command line or the default.
func (a *app) configPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	path, err := a.defaultConfig()
	if err != nil {
		return "", errors.WrapConfig(err, "cannot locate default config")
	}
	return path, nil
}

// defaultConfigPath returns <prefix>/owl.cfg, where prefix is the parent of
// the executable's directory.
func defaultConfigPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	prefix := filepath.Dir(filepath.Dir(exe))
	return filepath.Join(prefix, DefaultConfigName), nil
}
