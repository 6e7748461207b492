package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AndreyAkinshin/nightowl/internal/config"
	"github.com/AndreyAkinshin/nightowl/internal/errors"
	"github.com/AndreyAkinshin/nightowl/internal/output"
	"github.com/AndreyAkinshin/nightowl/internal/testparser"
)

// patternsFor returns the summary patterns to try, in order, and the import
// failure marker. Without a config these are the built-ins. With one, its
// extra patterns are added, and --buildout narrows them to that buildout's
// selection.
func (a *app) patternsFor(cmd *cobra.Command, args []string) ([]testparser.Pattern, string, error) {
	if len(args) == 0 {
		if a.opts.Buildout != "" {
			return nil, "", errors.Usage("--buildout needs a config path")
		}
		patterns, err := testparser.NewRegistry().Select(nil)
		return patterns, testparser.DefaultImportFailureMarker, err
	}
	cfg, warnings, err := config.LoadAndValidate(args[0], cmd.Flags())
	for _, w := range warnings {
		a.out.Warning("%s", w)
	}
	if err != nil {
		return nil, "", err
	}
	registry, err := testparser.NewRegistryWith(cfg.SummaryPatterns)
	if err != nil {
		return nil, "", errors.WrapConfig(err, "invalid summary_patterns")
	}

	var selection []string
	if a.opts.Buildout != "" {
		b, ok := cfg.Buildout(a.opts.Buildout)
		if !ok {
			return nil, "", errors.Configf("buildout %q is not listed in %s", a.opts.Buildout, cfg.Path)
		}
		selection = b.Patterns
	}
	patterns, err := registry.Select(selection)
	if err != nil {
		return nil, "", errors.WrapConfig(err, a.opts.Buildout+".patterns")
	}
	return patterns, cfg.ImportFailureMarker, nil
}

// listPatterns prints the summary patterns in priority order.
func (a *app) listPatterns(cmd *cobra.Command, args []string) error {
	patterns, _, err := a.patternsFor(cmd, args)
	if err != nil {
		return err
	}
	for _, p := range patterns {
		fmt.Fprintf(a.stdout, "%-12s %s\n", p.Name, p.Regexp.String())
	}
	return nil
}

// classify reads saved test output and prints how a run would judge it.
// Output that would trigger a notification exits 1.
func (a *app) classify(cmd *cobra.Command, args []string) error {
	patterns, marker, err := a.patternsFor(cmd, args)
	if err != nil {
		return err
	}

	var input io.Reader = a.stdin
	if a.opts.Classify != "-" {
		f, err := os.Open(a.opts.Classify)
		if err != nil {
			return errors.Wrap(err, "cannot read test output")
		}
		defer func() { _ = f.Close() }()
		input = f
	}

	data, err := io.ReadAll(input)
	if err != nil {
		return errors.Wrap(err, "cannot read test output")
	}

	outcome := testparser.NewClassifier(patterns, marker).Classify(string(data))

	fmt.Fprintf(a.stdout, "status:   %s\n", output.StatusLabel(outcome.Status()))
	if outcome.IsParsed() {
		fmt.Fprintf(a.stdout, "pattern:  %s\n", outcome.Pattern)
		fmt.Fprintf(a.stdout, "tests:    %d\n", outcome.Tests)
		fmt.Fprintf(a.stdout, "failures: %d\n", outcome.Failures)
		fmt.Fprintf(a.stdout, "errors:   %d\n", outcome.Errors)
	}
	if outcome.HasImportErrors {
		fmt.Fprintln(a.stdout, "import failures detected")
	}

	if outcome.NeedsNotification() {
		return errors.Newf("test output would trigger a failure notification")
	}
	return nil
}
