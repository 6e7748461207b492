package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/AndreyAkinshin/nightowl/internal/errors"
	"github.com/AndreyAkinshin/nightowl/internal/testparser"
)

const minimalConfig = `[owl:main]
buildouts = portal
output_root = reports
updatecmd = svn up

[portal]
path = portal
testcmd = bin/test
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "owl.cfg")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Minimal(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, minimalConfig)
	dir := filepath.Dir(path)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Path != path {
		t.Errorf("Path = %q, want %q", cfg.Path, path)
	}
	if cfg.Dir != dir {
		t.Errorf("Dir = %q, want %q", cfg.Dir, dir)
	}
	if cfg.OutputRoot != filepath.Join(dir, "reports") {
		t.Errorf("OutputRoot = %q, want it resolved against %q", cfg.OutputRoot, dir)
	}
	if cfg.UpdateCommand != "svn up" {
		t.Errorf("UpdateCommand = %q, want %q", cfg.UpdateCommand, "svn up")
	}
	if cfg.MailEnabled() {
		t.Errorf("MailEnabled() = true without error_emails")
	}
	if len(cfg.Buildouts) != 1 {
		t.Fatalf("len(Buildouts) = %d, want 1", len(cfg.Buildouts))
	}

	b := cfg.Buildouts[0]
	if b.Name != "portal" || b.Path != filepath.Join(dir, "portal") || b.TestCommand != "bin/test" {
		t.Errorf("Buildout = %+v", b)
	}
	if b.HasPreTest() {
		t.Error("HasPreTest() = true without pre_test")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Mail.Host != DefaultSMTPHost {
		t.Errorf("Mail.Host = %q, want %q", cfg.Mail.Host, DefaultSMTPHost)
	}
	if cfg.Mail.Port != DefaultSMTPPort {
		t.Errorf("Mail.Port = %d, want %d", cfg.Mail.Port, DefaultSMTPPort)
	}
	if cfg.Mail.From != DefaultMailFrom {
		t.Errorf("Mail.From = %q, want %q", cfg.Mail.From, DefaultMailFrom)
	}
	if !cfg.Mail.IncludeOwl {
		t.Error("Mail.IncludeOwl = false, want true")
	}
	if cfg.Mail.Addr() != "localhost:25" {
		t.Errorf("Mail.Addr() = %q", cfg.Mail.Addr())
	}
	if cfg.ImportFailureMarker != testparser.DefaultImportFailureMarker {
		t.Errorf("ImportFailureMarker = %q", cfg.ImportFailureMarker)
	}
	if cfg.MetricsGateway != "" || len(cfg.SummaryPatterns) != 0 {
		t.Errorf("unexpected optional settings: %+v", cfg)
	}
}

func TestLoad_Full(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `# nightly run
[DEFAULT]
bin = /opt/zope/bin

[owl:main]
buildouts =
    portal
    survey
output_root = /var/reports
updatecmd = svn up 2>&1 | tee -a update.log # keep
error_emails =
    dev@example.com
    Ops Team <ops@example.com>
smtp_host = mail.example.com
smtp_port = 2525
mail_from = Night Owl <owl@example.com>
include_owl = false
summary_patterns =
    (?P<tests>\d+) specs, (?P<failures>\d+) failed
metrics_gateway = http://pushgateway:9091

[portal]
path = /srv/portal
testcmd = %(bin)s/test -v
pre_test = %(bin)s/buildout

[survey]
path: survey
testcmd: %(runner)s --all
runner = python -m unittest
patterns = unittest, custom-1
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.OutputRoot != "/var/reports" {
		t.Errorf("OutputRoot = %q", cfg.OutputRoot)
	}
	if cfg.UpdateCommand != "svn up 2>&1 | tee -a update.log # keep" {
		t.Errorf("UpdateCommand = %q, inline '#' should be kept", cfg.UpdateCommand)
	}
	if got := strings.Join(cfg.ErrorEmails, ";"); got != "dev@example.com;Ops Team <ops@example.com>" {
		t.Errorf("ErrorEmails = %q", got)
	}
	if cfg.Mail.Addr() != "mail.example.com:2525" || cfg.Mail.IncludeOwl {
		t.Errorf("Mail = %+v", cfg.Mail)
	}
	if cfg.Mail.From != "Night Owl <owl@example.com>" {
		t.Errorf("Mail.From = %q", cfg.Mail.From)
	}
	if len(cfg.SummaryPatterns) != 1 {
		t.Errorf("SummaryPatterns = %v", cfg.SummaryPatterns)
	}
	if cfg.MetricsGateway != "http://pushgateway:9091" {
		t.Errorf("MetricsGateway = %q", cfg.MetricsGateway)
	}

	names := make([]string, 0, len(cfg.Buildouts))
	for _, b := range cfg.Buildouts {
		names = append(names, b.Name)
	}
	if got := strings.Join(names, ","); got != "portal,survey" {
		t.Fatalf("buildout order = %s, want portal,survey", got)
	}

	portal := cfg.Buildouts[0]
	if portal.TestCommand != "/opt/zope/bin/test -v" {
		t.Errorf("portal.TestCommand = %q, DEFAULT interpolation failed", portal.TestCommand)
	}
	if portal.PreTestCommand != "/opt/zope/bin/buildout" || !portal.HasPreTest() {
		t.Errorf("portal.PreTestCommand = %q", portal.PreTestCommand)
	}

	survey, ok := cfg.Buildout("survey")
	if !ok {
		t.Fatal("Buildout(survey) not found")
	}
	if survey.Path != filepath.Join(cfg.Dir, "survey") {
		t.Errorf("survey.Path = %q", survey.Path)
	}
	if survey.TestCommand != "python -m unittest --all" {
		t.Errorf("survey.TestCommand = %q, section interpolation failed", survey.TestCommand)
	}
	if got := strings.Join(survey.Patterns, ","); got != "unittest,custom-1" {
		t.Errorf("survey.Patterns = %s", got)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		substr  string
	}{
		{
			name:    "missing main section",
			content: "[portal]\npath = p\ntestcmd = t\n",
			substr:  "owl:main",
		},
		{
			name:    "missing buildouts key",
			content: "[owl:main]\noutput_root = r\nupdatecmd = u\n",
			substr:  "buildouts",
		},
		{
			name:    "missing output_root",
			content: "[owl:main]\nbuildouts = a\nupdatecmd = u\n[a]\npath = p\ntestcmd = t\n",
			substr:  "output_root",
		},
		{
			name:    "missing updatecmd",
			content: "[owl:main]\nbuildouts = a\noutput_root = r\n[a]\npath = p\ntestcmd = t\n",
			substr:  "updatecmd",
		},
		{
			name:    "listed buildout without section",
			content: "[owl:main]\nbuildouts = a\noutput_root = r\nupdatecmd = u\n",
			substr:  "a: section is missing",
		},
		{
			name:    "buildout without path",
			content: "[owl:main]\nbuildouts = a\noutput_root = r\nupdatecmd = u\n[a]\ntestcmd = t\n",
			substr:  "a.path: is required",
		},
		{
			name:    "buildout without testcmd",
			content: "[owl:main]\nbuildouts = a\noutput_root = r\nupdatecmd = u\n[a]\npath = p\n",
			substr:  "a.testcmd: is required",
		},
		{
			name:    "duplicate buildout",
			content: "[owl:main]\nbuildouts = a\n  a\noutput_root = r\nupdatecmd = u\n[a]\npath = p\ntestcmd = t\n",
			substr:  "listed more than once",
		},
		{
			name:    "buildout name with separator",
			content: "[owl:main]\nbuildouts =\n  naaya/trunk\n  portal\noutput_root = r\nupdatecmd = u\n[naaya/trunk]\npath = p\ntestcmd = t\n[portal]\npath = p\ntestcmd = t\n",
			substr:  `buildout name "naaya/trunk" must not contain path separators`,
		},
		{
			name:    "buildout name escaping the report directory",
			content: "[owl:main]\nbuildouts = ../../escape\noutput_root = r\nupdatecmd = u\n[../../escape]\npath = p\ntestcmd = t\n",
			substr:  "must not contain path separators",
		},
		{
			name:    "buildout named dot dot",
			content: "[owl:main]\nbuildouts = ..\noutput_root = r\nupdatecmd = u\n[..]\npath = p\ntestcmd = t\n",
			substr:  `buildout name ".."`,
		},
		{
			name:    "invalid port",
			content: "[owl:main]\nbuildouts = a\noutput_root = r\nupdatecmd = u\nsmtp_port = 70000\n[a]\npath = p\ntestcmd = t\n",
			substr:  "smtp_port",
		},
		{
			name:    "invalid extra pattern",
			content: "[owl:main]\nbuildouts = a\noutput_root = r\nupdatecmd = u\nsummary_patterns = (?P<tests>\\d+\n[a]\npath = p\ntestcmd = t\n",
			substr:  "summary_patterns",
		},
		{
			name:    "unknown pattern selection",
			content: "[owl:main]\nbuildouts = a\noutput_root = r\nupdatecmd = u\n[a]\npath = p\ntestcmd = t\npatterns = pytest\n",
			substr:  "unknown summary pattern",
		},
		{
			name:    "invalid recipient",
			content: "[owl:main]\nbuildouts = a\noutput_root = r\nupdatecmd = u\nerror_emails = not an address\n[a]\npath = p\ntestcmd = t\n",
			substr:  "error_emails",
		},
		{
			name:    "relative metrics gateway",
			content: "[owl:main]\nbuildouts = a\noutput_root = r\nupdatecmd = u\nmetrics_gateway = pushgateway\n[a]\npath = p\ntestcmd = t\n",
			substr:  "metrics_gateway",
		},
		{
			name:    "malformed ini",
			content: "[owl:main\nbuildouts = a\n",
			substr:  "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if !errors.Is(err, errors.KindConfig) {
				t.Errorf("error kind: got %v, want config error", err)
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error %q should contain %q", err.Error(), tt.substr)
			}
		})
	}
}

func TestLoad_CollectsAllBuildoutProblems(t *testing.T) {
	t.Parallel()
	_, err := Load(writeConfig(t, `[owl:main]
buildouts =
    a
    b
output_root = r
updatecmd = u

[b]
path = p
`))
	if err == nil {
		t.Fatal("Load() expected error")
	}
	for _, want := range []string{"a: section is missing", "b.testcmd: is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should contain %q", err.Error(), want)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "owl.cfg"))
	if err == nil {
		t.Fatal("Load() expected error")
	}
	if errors.GetExitCode(err) != errors.ExitConfigError {
		t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitConfigError)
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("error = %v", err)
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("NIGHTOWL_SMTP_HOST", "relay.internal")
	t.Setenv("NIGHTOWL_SMTP_PORT", "587")

	cfg, err := Load(writeConfig(t, strings.Replace(minimalConfig,
		"updatecmd = svn up\n", "updatecmd = svn up\nsmtp_host = ignored.example.com\n", 1)))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Mail.Addr() != "relay.internal:587" {
		t.Errorf("Mail.Addr() = %q, want relay.internal:587", cfg.Mail.Addr())
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	t.Setenv("NIGHTOWL_SMTP_HOST", "relay.internal")

	flags := pflag.NewFlagSet("nightowl", pflag.ContinueOnError)
	flags.String("smtp-host", "", "")
	flags.Int("smtp-port", 0, "")
	flags.BoolP("verbose", "v", false, "")
	if err := flags.Parse([]string{"--smtp-port", "2525", "-v"}); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := LoadAndValidate(writeConfig(t, minimalConfig), flags)
	if err != nil {
		t.Fatalf("LoadAndValidate() error = %v", err)
	}
	// Unset --smtp-host must not clobber the environment value.
	if cfg.Mail.Host != "relay.internal" {
		t.Errorf("Mail.Host = %q, want relay.internal", cfg.Mail.Host)
	}
	if cfg.Mail.Port != 2525 {
		t.Errorf("Mail.Port = %d, want 2525", cfg.Mail.Port)
	}
}

func TestLoadAndValidate_Warnings(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `[owl:main]
buildouts = portal
output_root = reports
updatecmd = svn up
colour = blue

[portal]
path = portal
testcmd = bin/test
timeout = 10

[retired]
path = old
testcmd = bin/test
`)

	cfg, warnings, err := LoadAndValidate(path, nil)
	if err != nil {
		t.Fatalf("LoadAndValidate() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadAndValidate() returned nil config")
	}

	want := []string{
		`unknown key "colour" in section "owl:main" (ignored)`,
		`unknown key "timeout" in section "portal" (ignored)`,
		`section "retired" is not listed in buildouts (ignored)`,
	}
	if len(warnings) != len(want) {
		t.Fatalf("warnings = %v, want %d entries", warnings, len(want))
	}
	for i := range want {
		if warnings[i] != want[i] {
			t.Errorf("warnings[%d] = %q, want %q", i, warnings[i], want[i])
		}
	}
}

func TestLoadAndValidate_RepeatedRecipients(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `[owl:main]
buildouts = portal
output_root = reports
updatecmd = svn up
error_emails =
    dev@example.com
    ops@example.com
    dev@example.com
    dev@example.com

[portal]
path = portal
testcmd = bin/test
`)

	cfg, warnings, err := LoadAndValidate(path, nil)
	if err != nil {
		t.Fatalf("LoadAndValidate() error = %v", err)
	}
	if got := strings.Join(cfg.ErrorEmails, ","); got != "dev@example.com,ops@example.com" {
		t.Errorf("ErrorEmails = %q", got)
	}
	want := `error_emails lists "dev@example.com" more than once (ignored)`
	if len(warnings) != 1 || warnings[0] != want {
		t.Errorf("warnings = %q, want [%q]", warnings, want)
	}
}

func TestUniqueList(t *testing.T) {
	t.Parallel()
	unique, repeated := uniqueList([]string{"a", "b", "a", "c", "a", "b"})
	if got := strings.Join(unique, "|"); got != "a|b|c" {
		t.Errorf("unique = %q", got)
	}
	if got := strings.Join(repeated, "|"); got != "a|b" {
		t.Errorf("repeated = %q", got)
	}
}

func TestParseList(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"a", "a"},
		{"\na\n  b  \n\n c", "a|b|c"},
		{"  \n \t\n", ""},
	}
	for _, tt := range tests {
		if got := strings.Join(parseList(tt.in), "|"); got != tt.want {
			t.Errorf("parseList(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
