package config

import (
	"net"
	"strconv"
)

// Config is a loaded nightowl configuration. Relative paths have already
// been resolved against Dir.
type Config struct {
	// Path is the absolute path of the config file.
	Path string
	// Dir is the directory holding the config file. The update command
	// runs here.
	Dir string

	OutputRoot    string
	UpdateCommand string
	// ErrorEmails lists failure mail recipients. Empty disables mail.
	ErrorEmails []string
	Buildouts   []Buildout

	Mail MailConfig

	// SummaryPatterns are extra summary regexps tried after the built-in
	// ones.
	SummaryPatterns []string
	// ImportFailureMarker is the literal text marking import failures in
	// test output. Empty disables the check.
	ImportFailureMarker string
	// MetricsGateway is the Pushgateway URL. Empty disables the push.
	MetricsGateway string
}

// MailEnabled reports whether failure notifications have recipients.
func (c *Config) MailEnabled() bool {
	return len(c.ErrorEmails) > 0
}

// Buildout returns the buildout with the given name.
func (c *Config) Buildout(name string) (Buildout, bool) {
	for _, b := range c.Buildouts {
		if b.Name == name {
			return b, true
		}
	}
	return Buildout{}, false
}

// MailConfig holds SMTP settings.
type MailConfig struct {
	Host       string
	Port       int
	From       string
	IncludeOwl bool
}

// Addr returns host:port for dialing.
func (m MailConfig) Addr() string {
	return net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
}

// Buildout is one project under test.
type Buildout struct {
	Name           string
	Path           string
	TestCommand    string
	PreTestCommand string
	// Patterns selects summary patterns by name, in order. Empty means all.
	Patterns []string
}

// HasPreTest reports whether a pre-test command is configured.
func (b Buildout) HasPreTest() bool {
	return b.PreTestCommand != ""
}

// MainSettings mirrors the owl:main section after defaults, environment
// and flags have been layered on top of it.
type MainSettings struct {
	Buildouts           string `koanf:"buildouts"`
	OutputRoot          string `koanf:"output_root"`
	UpdateCommand       string `koanf:"updatecmd"`
	ErrorEmails         string `koanf:"error_emails"`
	SMTPHost            string `koanf:"smtp_host"`
	SMTPPort            int    `koanf:"smtp_port"`
	MailFrom            string `koanf:"mail_from"`
	IncludeOwl          bool   `koanf:"include_owl"`
	SummaryPatterns     string `koanf:"summary_patterns"`
	ImportFailureMarker string `koanf:"import_failure_marker"`
	MetricsGateway      string `koanf:"metrics_gateway"`
}

// buildoutSection lists the keys read from a buildout section.
type buildoutSection struct {
	Path     string `koanf:"path"`
	TestCmd  string `koanf:"testcmd"`
	PreTest  string `koanf:"pre_test"`
	Patterns string `koanf:"patterns"`
}
