package config

import "github.com/AndreyAkinshin/nightowl/internal/testparser"

// Default configuration values.
const (
	DefaultSMTPHost   = "localhost"
	DefaultSMTPPort   = 25
	DefaultMailFrom   = "Night Owl <nightowl@localhost>"
	DefaultIncludeOwl = true
)

// defaultSettings returns the lowest koanf layer.
func defaultSettings() map[string]interface{} {
	return map[string]interface{}{
		"smtp_host":             DefaultSMTPHost,
		"smtp_port":             DefaultSMTPPort,
		"mail_from":             DefaultMailFrom,
		"include_owl":           DefaultIncludeOwl,
		"import_failure_marker": testparser.DefaultImportFailureMarker,
		"error_emails":          "",
		"summary_patterns":      "",
		"metrics_gateway":       "",
	}
}
