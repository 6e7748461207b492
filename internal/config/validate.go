package config

import (
	"fmt"
	"net/mail"
	"net/url"

	"github.com/hashicorp/go-multierror"

	"github.com/AndreyAkinshin/nightowl/internal/testparser"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a configuration for errors and returns warnings for
// non-fatal issues. All errors are reported together.
func Validate(cfg *Config) (warnings []string, err error) {
	var result *multierror.Error

	if len(cfg.Buildouts) == 0 {
		result = multierror.Append(result, &ValidationError{
			Field:   MainSection + ".buildouts",
			Message: "must list at least one buildout",
		})
	}

	if cfg.OutputRoot == "" {
		result = multierror.Append(result, &ValidationError{
			Field:   MainSection + ".output_root",
			Message: "is required",
		})
	}

	if err := validateMail(cfg.Mail); err != nil {
		result = multierror.Append(result, err)
	}

	for _, addr := range cfg.ErrorEmails {
		if _, err := mail.ParseAddress(addr); err != nil {
			result = multierror.Append(result, &ValidationError{
				Field:   MainSection + ".error_emails",
				Message: fmt.Sprintf("invalid address %q: %v", addr, err),
			})
		}
	}

	registry, err := testparser.NewRegistryWith(cfg.SummaryPatterns)
	if err != nil {
		result = multierror.Append(result, &ValidationError{
			Field:   MainSection + ".summary_patterns",
			Message: err.Error(),
		})
	} else {
		for _, b := range cfg.Buildouts {
			if _, err := registry.Select(b.Patterns); err != nil {
				result = multierror.Append(result, &ValidationError{
					Field:   b.Name + ".patterns",
					Message: err.Error(),
				})
			}
		}
	}

	if cfg.MetricsGateway != "" {
		if u, err := url.Parse(cfg.MetricsGateway); err != nil || u.Scheme == "" || u.Host == "" {
			result = multierror.Append(result, &ValidationError{
				Field:   MainSection + ".metrics_gateway",
				Message: fmt.Sprintf("must be an absolute URL, got %q", cfg.MetricsGateway),
			})
		}
	}

	if cfg.ImportFailureMarker == "" {
		warnings = append(warnings, "import_failure_marker is empty; import failures will not trigger notifications")
	}

	return warnings, result.ErrorOrNil()
}

func validateMail(m MailConfig) error {
	if m.Host == "" {
		return &ValidationError{Field: MainSection + ".smtp_host", Message: "must not be empty"}
	}
	if m.Port < 1 || m.Port > 65535 {
		return &ValidationError{
			Field:   MainSection + ".smtp_port",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", m.Port),
		}
	}
	if _, err := mail.ParseAddress(m.From); err != nil {
		return &ValidationError{
			Field:   MainSection + ".mail_from",
			Message: fmt.Sprintf("invalid address %q: %v", m.From, err),
		}
	}
	return nil
}
