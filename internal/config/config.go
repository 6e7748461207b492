// Package config loads nightowl INI configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/AndreyAkinshin/nightowl/internal/errors"
	"github.com/AndreyAkinshin/nightowl/internal/schema"
)

// MainSection names the section holding run-wide settings.
const MainSection = "owl:main"

// EnvPrefix prefixes environment variables overriding owl:main keys,
// e.g. NIGHTOWL_SMTP_HOST.
const EnvPrefix = "NIGHTOWL_"

// flagKeys maps command-line flags to the owl:main keys they override.
var flagKeys = map[string]string{
	"smtp-host": "smtp_host",
	"smtp-port": "smtp_port",
}

// Load reads a config file. Warnings are discarded.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadAndValidate(path, nil)
	return cfg, err
}

// LoadAndValidate reads a config file, layers defaults, environment and
// explicitly set flags over owl:main, validates the result and returns
// warnings for keys it does not know. flags may be nil.
//
// Every returned error is a configuration error.
func LoadAndValidate(path string, flags *pflag.FlagSet) (*Config, []string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, errors.WrapConfig(err, "failed to resolve config path")
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, nil, errors.WrapConfig(err, "failed to read config file")
	}

	doc, err := parseDocument(data)
	if err != nil {
		return nil, nil, errors.WrapConfig(err, "failed to parse config file")
	}

	if err := schema.ValidateDocument(doc.values()); err != nil {
		return nil, nil, errors.WrapConfig(err, abs)
	}

	main, err := loadMainSettings(doc, flags)
	if err != nil {
		return nil, nil, err
	}

	emails, repeatedEmails := uniqueList(parseList(main.ErrorEmails))

	cfg := &Config{
		Path:                abs,
		Dir:                 filepath.Dir(abs),
		OutputRoot:          resolvePathRelativeTo(strings.TrimSpace(main.OutputRoot), filepath.Dir(abs)),
		UpdateCommand:       strings.TrimSpace(main.UpdateCommand),
		ErrorEmails:         emails,
		SummaryPatterns:     parseList(main.SummaryPatterns),
		ImportFailureMarker: main.ImportFailureMarker,
		MetricsGateway:      strings.TrimSpace(main.MetricsGateway),
		Mail: MailConfig{
			Host:       strings.TrimSpace(main.SMTPHost),
			Port:       main.SMTPPort,
			From:       strings.TrimSpace(main.MailFrom),
			IncludeOwl: main.IncludeOwl,
		},
	}

	buildouts, err := loadBuildouts(doc, parseList(main.Buildouts), cfg.Dir)
	if err != nil {
		return nil, nil, errors.WrapConfig(err, "invalid buildouts")
	}
	cfg.Buildouts = buildouts

	warnings := detectUnknownKeys(doc, cfg)
	for _, addr := range repeatedEmails {
		warnings = append(warnings, fmt.Sprintf("error_emails lists %q more than once (ignored)", addr))
	}

	validationWarnings, err := Validate(cfg)
	warnings = append(warnings, validationWarnings...)
	if err != nil {
		return nil, warnings, errors.WrapConfig(err, "invalid configuration")
	}

	return cfg, warnings, nil
}

// loadMainSettings layers defaults, owl:main, NIGHTOWL_* variables and
// changed flags, in increasing priority.
func loadMainSettings(doc *document, flags *pflag.FlagSet) (MainSettings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultSettings(), "."), nil); err != nil {
		return MainSettings{}, errors.WrapConfig(err, "failed to load defaults")
	}

	section, _ := doc.section(MainSection)
	fileValues := make(map[string]interface{}, len(section))
	for key, value := range section {
		fileValues[key] = value
	}
	if err := k.Load(confmap.Provider(fileValues, "."), nil); err != nil {
		return MainSettings{}, errors.WrapConfig(err, "failed to load "+MainSection)
	}

	// NIGHTOWL_SMTP_HOST -> smtp_host
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return MainSettings{}, errors.WrapConfig(err, "failed to load environment")
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return MainSettings{}, errors.WrapConfig(err, "failed to load flags")
		}
	}

	var main MainSettings
	if err := k.Unmarshal("", &main); err != nil {
		return MainSettings{}, errors.WrapConfig(err, "unable to decode "+MainSection)
	}
	return main, nil
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
