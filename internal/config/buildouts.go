package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// loadBuildouts builds the buildout list in the order given by names.
// All problems are collected before returning.
func loadBuildouts(doc *document, names []string, baseDir string) ([]Buildout, error) {
	var result *multierror.Error
	buildouts := make([]Buildout, 0, len(names))
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		if seen[name] {
			result = multierror.Append(result, &ValidationError{
				Field:   MainSection + ".buildouts",
				Message: fmt.Sprintf("buildout %q is listed more than once", name),
			})
			continue
		}
		seen[name] = true

		b, err := loadBuildout(doc, name, baseDir)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		buildouts = append(buildouts, b)
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return buildouts, nil
}

func loadBuildout(doc *document, name, baseDir string) (Buildout, error) {
	if name == MainSection {
		return Buildout{}, &ValidationError{
			Field:   MainSection + ".buildouts",
			Message: fmt.Sprintf("%q cannot be used as a buildout", MainSection),
		}
	}

	// Names become artifact file names inside the report directory.
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return Buildout{}, &ValidationError{
			Field:   MainSection + ".buildouts",
			Message: fmt.Sprintf("buildout name %q must not contain path separators or be . or ..", name),
		}
	}

	section, ok := doc.section(name)
	if !ok {
		return Buildout{}, &ValidationError{
			Field:   name,
			Message: "section is missing",
		}
	}

	var result *multierror.Error
	path := strings.TrimSpace(section["path"])
	if path == "" {
		result = multierror.Append(result, &ValidationError{Field: name + ".path", Message: "is required"})
	}
	testCmd := strings.TrimSpace(section["testcmd"])
	if testCmd == "" {
		result = multierror.Append(result, &ValidationError{Field: name + ".testcmd", Message: "is required"})
	}
	if err := result.ErrorOrNil(); err != nil {
		return Buildout{}, err
	}

	return Buildout{
		Name:           name,
		Path:           resolvePathRelativeTo(path, baseDir),
		TestCommand:    testCmd,
		PreTestCommand: strings.TrimSpace(section["pre_test"]),
		Patterns:       parseWords(section["patterns"]),
	}, nil
}
