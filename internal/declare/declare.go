// Package declare reads the package declarations file (YAML or TOML)
// that lists what the workspace should contain, and registers those
// packages into a manifest. Registration is idempotent, so the file is
// applied on every run.
package declare

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.yaml.in/yaml/v3"

	"github.com/lorea/bootstrap/internal/manifest"
)

// File is a parsed declarations file.
type File struct {
	Core    []Entry `yaml:"core" toml:"core"`
	Tools   []Entry `yaml:"tools" toml:"tools"`
	Plugins []Entry `yaml:"plugins" toml:"plugins"`

	// Missing names packages that have no repository yet.
	Missing []string `yaml:"missing,omitempty" toml:"missing,omitempty"`
}

// Entry declares one package.
type Entry struct {
	Name    string `yaml:"name" toml:"name"`
	Kind    string `yaml:"kind" toml:"kind"`
	Source  string `yaml:"source" toml:"source"`
	State   string `yaml:"state,omitempty" toml:"state,omitempty"`
	Warning string `yaml:"warning,omitempty" toml:"warning,omitempty"`
}

// Expander turns an entry's source into a location.
type Expander interface {
	Expand(source string) (string, error)
}

// Report summarises an Apply.
type Report struct {
	Registered []manifest.Key
	Warnings   []string
	Errors     []error
}

// Load reads a declarations file, choosing the decoder by extension
// (.toml, otherwise YAML).
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading declarations %s: %w", path, err)
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &f); err != nil {
			return nil, fmt.Errorf("parsing declarations %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing declarations %s: %w", path, err)
		}
	}
	return &f, nil
}

// Entries returns the declared entries of one category.
func (f *File) Entries(category manifest.Category) []Entry {
	switch category {
	case manifest.CategoryCore:
		return f.Core
	case manifest.CategoryTools:
		return f.Tools
	case manifest.CategoryPlugins:
		return f.Plugins
	}
	return nil
}

// Apply registers every declared entry into m. Invalid entries are
// collected in the report and do not stop the remaining ones.
func (f *File) Apply(m *manifest.Manifest, exp Expander) *Report {
	report := &Report{}

	for _, category := range manifest.Categories {
		for _, e := range f.Entries(category) {
			key := manifest.Key{Category: category, Name: e.Name}
			registered, err := apply(m, category, e, exp)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Errorf("%s: %w", key, err))
				continue
			}
			if registered {
				report.Registered = append(report.Registered, key)
			}
			if e.Warning != "" {
				report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s", key, e.Warning))
			}
		}
	}

	for _, name := range f.Missing {
		report.Warnings = append(report.Warnings, "missing repository for "+name)
	}
	return report
}

func apply(m *manifest.Manifest, category manifest.Category, e Entry, exp Expander) (bool, error) {
	if e.Name == "" {
		return false, errors.New("entry without a name")
	}
	if err := manifest.ValidateName(e.Name); err != nil {
		return false, err
	}
	kind, err := manifest.ParseSourceKind(e.Kind)
	if err != nil {
		return false, err
	}
	state, err := manifest.ParseState(e.State)
	if err != nil {
		return false, err
	}
	location := e.Source
	if exp != nil {
		if location, err = exp.Expand(e.Source); err != nil {
			return false, err
		}
	}
	if err := manifest.ValidateLocation(location); err != nil {
		return false, err
	}
	return m.Register(category, e.Name, kind, location, state), nil
}
