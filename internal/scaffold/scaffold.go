package scaffold

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/lorea/bootstrap/internal/declare"
	"github.com/lorea/bootstrap/internal/manifest"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Data holds the template variables.
type Data struct {
	Org        string // e.g., "lorea"
	CoreName   string // e.g., "elgg"
	CoreSource string // e.g., "github-dev:Elgg"
}

// Result holds the outcome of a generation.
type Result struct {
	Files    []string
	Warnings []string
}

// NewData returns Data for org with the default core package.
func NewData(org string) *Data {
	return &Data{
		Org:        org,
		CoreName:   "elgg",
		CoreSource: "github-dev:Elgg",
	}
}

// templateName returns the embedded template for a declarations path,
// chosen by its extension.
func templateName(declarationsPath string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(declarationsPath)); ext {
	case ".yaml", ".yml":
		return "templates/packages.yaml.tmpl", nil
	case ".toml":
		return "templates/packages.toml.tmpl", nil
	default:
		return "", fmt.Errorf("unsupported declarations format %q (want .yaml or .toml)", ext)
	}
}

// Generate writes a starter declarations file and, when none exists yet,
// an empty manifest. An existing declarations file is never overwritten.
func Generate(data *Data, declarationsPath, manifestPath string) (*Result, error) {
	name, err := templateName(declarationsPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(declarationsPath); err == nil {
		return nil, fmt.Errorf("%s already exists; remove it first", declarationsPath)
	}

	tmplBytes, err := fs.ReadFile(templateFS, name)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", name, err)
	}
	tmpl, err := template.New(filepath.Base(name)).Parse(string(tmplBytes))
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template %s: %w", name, err)
	}

	if err := os.MkdirAll(filepath.Dir(declarationsPath), 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(declarationsPath, buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", declarationsPath, err)
	}

	result := &Result{Files: []string{declarationsPath}}

	switch _, err := os.Stat(manifestPath); {
	case errors.Is(err, fs.ErrNotExist):
		if err := manifest.New().Save(manifestPath); err != nil {
			return nil, err
		}
		result.Files = append(result.Files, manifestPath)
	case err == nil:
		result.Warnings = append(result.Warnings, fmt.Sprintf("kept existing manifest %s", manifestPath))
	default:
		return nil, err
	}

	// Make sure the generated file parses and registers cleanly.
	file, err := declare.Load(declarationsPath)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not parse generated declarations: %v", err))
		return result, nil
	}
	for _, e := range file.Apply(manifest.New(), nil).Errors {
		result.Warnings = append(result.Warnings, e.Error())
	}
	return result, nil
}
