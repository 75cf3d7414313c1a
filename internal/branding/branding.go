// Package branding provides compile-time identity values for the CLI.
//
// The values live in branding.yaml next to this file and are baked into
// the binary with //go:embed, so a fork only has to edit that file.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName          string `yaml:"cli_name"`
	DisplayName      string `yaml:"display_name"`
	Description      string `yaml:"description"`
	HomeDir          string `yaml:"home_dir"`
	EnvPrefix        string `yaml:"env_prefix"`
	GoModule         string `yaml:"go_module"`
	ManifestFile     string `yaml:"manifest_file"`
	DeclarationsFile string `yaml:"declarations_file"`
	GitHubOrg        string `yaml:"github_org"`
	DevOriginURL     string `yaml:"dev_origin_url"`
}

func load() {
	once.Do(func() {
		// Hard defaults in case the embedded file is missing or empty.
		defaults = brand{
			CLIName:          "bootstrap",
			DisplayName:      "Bootstrap",
			Description:      "Clone, update and link declared packages",
			HomeDir:          ".bootstrap",
			EnvPrefix:        "BOOTSTRAP",
			GoModule:         "github.com/lorea/bootstrap",
			ManifestFile:     "bootstrap.json",
			DeclarationsFile: "packages.yaml",
			GitHubOrg:        "lorea",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "bootstrap").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".bootstrap").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "BOOTSTRAP").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GoModule returns the Go module path. Not consumed at runtime.
func GoModule() string { load(); return defaults.GoModule }

// ManifestFile returns the default state manifest filename.
func ManifestFile() string { load(); return defaults.ManifestFile }

// DeclarationsFile returns the default package declarations filename.
func DeclarationsFile() string { load(); return defaults.DeclarationsFile }

// GitHubOrg returns the organisation whose SSH URLs are rewritten per environment.
func GitHubOrg() string { load(); return defaults.GitHubOrg }

// DevOriginURL returns the remote.origin.url that marks a development checkout.
func DevOriginURL() string { load(); return defaults.DevOriginURL }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("ROOT") → "BOOTSTRAP_ROOT".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
