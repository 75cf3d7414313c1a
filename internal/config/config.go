package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/lorea/bootstrap/internal/branding"
	"github.com/lorea/bootstrap/internal/layout"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Setting keys.
const (
	KeyRoot                  = "root"
	KeyManifest              = "manifest"
	KeyDeclarations          = "declarations"
	KeyCoreModuleDir         = "core_module_dir"
	KeyTmpDir                = "tmp_dir"
	KeyEnv                   = "env"
	KeyOrg                   = "org"
	KeyDevOrigin             = "dev_origin"
	KeyPromoteOnFailedUpdate = "promote_on_failed_update"
	KeyLogLevel              = "log_level"
	KeyArchiveTimeout        = "archive_timeout"
)

// Keys lists every recognised setting.
var Keys = []string{
	KeyRoot,
	KeyManifest,
	KeyDeclarations,
	KeyCoreModuleDir,
	KeyTmpDir,
	KeyEnv,
	KeyOrg,
	KeyDevOrigin,
	KeyPromoteOnFailedUpdate,
	KeyLogLevel,
	KeyArchiveTimeout,
}

// Settings is the resolved configuration for one command.
type Settings struct {
	Root                  string
	Manifest              string
	Declarations          string
	CoreModuleDir         string
	TmpDir                string
	Env                   string
	Org                   string
	DevOrigin             string
	PromoteOnFailedUpdate bool
	LogLevel              string
	ArchiveTimeout        time.Duration
}

// Dir returns the path to the config directory (~/.bootstrap/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file.
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// SetDefaults registers default values for every key.
func SetDefaults() {
	viper.SetDefault(KeyRoot, ".")
	viper.SetDefault(KeyManifest, branding.ManifestFile())
	viper.SetDefault(KeyDeclarations, branding.DeclarationsFile())
	viper.SetDefault(KeyCoreModuleDir, layout.DefaultCoreModuleDir)
	viper.SetDefault(KeyTmpDir, layout.DefaultTmpDir)
	viper.SetDefault(KeyEnv, "")
	viper.SetDefault(KeyOrg, branding.GitHubOrg())
	viper.SetDefault(KeyDevOrigin, branding.DevOriginURL())
	viper.SetDefault(KeyPromoteOnFailedUpdate, false)
	viper.SetDefault(KeyLogLevel, "info")
	viper.SetDefault(KeyArchiveTimeout, 5*time.Minute)
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	SetDefaults()
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Resolve returns the current settings. Relative manifest and
// declarations paths are resolved against Root.
func Resolve() Settings {
	root := viper.GetString(KeyRoot)
	if root == "" {
		root = "."
	}
	return Settings{
		Root:                  root,
		Manifest:              underRoot(root, viper.GetString(KeyManifest)),
		Declarations:          underRoot(root, viper.GetString(KeyDeclarations)),
		CoreModuleDir:         viper.GetString(KeyCoreModuleDir),
		TmpDir:                viper.GetString(KeyTmpDir),
		Env:                   viper.GetString(KeyEnv),
		Org:                   viper.GetString(KeyOrg),
		DevOrigin:             viper.GetString(KeyDevOrigin),
		PromoteOnFailedUpdate: viper.GetBool(KeyPromoteOnFailedUpdate),
		LogLevel:              viper.GetString(KeyLogLevel),
		ArchiveTimeout:        viper.GetDuration(KeyArchiveTimeout),
	}
}

func underRoot(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// ErrUnknownKey is returned for keys outside Keys.
var ErrUnknownKey = errors.New("unknown config key")

// Get returns the effective value of a setting, after defaults, the
// config file, environment and bound flags have been applied.
func Get(key string) (string, error) {
	if !IsKey(key) {
		return "", fmt.Errorf("%w %q", ErrUnknownKey, key)
	}
	return viper.GetString(key), nil
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if !IsKey(key) {
		return fmt.Errorf("%w %q", ErrUnknownKey, key)
	}
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// IsKey reports whether key is a recognised setting.
func IsKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}
