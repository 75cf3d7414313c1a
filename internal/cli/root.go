package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lorea/bootstrap/internal/branding"
	"github.com/lorea/bootstrap/internal/config"
	"github.com/lorea/bootstrap/internal/logging"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

// logger is rebuilt for every command invocation in PersistentPreRunE.
var logger = zerolog.Nop()

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` fetches and updates the core, tools and plugins of a
workspace from a declarative manifest, tracking what is installed and linking
plugins into the core module directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Load()
		if err := bindFlags(cmd); err != nil {
			return err
		}

		cfg := logging.DefaultConfig(logging.ProfileRuntime)
		if lvl, ok := logging.ParseLevel(viper.GetString(config.KeyLogLevel)); ok {
			cfg.Level = lvl
		}
		logging.ApplyEnv(&cfg)
		logger = logging.New(cmd.ErrOrStderr(), cfg)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("root", "", "Workspace root directory (default \".\")")
	flags.String("manifest", "", "Manifest file, relative to the workspace root (default \""+branding.ManifestFile()+"\")")
	flags.String("log-level", "", "Diagnostic log level (trace, debug, info, warn, error)")
}

// bindFlags ties the persistent flags to their settings. Binding happens
// per invocation so a reset of the global viper instance does not drop it.
func bindFlags(cmd *cobra.Command) error {
	bindings := map[string]string{
		"root":      config.KeyRoot,
		"manifest":  config.KeyManifest,
		"log-level": config.KeyLogLevel,
	}
	for flag, key := range bindings {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}
