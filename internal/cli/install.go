package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorea/bootstrap/internal/manifest"
	"github.com/lorea/bootstrap/internal/reconcile"
)

var installCmd = &cobra.Command{
	Use:   "install <category>/<name>...",
	Short: "Fetch or update specific registered packages",
	Long: `Fetch the named packages, or update them when their directory already
exists, regardless of their recorded state. Successful packages are
recorded as installed and plugins are relinked.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	keys := make([]manifest.Key, 0, len(args))
	for _, arg := range args {
		key, err := parseKey(arg)
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}

	ws := openWorkspace()
	m := ws.loadManifest()
	r := ws.reconciler(m)
	out := cmd.OutOrStdout()

	failed, plugins := 0, false
	for _, key := range keys {
		var res reconcile.Result
		if ws.layout.HasPackageDir(key.Category, key.Name) {
			res = r.Update(cmd.Context(), key.Category, key.Name)
		} else {
			res = r.Install(cmd.Context(), key.Category, key.Name)
		}
		if !res.OK() {
			failed++
			logger.Error().Err(res.Err).Str("package", key.String()).Msg("install failed")
			continue
		}
		if key.Category == manifest.CategoryPlugins {
			plugins = true
		}
		fmt.Fprintf(out, "%s %s: %s\n", res.Action, key, res.After)
	}

	if plugins {
		if _, err := r.RelinkPlugins(); err != nil {
			logger.Warn().Err(err).Msg("plugin relink incomplete")
		}
	}
	if err := ws.saveManifest(m); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d package(s) failed", failed)
	}
	return nil
}
