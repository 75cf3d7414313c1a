package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/lorea/bootstrap/internal/manifest"
	"github.com/lorea/bootstrap/internal/reconcile"
	"github.com/lorea/bootstrap/internal/toolcheck"
)

var (
	checkTools    bool
	checkManifest bool
	checkLinks    bool
)

func init() {
	doctorCmd.Flags().BoolVar(&checkTools, "check-tools", false, "Verify git/hg are installed and recent enough")
	doctorCmd.Flags().BoolVar(&checkManifest, "check-manifest", false, "Validate the workspace manifest")
	doctorCmd.Flags().BoolVar(&checkLinks, "check-links", false, "Verify plugin links are intact")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Health check for the workspace",
	Long:  `Run diagnostic checks on the tools, manifest and plugin links of the workspace.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all := !checkTools && !checkManifest && !checkLinks
		ws := openWorkspace()
		out := cmd.OutOrStdout()
		failed := 0

		if all || checkTools {
			failed += runToolsCheck(cmd, ws)
		}
		if all || checkManifest {
			if _, err := os.Stat(ws.settings.Manifest); errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(out, "Manifest validation: %s\n  [INFO] No manifest yet\n", ws.settings.Manifest)
			} else if err := runManifestCheck(cmd, ws.settings.Manifest); err != nil {
				failed++
			}
		}
		if all || checkLinks {
			failed += runLinksCheck(out, ws)
		}

		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		return nil
	},
}

// runToolsCheck checks the binaries needed by the kinds in use, or all
// of them when the manifest is empty.
func runToolsCheck(cmd *cobra.Command, ws *workspace) int {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Tools check:")

	kinds := toolcheck.UsedKinds(ws.loadManifest())
	if len(kinds) == 0 {
		kinds = nil
	}
	statuses := toolcheck.New(ws.runner).CheckKinds(cmd.Context(), toolcheck.DefaultRequirements, kinds)
	if len(statuses) == 0 {
		fmt.Fprintln(out, "  [INFO] No external tools needed")
		return 0
	}
	return toolcheck.Print(out, statuses)
}

func runLinksCheck(out io.Writer, ws *workspace) int {
	fmt.Fprintln(out, "Links check:")

	modDir := ws.layout.CoreModuleDir
	if info, err := os.Stat(modDir); err != nil || !info.IsDir() {
		fmt.Fprintf(out, "  [WARN] Core module directory %s missing, is core installed?\n", modDir)
		return 0
	}

	dangling, err := reconcile.DanglingLinks(modDir, ws.layout.CategoryDir(manifest.CategoryPlugins))
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		return 1
	}
	if len(dangling) == 0 {
		fmt.Fprintln(out, "  [ OK ] No dangling plugin links")
		return 0
	}
	for _, name := range dangling {
		fmt.Fprintf(out, "  [FAIL] %s points at a missing plugin (run `relink`)\n", name)
	}
	return len(dangling)
}
