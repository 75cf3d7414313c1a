package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lorea/bootstrap/internal/declare"
	"github.com/lorea/bootstrap/internal/manifest"
	"github.com/lorea/bootstrap/internal/reconcile"
)

var (
	syncOnly           []string
	syncDryRun         bool
	syncNoDeclarations bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Install, update and remove packages to match the manifest",
	Long: `Load the manifest, register the packages from the declarations file,
then bring every package to its recorded state:

  absent     cloned (or updated if its directory already exists)
  installed  updated
  skip       left alone
  remove     deleted, then recorded as absent

Plugins are linked into the core module directory afterwards and the
manifest is saved. An interrupted run does not save the manifest.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringSliceVar(&syncOnly, "only", nil, "Only touch packages matching these <category>/<name> globs")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Print the planned actions without changing anything")
	syncCmd.Flags().BoolVar(&syncNoDeclarations, "no-declarations", false, "Do not apply the declarations file")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	logger = logger.With().Str("run_id", uuid.NewString()).Logger()
	out := cmd.OutOrStdout()
	ws := openWorkspace()

	filter, err := reconcile.GlobFilter(syncOnly)
	if err != nil {
		return err
	}

	m := ws.loadManifest()
	fmt.Fprintf(out, "Loaded %d packages\n", m.Count())

	resolver, err := ws.resolver(ctx)
	if err != nil {
		return err
	}
	m.RewriteLocations(resolver.Rewrite)

	if !syncNoDeclarations {
		if err := applyDeclarations(out, ws.settings.Declarations, m, resolver); err != nil {
			return err
		}
	}

	r := ws.reconciler(m,
		reconcile.WithOutput(out),
		reconcile.WithFilter(filter),
		reconcile.WithDryRun(syncDryRun),
	)
	sum := r.ReconcileAll(ctx)

	if sum.Interrupted {
		fmt.Fprintln(out, "Interrupted, manifest not saved. Run sync again to record the current state.")
		return errors.New("sync interrupted")
	}
	if sum.RelinkErr != nil {
		logger.Warn().Err(sum.RelinkErr).Msg("plugin relink incomplete")
	}
	if syncDryRun {
		fmt.Fprintln(out, "Dry run, nothing changed.")
		return nil
	}

	if err := ws.saveManifest(m); err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved %d packages\n", m.Count())
	printSummary(out, sum)

	if failed := len(sum.Failed()); failed > 0 {
		return fmt.Errorf("%d package(s) failed", failed)
	}
	return nil
}

// applyDeclarations registers the declared packages. A missing file is
// not an error.
func applyDeclarations(out io.Writer, path string, m *manifest.Manifest, exp declare.Expander) error {
	file, err := declare.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug().Str("path", path).Msg("no declarations file")
		return nil
	}
	if err != nil {
		return err
	}

	report := file.Apply(m, exp)
	for _, key := range report.Registered {
		fmt.Fprintf(out, "Registered %s\n", key)
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(out, " ! %s\n", w)
	}
	for _, e := range report.Errors {
		logger.Warn().Err(e).Str("path", path).Msg("declaration ignored")
	}
	return nil
}

func printSummary(out io.Writer, sum *reconcile.Summary) {
	fmt.Fprintf(out, "%d installed, %d updated, %d removed, %d skipped, %d failed, %d plugins linked\n",
		sum.Count(reconcile.ActionInstall),
		sum.Count(reconcile.ActionUpdate),
		sum.Count(reconcile.ActionUninstall),
		sum.Count(reconcile.ActionSkip),
		len(sum.Failed()),
		len(sum.Linked),
	)
}
