package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorea/bootstrap/internal/manifest"
)

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check a manifest file against the manifest schema",
	Long:  `Validate a manifest file (default: the workspace manifest) and report every schema violation.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := openWorkspace().settings.Manifest
		if len(args) == 1 {
			path = args[0]
		}
		return runManifestCheck(cmd, path)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runManifestCheck(cmd *cobra.Command, path string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Manifest validation: %s\n", path)

	result, err := manifest.ValidateFile(path)
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] %v\n", err)
		return fmt.Errorf("manifest validation failed: %w", err)
	}

	if result.Valid {
		m, err := manifest.Read(path)
		if err != nil {
			fmt.Fprintf(out, "  [FAIL] %v\n", err)
			return err
		}
		fmt.Fprintf(out, "  [ OK ] Valid manifest: %d core, %d tools, %d plugins\n",
			m.CountCategory(manifest.CategoryCore),
			m.CountCategory(manifest.CategoryTools),
			m.CountCategory(manifest.CategoryPlugins))
		return nil
	}

	fmt.Fprintf(out, "  [FAIL] %d validation issue(s):\n", len(result.Issues))
	for _, issue := range result.Issues {
		fmt.Fprintf(out, "    - %s\n", issue)
	}
	return fmt.Errorf("manifest %s has %d validation issue(s)", path, len(result.Issues))
}
