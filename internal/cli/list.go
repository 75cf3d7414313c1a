package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lorea/bootstrap/internal/manifest"
)

var (
	listCategory string
	listJSON     bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered packages",
	Long:  `List every package in the manifest with its source, recorded state and whether its directory exists.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", "", "Filter by category (core, tools, plugins)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

// listEntry represents a registered package for display.
type listEntry struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Location string `json:"location"`
	State    string `json:"state"`
	Present  bool   `json:"present"`
}

func runList(cmd *cobra.Command, args []string) error {
	var only manifest.Category
	if listCategory != "" {
		c, err := manifest.ParseCategory(listCategory)
		if err != nil {
			return err
		}
		only = c
	}

	ws := openWorkspace()
	m := ws.loadManifest()

	entries := []listEntry{}
	for _, key := range m.Keys() {
		if only != "" && key.Category != only {
			continue
		}
		p, _ := m.Get(key.Category, key.Name)
		entries = append(entries, listEntry{
			Category: string(key.Category),
			Name:     key.Name,
			Kind:     string(p.Kind),
			Location: p.Location,
			State:    p.State.String(),
			Present:  ws.layout.HasPackageDir(key.Category, key.Name),
		})
	}

	if listJSON {
		return printListJSON(cmd, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No packages registered.")
		return nil
	}
	return printListTable(cmd, entries)
}

func printListTable(cmd *cobra.Command, entries []listEntry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tKIND\tSTATE\tON DISK\tLOCATION")
	for _, e := range entries {
		onDisk := "no"
		if e.Present {
			onDisk = "yes"
		}
		fmt.Fprintf(w, "%s/%s\t%s\t%s\t%s\t%s\n", e.Category, e.Name, e.Kind, e.State, onDisk, e.Location)
	}
	return w.Flush()
}

func printListJSON(cmd *cobra.Command, entries []listEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
