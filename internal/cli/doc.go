// Package cli defines the Cobra command tree for the bootstrap CLI. Each file
// in this package registers one top-level command (sync, register, list, etc.)
// with the root command. Commands resolve settings through internal/config,
// build a workspace, and delegate to internal/manifest and internal/reconcile;
// they only handle arguments, output formatting and persistence.
package cli
