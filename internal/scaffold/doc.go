// Package scaffold generates a starter workspace from embedded templates: a
// declarations file (YAML or TOML) naming the core package, and an empty
// manifest. It powers the "bootstrap init" command.
package scaffold
