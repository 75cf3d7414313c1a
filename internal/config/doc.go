// Package config resolves settings from ~/.bootstrap/config.yaml,
// BOOTSTRAP_* environment variables and command-line flags, in
// increasing order of precedence, and exposes them as a Settings value.
package config
