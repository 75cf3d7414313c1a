// Package manifest holds the persisted package state: every declared
// package keyed by category and name, with its source and lifecycle
// state. It loads and saves the bootstrap.json file, validates it
// against an embedded JSON Schema, and implements idempotent
// registration.
package manifest
