package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Category partitions the manifest. The set is closed.
type Category string

// Category constants, in the order a reconciliation pass visits them.
const (
	CategoryCore    Category = "core"
	CategoryTools   Category = "tools"
	CategoryPlugins Category = "plugins"
)

// Categories lists every valid category in visiting order.
var Categories = []Category{
	CategoryCore,
	CategoryTools,
	CategoryPlugins,
}

// ParseCategory converts a string to a Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// ValidateName checks that name can be used as a single directory entry
// under a category directory. Empty names, "." and "..", and names
// containing a path separator are rejected.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case name == "." || name == "..",
		strings.ContainsAny(name, `/\`),
		filepath.Base(name) != name:
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// ValidateLocation rejects source locations that a fetch tool would
// read as a command-line option.
func ValidateLocation(location string) error {
	if strings.HasPrefix(location, "-") {
		return fmt.Errorf("%w: %q", ErrInvalidLocation, location)
	}
	return nil
}

// SourceKind selects the fetch/update strategy for a package.
type SourceKind string

// Supported source kinds.
const (
	KindGit SourceKind = "git"
	KindHg  SourceKind = "hg"
	KindZip SourceKind = "zip"
)

// SourceKinds lists every supported source kind.
var SourceKinds = []SourceKind{KindGit, KindHg, KindZip}

// ParseSourceKind converts a string to a SourceKind.
func ParseSourceKind(s string) (SourceKind, error) {
	for _, k := range SourceKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// State is the lifecycle state of a package. The zero value is
// StateAbsent and is persisted as JSON null.
type State string

// Lifecycle states.
const (
	StateAbsent    State = ""
	StateInstalled State = "installed"
	StateSkip      State = "skip"
	StateRemove    State = "remove"
)

// Valid reports whether s is one of the four lifecycle states. Manifest
// files may carry other strings; the reconciler reports those.
func (s State) Valid() bool {
	switch s {
	case StateAbsent, StateInstalled, StateSkip, StateRemove:
		return true
	}
	return false
}

// String returns "absent" for the zero state.
func (s State) String() string {
	if s == StateAbsent {
		return "absent"
	}
	return string(s)
}

// ParseState converts a user-supplied string to a State. "absent",
// "none" and "" all map to StateAbsent.
func ParseState(s string) (State, error) {
	switch s {
	case "", "absent", "none", "null":
		return StateAbsent, nil
	}
	st := State(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownState, s)
	}
	return st, nil
}

// MarshalJSON encodes StateAbsent as null.
func (s State) MarshalJSON() ([]byte, error) {
	if s == StateAbsent {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON decodes null as StateAbsent.
func (s *State) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = StateAbsent
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decoding state: %w", err)
	}
	*s = State(v)
	return nil
}

// Package is one managed unit.
type Package struct {
	Name     string     `json:"name"`
	Kind     SourceKind `json:"repo_type"`
	Location string     `json:"repo_url"`
	State    State      `json:"state"`
}

// Key identifies a package across categories.
type Key struct {
	Category Category
	Name     string
}

// String returns "<category>/<name>".
func (k Key) String() string {
	return string(k.Category) + "/" + k.Name
}

// Sentinel errors.
var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidName     = errors.New("invalid package name")
	ErrInvalidLocation = errors.New("invalid source location")
	ErrUnknownKind     = errors.New("unknown source kind")
	ErrUnknownState    = errors.New("unknown package state")
	ErrNotRegistered   = errors.New("package not registered")
	ErrInvalidManifest = errors.New("invalid manifest")
)
