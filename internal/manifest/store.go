package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Manifest is the full set of package records, partitioned by category.
// All categories are always present, even when empty.
type Manifest struct {
	packages map[Category]map[string]*Package
}

// New returns a manifest with every category present and empty.
func New() *Manifest {
	m := &Manifest{packages: make(map[Category]map[string]*Package, len(Categories))}
	for _, c := range Categories {
		m.packages[c] = make(map[string]*Package)
	}
	return m
}

// Read loads and validates the manifest file at path. Unlike Load it
// reports why a file could not be used.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	result, err := Validate(data)
	if err != nil {
		return nil, fmt.Errorf("validating manifest %s: %w", path, err)
	}
	if !result.Valid {
		return nil, &ValidationError{Path: path, Issues: result.Issues}
	}

	m := New()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return m, nil
}

// Load reads the manifest at path. It never fails: a missing,
// unreadable or invalid file yields an empty manifest.
func Load(path string) *Manifest {
	m, err := Read(path)
	if err != nil {
		return New()
	}
	return m
}

// Save writes the manifest to path with sorted keys. The file is
// replaced atomically through a temporary file in the same directory.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating manifest directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp manifest: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting manifest permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing manifest %s: %w", path, err)
	}
	return nil
}

// Register inserts a package record. An existing record is only
// overwritten when state is explicit (not StateAbsent). It returns
// whether the manifest changed. Unknown categories and source kinds,
// names that fail ValidateName and locations that fail ValidateLocation are
// rejected without mutation.
func (m *Manifest) Register(category Category, name string, kind SourceKind, location string, state State) bool {
	pkgs, ok := m.packages[category]
	if !ok || ValidateName(name) != nil {
		return false
	}
	if ValidateLocation(location) != nil {
		return false
	}
	if _, err := ParseSourceKind(string(kind)); err != nil {
		return false
	}
	if _, exists := pkgs[name]; exists && state == StateAbsent {
		return false
	}
	pkgs[name] = &Package{
		Name:     name,
		Kind:     kind,
		Location: location,
		State:    state,
	}
	return true
}

// Get returns the record for (category, name).
func (m *Manifest) Get(category Category, name string) (*Package, bool) {
	pkgs, ok := m.packages[category]
	if !ok {
		return nil, false
	}
	p, ok := pkgs[name]
	return p, ok
}

// SetState changes the state of a registered package.
func (m *Manifest) SetState(category Category, name string, state State) error {
	p, ok := m.Get(category, name)
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotRegistered, category, name)
	}
	p.State = state
	return nil
}

// Keys returns every package key in visiting order: categories in
// Categories order, names sorted within each category.
func (m *Manifest) Keys() []Key {
	var keys []Key
	for _, c := range Categories {
		for _, name := range m.Names(c) {
			keys = append(keys, Key{Category: c, Name: name})
		}
	}
	return keys
}

// Names returns the sorted package names of a category.
func (m *Manifest) Names(category Category) []string {
	pkgs := m.packages[category]
	names := make([]string, 0, len(pkgs))
	for name := range pkgs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of packages across all categories.
func (m *Manifest) Count() int {
	n := 0
	for _, pkgs := range m.packages {
		n += len(pkgs)
	}
	return n
}

// CountCategory returns the number of packages in one category.
func (m *Manifest) CountCategory(category Category) int {
	return len(m.packages[category])
}

// RewriteLocations applies fn to every source location.
func (m *Manifest) RewriteLocations(fn func(string) string) {
	for _, pkgs := range m.packages {
		for _, p := range pkgs {
			p.Location = fn(p.Location)
		}
	}
}

// MarshalJSON encodes the manifest keyed by category then name.
// encoding/json sorts map keys, which keeps the output diffable.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	out := make(map[Category]map[string]*Package, len(Categories))
	for _, c := range Categories {
		out[c] = m.packages[c]
		if out[c] == nil {
			out[c] = map[string]*Package{}
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a manifest document. Records are re-keyed so
// that a record's name always matches its map key, and keys that are not
// valid package names are rejected.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var raw map[Category]map[string]*Package
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	fresh := New()
	for category, pkgs := range raw {
		if _, ok := fresh.packages[category]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
		}
		for name, p := range pkgs {
			if p == nil {
				continue
			}
			if err := ValidateName(name); err != nil {
				return fmt.Errorf("%s: %w", category, err)
			}
			p.Name = name
			fresh.packages[category][name] = p
		}
	}
	m.packages = fresh.packages
	return nil
}
