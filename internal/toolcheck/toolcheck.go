// Package toolcheck verifies that the external binaries used by the
// fetch strategies are installed and recent enough.
package toolcheck

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"

	"github.com/Masterminds/semver/v3"

	"github.com/lorea/bootstrap/internal/fetch"
	"github.com/lorea/bootstrap/internal/manifest"
)

// Requirement describes one binary needed by a source kind.
type Requirement struct {
	Kind        manifest.SourceKind
	Binary      string
	VersionArgs []string
	Constraint  string
}

// DefaultRequirements covers the version-control kinds. Archives are
// fetched natively and need no binary.
var DefaultRequirements = []Requirement{
	{Kind: manifest.KindGit, Binary: "git", VersionArgs: []string{"--version"}, Constraint: ">= 2.0.0"},
	{Kind: manifest.KindHg, Binary: "hg", VersionArgs: []string{"--version", "--quiet"}, Constraint: ">= 2.0.0"},
}

// Status is the outcome of checking one requirement.
type Status struct {
	Requirement
	Path    string
	Version string
	Err     error
}

// OK reports whether the binary was found and satisfies its constraint.
func (s Status) OK() bool { return s.Err == nil }

// Checker runs requirement checks.
type Checker struct {
	Runner   fetch.Runner
	LookPath func(string) (string, error)
}

// New returns a Checker using runner and exec.LookPath.
func New(runner fetch.Runner) *Checker {
	return &Checker{Runner: runner, LookPath: exec.LookPath}
}

var versionPattern = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?`)

// ParseVersion extracts the first dotted version number from a
// --version banner such as "git version 2.43.0" or
// "Mercurial Distributed SCM (version 6.7.2)".
func ParseVersion(output string) (*semver.Version, error) {
	raw := versionPattern.FindString(output)
	if raw == "" {
		return nil, fmt.Errorf("no version number in %q", output)
	}
	return semver.NewVersion(raw)
}

// Check verifies a single requirement.
func (c *Checker) Check(ctx context.Context, req Requirement) Status {
	st := Status{Requirement: req}

	path, err := c.LookPath(req.Binary)
	if err != nil {
		st.Err = fmt.Errorf("%s not found in PATH", req.Binary)
		return st
	}
	st.Path = path

	out, err := c.Runner.Run(ctx, "", req.Binary, req.VersionArgs...)
	if err != nil {
		st.Err = fmt.Errorf("running %s: %w", req.Binary, err)
		return st
	}

	v, err := ParseVersion(string(out))
	if err != nil {
		st.Err = err
		return st
	}
	st.Version = v.String()

	if req.Constraint == "" {
		return st
	}
	constraint, err := semver.NewConstraint(req.Constraint)
	if err != nil {
		st.Err = fmt.Errorf("bad constraint %q: %w", req.Constraint, err)
		return st
	}
	if !constraint.Check(v) {
		st.Err = fmt.Errorf("%s %s does not satisfy %s", req.Binary, v, req.Constraint)
	}
	return st
}

// CheckKinds checks the requirements of every kind in kinds.
func (c *Checker) CheckKinds(ctx context.Context, reqs []Requirement, kinds map[manifest.SourceKind]bool) []Status {
	var out []Status
	for _, req := range reqs {
		if kinds != nil && !kinds[req.Kind] {
			continue
		}
		out = append(out, c.Check(ctx, req))
	}
	return out
}

// UsedKinds returns the set of source kinds present in m.
func UsedKinds(m *manifest.Manifest) map[manifest.SourceKind]bool {
	kinds := make(map[manifest.SourceKind]bool)
	for _, k := range m.Keys() {
		if p, ok := m.Get(k.Category, k.Name); ok {
			kinds[p.Kind] = true
		}
	}
	return kinds
}

// Print writes one line per status in the doctor format and returns
// the number of failures.
func Print(w io.Writer, statuses []Status) int {
	failed := 0
	for _, st := range statuses {
		if st.OK() {
			fmt.Fprintf(w, "  [ OK ] %s %s found at %s\n", st.Binary, st.Version, st.Path)
			continue
		}
		failed++
		fmt.Fprintf(w, "  [FAIL] %s: %v\n", st.Binary, st.Err)
	}
	return failed
}
