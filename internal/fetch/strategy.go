package fetch

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lorea/bootstrap/internal/manifest"
)

// Target describes where one package lives on disk.
type Target struct {
	Category manifest.Category
	Name     string
	Location string

	// Dir is the package directory, <root>/<category>/<name>.
	Dir string
	// CategoryDir is the parent of Dir.
	CategoryDir string
	// Archive is the download path used by archive strategies.
	Archive string
}

// Strategy fetches a fresh copy of a package and refreshes an existing one.
type Strategy interface {
	Fetch(ctx context.Context, t Target) error
	Update(ctx context.Context, t Target) error
}

// Registry maps source kinds to strategies.
type Registry struct {
	strategies map[manifest.SourceKind]Strategy
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[manifest.SourceKind]Strategy)}
}

// Default returns a registry with the git, hg and zip strategies.
func Default(runner Runner, client *http.Client) *Registry {
	r := NewRegistry()
	r.Register(manifest.KindGit, &Git{Runner: runner})
	r.Register(manifest.KindHg, &Hg{Runner: runner})
	r.Register(manifest.KindZip, &Archive{Client: client})
	return r
}

// Register sets the strategy for kind, replacing any previous one.
func (r *Registry) Register(kind manifest.SourceKind, s Strategy) {
	r.strategies[kind] = s
}

// Lookup returns the strategy for kind.
func (r *Registry) Lookup(kind manifest.SourceKind) (Strategy, error) {
	s, ok := r.strategies[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no strategy for %q", manifest.ErrUnknownKind, kind)
	}
	return s, nil
}
