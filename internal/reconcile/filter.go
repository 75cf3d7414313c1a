package reconcile

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/lorea/bootstrap/internal/manifest"
)

// Filter selects which packages a pass touches.
type Filter func(manifest.Key) bool

// GlobFilter matches "<category>/<name>" against any of patterns, e.g.
// "plugins/theme_*" or "core/*". No patterns matches everything.
func GlobFilter(patterns []string) (Filter, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("bad package pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return func(k manifest.Key) bool {
		s := k.String()
		for _, g := range globs {
			if g.Match(s) {
				return true
			}
		}
		return false
	}, nil
}
