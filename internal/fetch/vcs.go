package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Git clones and pulls git repositories.
type Git struct {
	Runner Runner
}

// Fetch clones t.Location into t.Dir. The destination is passed as an
// absolute path because the command runs inside the category directory.
// Arguments after "--" are never parsed as options.
func (g *Git) Fetch(ctx context.Context, t Target) error {
	if err := os.MkdirAll(t.CategoryDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", t.CategoryDir, err)
	}
	dest, err := filepath.Abs(t.Dir)
	if err != nil {
		return err
	}
	if _, err := g.Runner.Run(ctx, t.CategoryDir, "git", "clone", "--", t.Location, dest); err != nil {
		return fmt.Errorf("cloning %s: %w", t.Location, err)
	}
	return nil
}

// Update pulls inside t.Dir.
func (g *Git) Update(ctx context.Context, t Target) error {
	if _, err := g.Runner.Run(ctx, t.Dir, "git", "pull", "--ff-only"); err != nil {
		return fmt.Errorf("pulling %s: %w", t.Dir, err)
	}
	return nil
}

// Hg clones and pulls mercurial repositories.
type Hg struct {
	Runner Runner
}

// Fetch clones t.Location into t.Dir.
func (h *Hg) Fetch(ctx context.Context, t Target) error {
	if err := os.MkdirAll(t.CategoryDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", t.CategoryDir, err)
	}
	dest, err := filepath.Abs(t.Dir)
	if err != nil {
		return err
	}
	if _, err := h.Runner.Run(ctx, t.CategoryDir, "hg", "clone", "--", t.Location, dest); err != nil {
		return fmt.Errorf("cloning %s: %w", t.Location, err)
	}
	return nil
}

// Update pulls and updates the working copy inside t.Dir.
func (h *Hg) Update(ctx context.Context, t Target) error {
	if _, err := h.Runner.Run(ctx, t.Dir, "hg", "pull", "--update"); err != nil {
		return fmt.Errorf("pulling %s: %w", t.Dir, err)
	}
	return nil
}
