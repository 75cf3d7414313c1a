package reconcile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lorea/bootstrap/internal/manifest"
	"github.com/lorea/bootstrap/internal/platform"
)

// RelinkPlugins links every directory under <root>/plugins into the core
// module directory with a relative symlink of the same name, and prunes
// links that point into the plugins directory at something that no
// longer exists. Real files or directories already at a link path are
// left alone. It returns the plugin names that are linked.
//
// A missing plugins directory is not an error; a missing core module
// directory is.
func (r *Reconciler) RelinkPlugins() ([]string, error) {
	pluginsDir, err := filepath.Abs(r.layout.CategoryDir(manifest.CategoryPlugins))
	if err != nil {
		return nil, err
	}
	modDir, err := filepath.Abs(r.layout.CoreModuleDir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(pluginsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading plugins directory: %w", err)
	}
	if info, err := os.Stat(modDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("core module directory %s is missing, is core installed?", modDir)
	}

	var (
		linked []string
		errs   []error
	)
	for _, e := range entries {
		src := filepath.Join(pluginsDir, e.Name())
		if info, err := os.Stat(src); err != nil || !info.IsDir() {
			continue
		}
		rel, err := filepath.Rel(modDir, src)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		link := filepath.Join(modDir, e.Name())
		if err := platform.ReplaceSymlink(rel, link); err != nil {
			if errors.Is(err, platform.ErrNotSymlink) {
				r.log.Warn().Str("plugin", e.Name()).Str("path", link).Msg("not linking plugin over a real directory")
				continue
			}
			errs = append(errs, fmt.Errorf("linking plugin %s: %w", e.Name(), err))
			continue
		}
		linked = append(linked, e.Name())
	}

	pruned, err := pruneDanglingLinks(modDir, pluginsDir)
	if err != nil {
		errs = append(errs, err)
	}
	for _, name := range pruned {
		r.log.Info().Str("plugin", name).Msg("removed dangling plugin link")
	}

	sort.Strings(linked)
	return linked, errors.Join(errs...)
}

// DanglingLinks returns the links in modDir that point into pluginsDir
// at a path that does not exist.
func DanglingLinks(modDir, pluginsDir string) ([]string, error) {
	modDir, err := filepath.Abs(modDir)
	if err != nil {
		return nil, err
	}
	pluginsDir, err = filepath.Abs(pluginsDir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(modDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var dangling []string
	for _, e := range entries {
		link := filepath.Join(modDir, e.Name())
		if !platform.IsSymlink(link) {
			continue
		}
		target, err := platform.ReadSymlinkTarget(link)
		if err != nil {
			continue
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(modDir, target)
		}
		target = filepath.Clean(target)
		if !strings.HasPrefix(target, pluginsDir+string(os.PathSeparator)) {
			continue
		}
		if _, err := os.Stat(target); errors.Is(err, fs.ErrNotExist) {
			dangling = append(dangling, e.Name())
		}
	}
	return dangling, nil
}

func pruneDanglingLinks(modDir, pluginsDir string) ([]string, error) {
	dangling, err := DanglingLinks(modDir, pluginsDir)
	if err != nil {
		return nil, fmt.Errorf("scanning plugin links: %w", err)
	}
	var errs []error
	for _, name := range dangling {
		if err := platform.RemoveSymlink(filepath.Join(modDir, name)); err != nil {
			errs = append(errs, err)
		}
	}
	return dangling, errors.Join(errs...)
}
