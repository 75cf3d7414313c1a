// Package layout maps packages onto the workspace filesystem: package
// directories under <root>/<category>/<name>, archive downloads under
// <root>/<tmp>/<category>_<name>.zip and plugin links inside the core
// module directory.
package layout

import (
	"os"
	"path/filepath"

	"github.com/lorea/bootstrap/internal/manifest"
)

// Defaults relative to the workspace root.
const (
	DefaultCoreModuleDir = "core/elgg/mod"
	DefaultTmpDir        = "tmp"
	archiveExt           = ".zip"
)

// Layout resolves filesystem paths for a workspace.
type Layout struct {
	Root          string
	CoreModuleDir string
	TmpDir        string
}

// New returns a Layout rooted at root. Relative coreModuleDir and
// tmpDir are resolved against root; empty values take the defaults.
func New(root, coreModuleDir, tmpDir string) Layout {
	if root == "" {
		root = "."
	}
	if coreModuleDir == "" {
		coreModuleDir = DefaultCoreModuleDir
	}
	if tmpDir == "" {
		tmpDir = DefaultTmpDir
	}
	return Layout{
		Root:          root,
		CoreModuleDir: resolve(root, coreModuleDir),
		TmpDir:        resolve(root, tmpDir),
	}
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// CategoryDir returns <root>/<category>.
func (l Layout) CategoryDir(category manifest.Category) string {
	return filepath.Join(l.Root, string(category))
}

// PackageDir returns <root>/<category>/<name>.
func (l Layout) PackageDir(category manifest.Category, name string) string {
	return filepath.Join(l.CategoryDir(category), name)
}

// ArchivePath returns the download location for an archive package.
func (l Layout) ArchivePath(category manifest.Category, name string) string {
	return filepath.Join(l.TmpDir, string(category)+"_"+name+archiveExt)
}

// PluginLink returns the path of a plugin's link inside the core module directory.
func (l Layout) PluginLink(name string) string {
	return filepath.Join(l.CoreModuleDir, name)
}

// HasPackageDir reports whether the package directory exists.
func (l Layout) HasPackageDir(category manifest.Category, name string) bool {
	info, err := os.Stat(l.PackageDir(category, name))
	return err == nil && info.IsDir()
}
