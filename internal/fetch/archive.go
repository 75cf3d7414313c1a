package fetch

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/lorea/bootstrap/internal/platform"
)

// skippedPrefixes are archive entries that are never extracted.
var skippedPrefixes = []string{"__MACOSX/"}

// Archive downloads a zip over HTTP and unpacks it into the category
// directory. The zip is expected to hold a top-level directory named
// after the package.
type Archive struct {
	Client    *http.Client
	UserAgent string
}

// Fetch downloads t.Location to t.Archive and extracts it.
func (a *Archive) Fetch(ctx context.Context, t Target) error {
	return a.install(ctx, t, false)
}

// Update downloads and extracts a fresh copy, then swaps it in for the
// previous one. A failed download or extraction keeps the previous
// directory and archive.
func (a *Archive) Update(ctx context.Context, t Target) error {
	return a.install(ctx, t, true)
}

// install stages the download and the extraction next to their final
// paths and only moves them into place once both succeeded.
func (a *Archive) install(ctx context.Context, t Target, replace bool) error {
	partial := t.Archive + ".part"
	defer os.Remove(partial)
	if err := a.download(ctx, t.Location, partial); err != nil {
		return err
	}

	if err := os.MkdirAll(t.CategoryDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", t.CategoryDir, err)
	}
	staging, err := os.MkdirTemp(t.CategoryDir, "."+t.Name+"-")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := extractZip(partial, staging); err != nil {
		return err
	}
	extracted := filepath.Join(staging, t.Name)
	if info, err := os.Stat(extracted); err != nil || !info.IsDir() {
		return fmt.Errorf("archive %s has no top-level %s/ directory", filepath.Base(t.Archive), t.Name)
	}

	var previous string
	if replace {
		previous = staging + ".old"
		defer os.RemoveAll(previous)
		if err := os.Rename(t.Dir, previous); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("moving %s aside: %w", t.Dir, err)
			}
			previous = ""
		}
	}
	if err := os.Rename(extracted, t.Dir); err != nil {
		if previous != "" {
			_ = os.Rename(previous, t.Dir)
		}
		return fmt.Errorf("moving %s into place: %w", t.Dir, err)
	}
	if err := os.Rename(partial, t.Archive); err != nil {
		return fmt.Errorf("keeping archive %s: %w", t.Archive, err)
	}
	return nil
}

func (a *Archive) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}

func (a *Archive) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating download request: %w", err)
	}
	ua := a.UserAgent
	if ua == "" {
		ua = "bootstrap-fetch"
	}
	req.Header.Set("User-Agent", ua)

	resp, err := a.client().Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download of %s returned status %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating download directory: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating download file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("writing download: %w", err)
	}
	return f.Close()
}

// extractZip unpacks archivePath into destDir. Entries escaping destDir
// are rejected.
func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening zip archive: %w", err)
	}
	defer r.Close()

	root, err := filepath.Abs(destDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", root, err)
	}

	for _, f := range r.File {
		if skipEntry(f.Name) {
			continue
		}

		destPath := filepath.Join(root, filepath.FromSlash(f.Name))
		if destPath != root && !strings.HasPrefix(destPath, root+string(os.PathSeparator)) {
			return fmt.Errorf("zip entry %q escapes %s", f.Name, destDir)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", destPath, err)
			}
			continue
		}
		if err := extractFile(f, destPath); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(destPath), err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	if perm := f.Mode().Perm(); perm&0o111 != 0 {
		return platform.Chmod(destPath, 0o755)
	}
	return nil
}

func skipEntry(name string) bool {
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
