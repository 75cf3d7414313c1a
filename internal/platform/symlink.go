package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
)

// ErrNotSymlink is returned when a path that should be replaced as a
// link is a real file or directory.
var ErrNotSymlink = errors.New("path exists and is not a symlink")

// CreateSymlink creates a symbolic link at link pointing to target.
// On Windows this requires developer mode or elevated privileges.
func CreateSymlink(target, link string) error {
	err := os.Symlink(target, link)
	if err != nil && runtime.GOOS == "windows" {
		return fmt.Errorf("creating symlink %s (enable Windows developer mode): %w", link, err)
	}
	return err
}

// ReplaceSymlink points link at target, replacing any existing symlink
// at that path. A real file or directory at link is left untouched and
// ErrNotSymlink is returned.
func ReplaceSymlink(target, link string) error {
	info, err := os.Lstat(link)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return err
	case info.Mode()&os.ModeSymlink == 0:
		return fmt.Errorf("%s: %w", link, ErrNotSymlink)
	default:
		if current, readErr := os.Readlink(link); readErr == nil && current == target {
			return nil
		}
		if err := os.Remove(link); err != nil {
			return fmt.Errorf("removing old link %s: %w", link, err)
		}
	}
	return CreateSymlink(target, link)
}

// RemoveSymlink removes the symlink at path. A missing path is not an
// error; a real file or directory is refused.
func RemoveSymlink(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return fmt.Errorf("%s: %w", path, ErrNotSymlink)
	}
	return os.Remove(path)
}

// ReadSymlinkTarget returns the target of a symlink.
func ReadSymlinkTarget(path string) (string, error) {
	return os.Readlink(path)
}

// IsSymlink reports whether path is a symbolic link.
func IsSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// Chmod sets file permissions. On Windows this is a no-op because Windows
// does not support Unix-style permission bits.
func Chmod(path string, mode os.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return os.Chmod(path, mode)
}
