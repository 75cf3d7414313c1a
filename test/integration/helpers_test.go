//go:build integration

package integration_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lorea/bootstrap/internal/layout"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	Root    string // workspace root: core/, tools/, plugins/, tmp/
	Origins string // upstream repositories the workspace clones from
	Layout  layout.Layout
}

// setupTestEnv creates an isolated workspace and a directory for
// upstream repositories. Tests are skipped when git is not installed.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	// Keep the user's git configuration out of the test.
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_AUTHOR_NAME", "Test")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.org")
	t.Setenv("GIT_COMMITTER_NAME", "Test")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.org")

	root := t.TempDir()
	return &testEnv{
		Root:    root,
		Origins: t.TempDir(),
		Layout:  layout.New(root, "", ""),
	}
}

// makeRepo creates a git repository named name under env.Origins with
// one commit holding files, and returns its path.
func (env *testEnv) makeRepo(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(env.Origins, name)
	git(t, env.Origins, "init", "--quiet", name)
	env.commit(t, dir, files, "initial")
	return dir
}

// commit writes files into repo and commits them.
func (env *testEnv) commit(t *testing.T, repo string, files map[string]string, msg string) {
	t.Helper()
	for rel, content := range files {
		writeFile(t, filepath.Join(repo, rel), content)
	}
	git(t, repo, "add", "--all")
	git(t, repo, "commit", "--quiet", "-m", msg)
}

func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return string(out)
}

// writeFile creates a file with the given content, creating parent dirs.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertNotExists fails the test if anything, even a dangling link, is at path.
func assertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Lstat(path); err == nil {
		t.Errorf("expected %s NOT to exist", path)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}
