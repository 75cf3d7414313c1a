package toolcheck

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lorea/bootstrap/internal/manifest"
)

type fakeRunner map[string]string

func (f fakeRunner) Run(_ context.Context, _, name string, _ ...string) ([]byte, error) {
	out, ok := f[name]
	if !ok {
		return nil, errors.New("exit status 1")
	}
	return []byte(out), nil
}

func lookPathFor(found ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, f := range found {
			if f == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"git version 2.43.0", "2.43.0"},
		{"git version 2.39.3 (Apple Git-146)", "2.39.3"},
		{"Mercurial Distributed SCM (version 6.7.2)", "6.7.2"},
		{"6.1", "6.1.0"},
	}
	for _, tt := range tests {
		v, err := ParseVersion(tt.in)
		if err != nil {
			t.Errorf("ParseVersion(%q) error: %v", tt.in, err)
			continue
		}
		if v.String() != tt.want {
			t.Errorf("ParseVersion(%q) = %s, want %s", tt.in, v, tt.want)
		}
	}

	if _, err := ParseVersion("no digits here"); err == nil {
		t.Error("expected error for banner without version")
	}
}

func TestCheck(t *testing.T) {
	c := &Checker{
		Runner: fakeRunner{
			"git": "git version 2.43.0\n",
			"hg":  "Mercurial Distributed SCM (version 1.9.3)\n",
		},
		LookPath: lookPathFor("git", "hg"),
	}

	statuses := c.CheckKinds(context.Background(), DefaultRequirements, nil)
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses, want 2", len(statuses))
	}
	if !statuses[0].OK() {
		t.Errorf("git status: %v", statuses[0].Err)
	}
	if statuses[0].Path != "/usr/bin/git" {
		t.Errorf("git path = %q", statuses[0].Path)
	}
	if statuses[1].OK() {
		t.Error("hg 1.9.3 should not satisfy >= 2.0.0")
	}
}

func TestCheck_Missing(t *testing.T) {
	c := &Checker{Runner: fakeRunner{}, LookPath: lookPathFor()}
	st := c.Check(context.Background(), DefaultRequirements[0])
	if st.OK() {
		t.Fatal("expected failure for missing binary")
	}
	if !strings.Contains(st.Err.Error(), "not found") {
		t.Errorf("unexpected error: %v", st.Err)
	}
}

func TestCheckKinds_OnlyUsed(t *testing.T) {
	m := manifest.New()
	m.Register(manifest.CategoryCore, "elgg", manifest.KindGit, "u", manifest.StateAbsent)
	m.Register(manifest.CategoryPlugins, "autobox", manifest.KindZip, "u", manifest.StateAbsent)

	c := &Checker{Runner: fakeRunner{"git": "git version 2.1.4"}, LookPath: lookPathFor("git")}
	statuses := c.CheckKinds(context.Background(), DefaultRequirements, UsedKinds(m))
	if len(statuses) != 1 || statuses[0].Binary != "git" {
		t.Fatalf("statuses = %+v, want only git", statuses)
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	failed := Print(&buf, []Status{
		{Requirement: Requirement{Binary: "git"}, Path: "/usr/bin/git", Version: "2.43.0"},
		{Requirement: Requirement{Binary: "hg"}, Err: errors.New("hg not found in PATH")},
	})
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
	out := buf.String()
	if !strings.Contains(out, "[ OK ] git 2.43.0") || !strings.Contains(out, "[FAIL] hg") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
