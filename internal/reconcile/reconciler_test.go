package reconcile

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorea/bootstrap/internal/fetch"
	"github.com/lorea/bootstrap/internal/layout"
	"github.com/lorea/bootstrap/internal/manifest"
)

// fakeStrategy materializes package directories without any network
// or subprocess access.
type fakeStrategy struct {
	fetched []string
	updated []string
	fail    map[string]error
	// extra directories to create under the package dir on fetch
	subdirs map[string][]string
}

func (f *fakeStrategy) Fetch(_ context.Context, t fetch.Target) error {
	f.fetched = append(f.fetched, t.Name)
	if err := f.fail[t.Name]; err != nil {
		return err
	}
	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return err
	}
	for _, sub := range f.subdirs[t.Name] {
		if err := os.MkdirAll(filepath.Join(t.Dir, sub), 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(filepath.Join(t.Dir, "VERSION"), []byte("1"), 0o644)
}

func (f *fakeStrategy) Update(_ context.Context, t fetch.Target) error {
	f.updated = append(f.updated, t.Name)
	if err := f.fail[t.Name]; err != nil {
		return err
	}
	if _, err := os.Stat(t.Dir); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(t.Dir, "VERSION"), []byte("2"), 0o644)
}

type fixture struct {
	root     string
	layout   layout.Layout
	manifest *manifest.Manifest
	strategy *fakeStrategy
	out      *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	return &fixture{
		root:     root,
		layout:   layout.New(root, "", ""),
		manifest: manifest.New(),
		strategy: &fakeStrategy{
			fail:    map[string]error{},
			subdirs: map[string][]string{"elgg": {"mod"}},
		},
		out: &bytes.Buffer{},
	}
}

func (f *fixture) reconciler(opts ...Option) *Reconciler {
	reg := fetch.NewRegistry()
	for _, k := range manifest.SourceKinds {
		reg.Register(k, f.strategy)
	}
	opts = append([]Option{WithOutput(f.out)}, opts...)
	return New(f.manifest, f.layout, reg, opts...)
}

func (f *fixture) register(t *testing.T, c manifest.Category, name string, kind manifest.SourceKind, state manifest.State) {
	t.Helper()
	require.True(t, f.manifest.Register(c, name, kind, "https://example.org/"+name, state))
}

func (f *fixture) mkdir(t *testing.T, parts ...string) string {
	t.Helper()
	dir := filepath.Join(append([]string{f.root}, parts...)...)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return dir
}

func (f *fixture) state(t *testing.T, c manifest.Category, name string) manifest.State {
	t.Helper()
	p, ok := f.manifest.Get(c, name)
	require.True(t, ok, "%s/%s not registered", c, name)
	return p.State
}

func TestPlan(t *testing.T) {
	tests := []struct {
		state   manifest.State
		dir     bool
		want    Action
		wantErr bool
	}{
		{manifest.StateAbsent, false, ActionInstall, false},
		{manifest.StateAbsent, true, ActionUpdate, false},
		{manifest.StateInstalled, false, ActionUpdate, false},
		{manifest.StateInstalled, true, ActionUpdate, false},
		{manifest.StateSkip, true, ActionSkip, false},
		{manifest.StateRemove, true, ActionUninstall, false},
		{manifest.State("frozen"), true, ActionNone, true},
	}
	for _, tt := range tests {
		got, err := Plan(tt.state, tt.dir)
		if tt.wantErr {
			assert.ErrorIs(t, err, manifest.ErrUnknownState)
		} else {
			assert.NoError(t, err)
		}
		assert.Equal(t, tt.want, got, "Plan(%q, %v)", tt.state, tt.dir)
	}
}

func TestReconcileAll_InstallsAbsentPackages(t *testing.T) {
	f := newFixture(t)
	f.register(t, manifest.CategoryCore, "elgg", manifest.KindGit, manifest.StateAbsent)
	f.register(t, manifest.CategoryPlugins, "beechat", manifest.KindGit, manifest.StateAbsent)

	sum := f.reconciler().ReconcileAll(context.Background())

	require.Empty(t, sum.Failed())
	require.NoError(t, sum.RelinkErr)
	assert.Equal(t, 2, sum.Count(ActionInstall))
	assert.Equal(t, manifest.StateInstalled, f.state(t, manifest.CategoryCore, "elgg"))
	assert.Equal(t, manifest.StateInstalled, f.state(t, manifest.CategoryPlugins, "beechat"))
	assert.DirExists(t, filepath.Join(f.root, "core", "elgg"))
	assert.DirExists(t, filepath.Join(f.root, "plugins", "beechat"))
	assert.Equal(t, []string{"beechat"}, sum.Linked)

	out := f.out.String()
	assert.Contains(t, out, "== Updating core/\n")
	assert.Contains(t, out, " + core/elgg")
	assert.Contains(t, out, "== Updating plugins/\n")
	assert.NotContains(t, out, "== Updating tools/")
}

func TestReconcileAll_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.register(t, manifest.CategoryCore, "elgg", manifest.KindGit, manifest.StateAbsent)
	f.register(t, manifest.CategoryTools, "cryptobot", manifest.KindHg, manifest.StateSkip)
	f.register(t, manifest.CategoryPlugins, "beechat", manifest.KindGit, manifest.StateAbsent)

	r := f.reconciler()
	require.Empty(t, r.ReconcileAll(context.Background()).Failed())
	first := snapshot(f.manifest)
	fetchedAfterFirst := len(f.strategy.fetched)

	sum := r.ReconcileAll(context.Background())
	require.Empty(t, sum.Failed())
	assert.Equal(t, first, snapshot(f.manifest))
	assert.Len(t, f.strategy.fetched, fetchedAfterFirst, "second pass must not clone again")
	assert.Equal(t, 2, sum.Count(ActionUpdate))
	assert.Equal(t, 1, sum.Count(ActionSkip))
}

func snapshot(m *manifest.Manifest) map[string]manifest.State {
	out := map[string]manifest.State{}
	for _, k := range m.Keys() {
		p, _ := m.Get(k.Category, k.Name)
		out[k.String()] = p.State
	}
	return out
}

func TestReconcileAll_SkipIsUntouched(t *testing.T) {
	f := newFixture(t)
	f.register(t, manifest.CategoryTools, "cryptobot", manifest.KindHg, manifest.StateSkip)

	sum := f.reconciler().ReconcileAll(context.Background())

	require.Empty(t, sum.Failed())
	assert.Equal(t, manifest.StateSkip, f.state(t, manifest.CategoryTools, "cryptobot"))
	assert.Empty(t, f.strategy.fetched)
	assert.Empty(t, f.strategy.updated)
	assert.NoDirExists(t, filepath.Join(f.root, "tools", "cryptobot"))
}

func TestReconcileAll_AbsentWithDirectoryUpdates(t *testing.T) {
	f := newFixture(t)
	f.register(t, manifest.CategoryTools, "pyelgg", manifest.KindGit, manifest.StateAbsent)
	f.mkdir(t, "tools", "pyelgg")

	sum := f.reconciler().ReconcileAll(context.Background())

	require.Empty(t, sum.Failed())
	assert.Equal(t, []string{"pyelgg"}, f.strategy.updated)
	assert.Empty(t, f.strategy.fetched)
	assert.Equal(t, manifest.StateInstalled, f.state(t, manifest.CategoryTools, "pyelgg"))
}

func TestReconcileAll_RemovePlugin(t *testing.T) {
	f := newFixture(t)
	f.register(t, manifest.CategoryCore, "elgg", manifest.KindGit, manifest.StateInstalled)
	f.register(t, manifest.CategoryPlugins, "beechat", manifest.KindZip, manifest.StateRemove)
	f.mkdir(t, "core", "elgg", "mod")
	f.mkdir(t, "plugins", "beechat")
	f.mkdir(t, "tmp")
	archive := filepath.Join(f.root, "tmp", "plugins_beechat.zip")
	require.NoError(t, os.WriteFile(archive, []byte("zip"), 0o644))
	link := filepath.Join(f.root, "core", "elgg", "mod", "beechat")
	require.NoError(t, os.Symlink("../../../plugins/beechat", link))

	sum := f.reconciler().ReconcileAll(context.Background())

	require.Empty(t, sum.Failed())
	require.NoError(t, sum.RelinkErr)
	assert.Equal(t, 1, sum.Count(ActionUninstall))
	assert.Equal(t, manifest.StateAbsent, f.state(t, manifest.CategoryPlugins, "beechat"))
	assert.NoDirExists(t, filepath.Join(f.root, "plugins", "beechat"))
	assert.NoFileExists(t, archive)
	_, err := os.Lstat(link)
	assert.True(t, errors.Is(err, os.ErrNotExist), "plugin link should be gone, got %v", err)
}

func TestReconcileAll_UnknownStateReported(t *testing.T) {
	f := newFixture(t)
	f.register(t, manifest.CategoryTools, "pyelgg", manifest.KindGit, manifest.StateAbsent)
	f.register(t, manifest.CategoryTools, "weird", manifest.KindGit, manifest.StateAbsent)
	require.NoError(t, f.manifest.SetState(manifest.CategoryTools, "weird", manifest.State("frozen")))

	sum := f.reconciler().ReconcileAll(context.Background())

	failed := sum.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "tools/weird", failed[0].Key.String())
	assert.ErrorIs(t, failed[0].Err, manifest.ErrUnknownState)
	assert.Equal(t, manifest.State("frozen"), f.state(t, manifest.CategoryTools, "weird"))
	assert.Equal(t, manifest.StateInstalled, f.state(t, manifest.CategoryTools, "pyelgg"))
	assert.Contains(t, f.out.String(), `tools/weird has unrecognized state "frozen"`)
}

func TestReconcileAll_FailureIsolation(t *testing.T) {
	f := newFixture(t)
	f.register(t, manifest.CategoryPlugins, "broken", manifest.KindGit, manifest.StateAbsent)
	f.register(t, manifest.CategoryPlugins, "works", manifest.KindGit, manifest.StateAbsent)
	f.strategy.fail["broken"] = errors.New("repository not found")

	sum := f.reconciler().ReconcileAll(context.Background())

	failed := sum.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "plugins/broken", failed[0].Key.String())
	assert.Contains(t, failed[0].Err.Error(), "repository not found")
	assert.Equal(t, manifest.StateAbsent, f.state(t, manifest.CategoryPlugins, "broken"))
	assert.Equal(t, manifest.StateInstalled, f.state(t, manifest.CategoryPlugins, "works"))
	assert.Contains(t, f.out.String(), " ! install plugins/broken failed")
}

func TestUpdate_FailedUpdatePromotion(t *testing.T) {
	tests := []struct {
		name    string
		promote bool
		before  manifest.State
		want    manifest.State
	}{
		{"absent without promotion", false, manifest.StateAbsent, manifest.StateAbsent},
		{"absent with promotion", true, manifest.StateAbsent, manifest.StateInstalled},
		{"installed with promotion", true, manifest.StateInstalled, manifest.StateInstalled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.register(t, manifest.CategoryTools, "pyelgg", manifest.KindGit, tt.before)
			f.mkdir(t, "tools", "pyelgg")
			f.strategy.fail["pyelgg"] = errors.New("pull failed")

			res := f.reconciler(WithPromoteOnFailedUpdate(tt.promote)).
				Update(context.Background(), manifest.CategoryTools, "pyelgg")

			assert.False(t, res.OK())
			assert.Equal(t, tt.want, res.After)
			assert.Equal(t, tt.want, f.state(t, manifest.CategoryTools, "pyelgg"))
		})
	}
}

func TestUninstall_AbsentIsNoop(t *testing.T) {
	f := newFixture(t)
	f.register(t, manifest.CategoryPlugins, "beechat", manifest.KindGit, manifest.StateAbsent)
	dir := f.mkdir(t, "plugins", "beechat")

	res := f.reconciler().Uninstall(manifest.CategoryPlugins, "beechat")

	assert.True(t, res.OK())
	assert.Equal(t, ActionNone, res.Action)
	assert.DirExists(t, dir)
}

func TestUninstall_RefusesTraversalNames(t *testing.T) {
	f := newFixture(t)
	keep := f.mkdir(t, "plugins", "keep")
	marker := filepath.Join(f.root, "bootstrap.json")
	require.NoError(t, os.WriteFile(marker, []byte("{}"), 0o644))

	r := f.reconciler()
	for _, name := range []string{"..", ".", "../plugins", `..\x`} {
		assert.False(t, f.manifest.Register(manifest.CategoryPlugins, name, manifest.KindGit, "u", manifest.StateRemove), name)

		res := r.Uninstall(manifest.CategoryPlugins, name)
		assert.ErrorIs(t, res.Err, manifest.ErrInvalidName, name)

		res = r.Reconcile(context.Background(), manifest.CategoryPlugins, name)
		assert.ErrorIs(t, res.Err, manifest.ErrInvalidName, name)
		assert.Equal(t, ActionNone, res.Action)

		res = r.Install(context.Background(), manifest.CategoryPlugins, name)
		assert.ErrorIs(t, res.Err, manifest.ErrInvalidName, name)
	}

	assert.DirExists(t, keep)
	assert.FileExists(t, marker)
	assert.Empty(t, f.strategy.fetched)
}

func TestInstall_UnregisteredPackage(t *testing.T) {
	f := newFixture(t)
	res := f.reconciler().Install(context.Background(), manifest.CategoryCore, "nope")
	assert.ErrorIs(t, res.Err, manifest.ErrNotRegistered)
}

func TestInstall_NoStrategy(t *testing.T) {
	f := newFixture(t)
	f.register(t, manifest.CategoryCore, "elgg", manifest.KindGit, manifest.StateAbsent)

	r := New(f.manifest, f.layout, fetch.NewRegistry())
	res := r.Install(context.Background(), manifest.CategoryCore, "elgg")

	assert.ErrorIs(t, res.Err, manifest.ErrUnknownKind)
	assert.Equal(t, manifest.StateAbsent, f.state(t, manifest.CategoryCore, "elgg"))
}

func TestReconcileAll_Filter(t *testing.T) {
	f := newFixture(t)
	f.register(t, manifest.CategoryTools, "pyelgg", manifest.KindGit, manifest.StateAbsent)
	f.register(t, manifest.CategoryPlugins, "theme_a", manifest.KindGit, manifest.StateAbsent)
	f.register(t, manifest.CategoryPlugins, "other", manifest.KindGit, manifest.StateAbsent)

	filter, err := GlobFilter([]string{"plugins/theme_*"})
	require.NoError(t, err)
	f.mkdir(t, "core", "elgg", "mod")

	sum := f.reconciler(WithFilter(filter)).ReconcileAll(context.Background())

	require.Len(t, sum.Results, 1)
	assert.Equal(t, []string{"theme_a"}, f.strategy.fetched)
	assert.Equal(t, manifest.StateAbsent, f.state(t, manifest.CategoryTools, "pyelgg"))
	assert.Equal(t, manifest.StateAbsent, f.state(t, manifest.CategoryPlugins, "other"))
}

func TestGlobFilter(t *testing.T) {
	none, err := GlobFilter(nil)
	require.NoError(t, err)
	assert.Nil(t, none)

	f, err := GlobFilter([]string{"core/*", "plugins/bee*"})
	require.NoError(t, err)
	assert.True(t, f(manifest.Key{Category: manifest.CategoryCore, Name: "elgg"}))
	assert.True(t, f(manifest.Key{Category: manifest.CategoryPlugins, Name: "beechat"}))
	assert.False(t, f(manifest.Key{Category: manifest.CategoryPlugins, Name: "autobox"}))
	assert.False(t, f(manifest.Key{Category: manifest.CategoryTools, Name: "elgg"}))
}

func TestReconcileAll_DryRun(t *testing.T) {
	f := newFixture(t)
	f.register(t, manifest.CategoryCore, "elgg", manifest.KindGit, manifest.StateAbsent)
	f.register(t, manifest.CategoryPlugins, "beechat", manifest.KindGit, manifest.StateRemove)
	dir := f.mkdir(t, "plugins", "beechat")

	sum := f.reconciler(WithDryRun(true)).ReconcileAll(context.Background())

	require.Len(t, sum.Results, 2)
	assert.Equal(t, ActionInstall, sum.Results[0].Action)
	assert.Equal(t, ActionUninstall, sum.Results[1].Action)
	assert.Empty(t, f.strategy.fetched)
	assert.DirExists(t, dir)
	assert.Equal(t, manifest.StateRemove, f.state(t, manifest.CategoryPlugins, "beechat"))
	assert.Nil(t, sum.Linked)
}

func TestReconcileAll_CancelledContext(t *testing.T) {
	f := newFixture(t)
	f.register(t, manifest.CategoryCore, "elgg", manifest.KindGit, manifest.StateAbsent)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum := f.reconciler().ReconcileAll(ctx)

	assert.True(t, sum.Interrupted)
	assert.Empty(t, sum.Results)
	assert.Empty(t, f.strategy.fetched)
}
