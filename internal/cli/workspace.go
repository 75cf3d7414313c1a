package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	"github.com/lorea/bootstrap/internal/config"
	"github.com/lorea/bootstrap/internal/fetch"
	"github.com/lorea/bootstrap/internal/layout"
	"github.com/lorea/bootstrap/internal/manifest"
	"github.com/lorea/bootstrap/internal/reconcile"
	"github.com/lorea/bootstrap/internal/remote"
)

// errSave marks a manifest that could not be written back. The
// workspace on disk may then be ahead of the recorded states.
var errSave = errors.New("manifest not saved")

// workspace bundles what every command needs to act on one root.
type workspace struct {
	settings config.Settings
	layout   layout.Layout
	runner   fetch.Runner
}

func openWorkspace() *workspace {
	s := config.Resolve()
	return &workspace{
		settings: s,
		layout:   layout.New(s.Root, s.CoreModuleDir, s.TmpDir),
		runner:   fetch.ExecRunner{},
	}
}

// loadManifest reads the manifest, falling back to an empty one when it
// is missing or unusable.
func (w *workspace) loadManifest() *manifest.Manifest {
	m, err := manifest.Read(w.settings.Manifest)
	switch {
	case err == nil:
		logger.Debug().Str("path", w.settings.Manifest).Int("packages", m.Count()).Msg("manifest loaded")
		return m
	case errors.Is(err, fs.ErrNotExist):
		logger.Info().Str("path", w.settings.Manifest).Msg("no manifest yet, starting empty")
	default:
		logger.Warn().Err(err).Str("path", w.settings.Manifest).Msg("manifest unusable, starting empty")
	}
	return manifest.New()
}

func (w *workspace) saveManifest(m *manifest.Manifest) error {
	if err := m.Save(w.settings.Manifest); err != nil {
		return fmt.Errorf("%w: %w", errSave, err)
	}
	logger.Debug().Str("path", w.settings.Manifest).Int("packages", m.Count()).Msg("manifest saved")
	return nil
}

// resolver returns the URL resolver for the configured environment,
// detecting it from the workspace checkout when unset.
func (w *workspace) resolver(ctx context.Context) (*remote.Resolver, error) {
	env, err := remote.ParseEnv(w.settings.Env)
	if err != nil {
		return nil, err
	}
	if env == "" {
		var origin string
		env, origin = remote.DetectEnv(ctx, w.runner, w.settings.Root, w.settings.DevOrigin)
		logger.Debug().Str("env", string(env)).Str("origin", origin).Msg("environment detected")
	}
	return remote.NewResolver(env, w.settings.Org), nil
}

func (w *workspace) strategies() *fetch.Registry {
	return fetch.Default(w.runner, &http.Client{Timeout: w.settings.ArchiveTimeout})
}

func (w *workspace) reconciler(m *manifest.Manifest, opts ...reconcile.Option) *reconcile.Reconciler {
	base := []reconcile.Option{
		reconcile.WithLogger(logger),
		reconcile.WithPromoteOnFailedUpdate(w.settings.PromoteOnFailedUpdate),
	}
	return reconcile.New(m, w.layout, w.strategies(), append(base, opts...)...)
}

// parseKey splits "<category>/<name>".
func parseKey(s string) (manifest.Key, error) {
	cat, name, ok := strings.Cut(s, "/")
	if !ok || cat == "" || name == "" || strings.Contains(name, "/") {
		return manifest.Key{}, fmt.Errorf("package %q: expected <category>/<name>", s)
	}
	category, err := manifest.ParseCategory(cat)
	if err != nil {
		return manifest.Key{}, err
	}
	if err := manifest.ValidateName(name); err != nil {
		return manifest.Key{}, err
	}
	return manifest.Key{Category: category, Name: name}, nil
}
