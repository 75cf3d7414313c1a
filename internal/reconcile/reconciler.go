package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/rs/zerolog"

	"github.com/lorea/bootstrap/internal/fetch"
	"github.com/lorea/bootstrap/internal/layout"
	"github.com/lorea/bootstrap/internal/manifest"
	"github.com/lorea/bootstrap/internal/platform"
)

// Reconciler applies manifest states to a workspace.
type Reconciler struct {
	manifest   *manifest.Manifest
	layout     layout.Layout
	strategies *fetch.Registry

	log     zerolog.Logger
	out     io.Writer
	promote bool
	filter  Filter
	dryRun  bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Reconciler) { r.log = l }
}

// WithOutput sets where status lines are printed.
func WithOutput(w io.Writer) Option {
	return func(r *Reconciler) { r.out = w }
}

// WithPromoteOnFailedUpdate marks an absent package installed after an
// update attempt even when the update failed.
func WithPromoteOnFailedUpdate(v bool) Option {
	return func(r *Reconciler) { r.promote = v }
}

// WithFilter restricts ReconcileAll to the packages f accepts.
func WithFilter(f Filter) Option {
	return func(r *Reconciler) { r.filter = f }
}

// WithDryRun makes ReconcileAll print its plan without touching the
// workspace or the manifest.
func WithDryRun(v bool) Option {
	return func(r *Reconciler) { r.dryRun = v }
}

// New returns a Reconciler over m. The manifest is mutated in place.
func New(m *manifest.Manifest, l layout.Layout, strategies *fetch.Registry, opts ...Option) *Reconciler {
	r := &Reconciler{
		manifest:   m,
		layout:     l,
		strategies: strategies,
		log:        zerolog.Nop(),
		out:        io.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) target(category manifest.Category, p *manifest.Package) fetch.Target {
	return fetch.Target{
		Category:    category,
		Name:        p.Name,
		Location:    p.Location,
		Dir:         r.layout.PackageDir(category, p.Name),
		CategoryDir: r.layout.CategoryDir(category),
		Archive:     r.layout.ArchivePath(category, p.Name),
	}
}

// find returns the record for a package. Names that do not resolve to a
// single entry under the category directory are refused before any path
// is built from them.
func (r *Reconciler) find(category manifest.Category, name string) (*manifest.Package, error) {
	if err := manifest.ValidateName(name); err != nil {
		return nil, err
	}
	p, ok := r.manifest.Get(category, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", manifest.ErrNotRegistered, category, name)
	}
	return p, nil
}

func (r *Reconciler) lookup(category manifest.Category, name string) (*manifest.Package, fetch.Strategy, error) {
	p, err := r.find(category, name)
	if err != nil {
		return nil, nil, err
	}
	s, err := r.strategies.Lookup(p.Kind)
	if err != nil {
		return p, nil, err
	}
	return p, s, nil
}

// Install fetches a fresh copy of the package. On success its state
// becomes installed; on failure it is left unchanged.
func (r *Reconciler) Install(ctx context.Context, category manifest.Category, name string) Result {
	res := Result{Key: manifest.Key{Category: category, Name: name}, Action: ActionInstall}

	p, s, err := r.lookup(category, name)
	if p != nil {
		res.Before, res.After = p.State, p.State
	}
	if err != nil {
		res.Err = err
		return res
	}

	if err := s.Fetch(ctx, r.target(category, p)); err != nil {
		res.Err = fmt.Errorf("installing %s: %w", res.Key, err)
		return res
	}
	p.State = manifest.StateInstalled
	res.After = p.State
	return res
}

// Update refreshes an existing copy of the package. On success its
// state becomes installed. A failure leaves the state unchanged unless
// promotion is enabled and the package was absent.
func (r *Reconciler) Update(ctx context.Context, category manifest.Category, name string) Result {
	res := Result{Key: manifest.Key{Category: category, Name: name}, Action: ActionUpdate}

	p, s, err := r.lookup(category, name)
	if p != nil {
		res.Before, res.After = p.State, p.State
	}
	if err != nil {
		res.Err = err
		return res
	}

	if err := s.Update(ctx, r.target(category, p)); err != nil {
		res.Err = fmt.Errorf("updating %s: %w", res.Key, err)
		if r.promote && p.State == manifest.StateAbsent {
			p.State = manifest.StateInstalled
			res.After = p.State
		}
		return res
	}
	p.State = manifest.StateInstalled
	res.After = p.State
	return res
}

// Uninstall deletes the package directory, its downloaded archive and,
// for plugins, its link in the core module directory. The state becomes
// absent. An absent package is left alone. If the directory cannot be
// removed the state is left unchanged.
func (r *Reconciler) Uninstall(category manifest.Category, name string) Result {
	key := manifest.Key{Category: category, Name: name}
	res := Result{Key: key, Action: ActionUninstall}

	p, err := r.find(category, name)
	if err != nil {
		res.Err = err
		return res
	}
	res.Before, res.After = p.State, p.State
	if p.State == manifest.StateAbsent {
		res.Action = ActionNone
		return res
	}

	dir := r.layout.PackageDir(category, name)
	if err := os.RemoveAll(dir); err != nil {
		res.Err = fmt.Errorf("removing %s: %w", dir, err)
		return res
	}

	if p.Kind == manifest.KindZip {
		archive := r.layout.ArchivePath(category, name)
		if err := os.Remove(archive); err != nil && !errors.Is(err, fs.ErrNotExist) {
			r.log.Warn().Err(err).Str("package", key.String()).Msg("could not remove archive")
		}
	}
	if category == manifest.CategoryPlugins {
		if err := platform.RemoveSymlink(r.layout.PluginLink(name)); err != nil {
			r.log.Warn().Err(err).Str("package", key.String()).Msg("could not remove plugin link")
		}
	}

	p.State = manifest.StateAbsent
	res.After = p.State
	return res
}

// Reconcile plans and applies the action for one package.
func (r *Reconciler) Reconcile(ctx context.Context, category manifest.Category, name string) Result {
	key := manifest.Key{Category: category, Name: name}
	p, err := r.find(category, name)
	if err != nil {
		return Result{Key: key, Action: ActionNone, Err: err}
	}

	action, err := Plan(p.State, r.layout.HasPackageDir(category, name))
	if err != nil {
		return Result{Key: key, Action: ActionNone, Before: p.State, After: p.State, Err: fmt.Errorf("%s: %w", key, err)}
	}
	if r.dryRun {
		return Result{Key: key, Action: action, Before: p.State, After: p.State}
	}

	switch action {
	case ActionInstall:
		return r.Install(ctx, category, name)
	case ActionUpdate:
		return r.Update(ctx, category, name)
	case ActionUninstall:
		return r.Uninstall(category, name)
	}
	return Result{Key: key, Action: action, Before: p.State, After: p.State}
}

// ReconcileAll visits every package, category by category, printing a
// status line before acting on each. A failing package does not stop
// the pass. Plugins are relinked afterwards unless the context was
// cancelled or this is a dry run.
func (r *Reconciler) ReconcileAll(ctx context.Context) *Summary {
	sum := &Summary{}

	for _, category := range manifest.Categories {
		names := r.manifest.Names(category)
		header := false
		for _, name := range names {
			if ctx.Err() != nil {
				sum.Interrupted = true
				return sum
			}
			key := manifest.Key{Category: category, Name: name}
			if r.filter != nil && !r.filter(key) {
				continue
			}
			if !header {
				fmt.Fprintf(r.out, "== Updating %s/\n", category)
				header = true
			}

			p, _ := r.manifest.Get(category, name)
			fmt.Fprintf(r.out, " + %s/%-22s %3s %-55s %s\n", category, name, p.Kind, p.Location, p.State)

			res := r.Reconcile(ctx, category, name)
			sum.Results = append(sum.Results, res)
			r.report(res)
		}
	}

	if ctx.Err() != nil {
		sum.Interrupted = true
		return sum
	}
	if r.dryRun {
		return sum
	}

	linked, err := r.RelinkPlugins()
	sum.Linked = linked
	sum.RelinkErr = err
	return sum
}

func (r *Reconciler) report(res Result) {
	if res.OK() {
		r.log.Debug().
			Str("package", res.Key.String()).
			Str("action", string(res.Action)).
			Str("state", res.After.String()).
			Msg("package reconciled")
		return
	}
	if errors.Is(res.Err, manifest.ErrUnknownState) {
		fmt.Fprintf(r.out, " ! %s has unrecognized state %q, left unchanged\n", res.Key, string(res.Before))
	} else {
		fmt.Fprintf(r.out, " ! %s %s failed\n", res.Action, res.Key)
	}
	r.log.Error().
		Err(res.Err).
		Str("package", res.Key.String()).
		Str("action", string(res.Action)).
		Msg("package operation failed")
}
