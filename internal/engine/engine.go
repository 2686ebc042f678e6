// Package engine is the framework instance: it loads definition sources,
// registers their commands and routes events to them once ready.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"github.com/keshon/dispatchkit/internal/definition"
	"github.com/keshon/dispatchkit/internal/dispatch"
	"github.com/keshon/dispatchkit/internal/registrar"
	"github.com/keshon/dispatchkit/pkg/cmd"
)

// LoadReport summarizes one load pass. Err aggregates per-definition
// configuration and registration failures; the other definitions still loaded.
type LoadReport struct {
	Commands   []string
	Unbound    []string
	Warnings   []definition.Warning
	Collisions []cmd.Collision
	Err        error
}

func (r *LoadReport) merge(o *LoadReport) {
	r.Commands = append(r.Commands, o.Commands...)
	r.Unbound = append(r.Unbound, o.Unbound...)
	r.Warnings = append(r.Warnings, o.Warnings...)
	r.Collisions = append(r.Collisions, o.Collisions...)
	if o.Err != nil {
		r.Err = multierror.Append(r.Err, o.Err)
	}
}

type Engine struct {
	settings cmd.Settings
	registry *cmd.Registry
	env      *cmd.Env
	logger   *slog.Logger

	fs       afero.Fs
	useHCL   bool
	handlers cmd.Handlers

	creator       registrar.Creator
	registrarOpts []registrar.Option
	registrar     *registrar.Registrar

	replier      dispatch.Replier
	notifier     dispatch.Notifier
	dispatchOpts []dispatch.Option
	dispatcher   *dispatch.Dispatcher

	loadMu    sync.Mutex
	ready     chan struct{}
	readyOnce sync.Once
}

type Option func(*Engine)

// WithFs sets the filesystem definition sources are read from.
func WithFs(fs afero.Fs) Option {
	return func(e *Engine) { e.fs = fs }
}

// WithHCL reads .hcl definitions instead of YAML ones.
func WithHCL(on bool) Option {
	return func(e *Engine) { e.useHCL = on }
}

// WithHandlers binds handler keys referenced from definition files.
func WithHandlers(h cmd.Handlers) Option {
	return func(e *Engine) { e.handlers = h }
}

// WithCreator enables structured-command registration.
func WithCreator(c registrar.Creator, opts ...registrar.Option) Option {
	return func(e *Engine) {
		e.creator = c
		e.registrarOpts = append(e.registrarOpts, opts...)
	}
}

func WithReplier(r dispatch.Replier) Option {
	return func(e *Engine) { e.replier = r }
}

// WithNotifier sets the notice source for the dispatcher and for callbacks.
func WithNotifier(n dispatch.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithMiddleware(mws ...cmd.Middleware) Option {
	return func(e *Engine) { e.dispatchOpts = append(e.dispatchOpts, dispatch.WithMiddleware(mws...)) }
}

func WithCooldownCanceler(c dispatch.CooldownCanceler) Option {
	return func(e *Engine) { e.dispatchOpts = append(e.dispatchOpts, dispatch.WithCooldownCanceler(c)) }
}

// WithPlatform exposes an adapter handle to callbacks through Env.Platform.
func WithPlatform(p any) Option {
	return func(e *Engine) { e.env.Platform = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func New(settings cmd.Settings, opts ...Option) *Engine {
	reg := cmd.NewRegistry()
	e := &Engine{
		settings: settings,
		registry: reg,
		env:      &cmd.Env{Registry: reg, Settings: settings},
		logger:   slog.Default(),
		ready:    make(chan struct{}),
	}
	for _, o := range opts {
		o(e)
	}
	if e.fs == nil {
		e.fs = definition.FsFactory()
	}
	if e.notifier != nil {
		e.env.Notice = e.notifier.Notice
	}
	if e.creator != nil {
		ropts := append([]registrar.Option{registrar.WithLogger(e.logger)}, e.registrarOpts...)
		e.registrar = registrar.New(e.creator, settings.TestServerIDs, ropts...)
	}
	dopts := []dispatch.Option{dispatch.WithLogger(e.logger)}
	if e.notifier != nil {
		dopts = append(dopts, dispatch.WithNotifier(e.notifier))
	}
	e.dispatcher = dispatch.New(e.env, e.replier, append(dopts, e.dispatchOpts...)...)
	return e
}

func (e *Engine) Registry() *cmd.Registry { return e.registry }
func (e *Engine) Env() *cmd.Env           { return e.env }

// Ready is closed once Start has loaded every source.
func (e *Engine) Ready() <-chan struct{} { return e.ready }

// Start loads dirs and then signals readiness. A missing or relative directory
// aborts Start and readiness is not signalled.
func (e *Engine) Start(ctx context.Context, dirs ...string) (*LoadReport, error) {
	total := &LoadReport{}
	for _, dir := range dirs {
		rep, err := e.AddCommandSource(ctx, dir)
		if err != nil {
			return total, err
		}
		total.merge(rep)
	}
	e.MarkReady()
	e.logger.Info("command engine ready", "commands", len(e.registry.Commands()), "aliases", e.registry.Len())
	return total, nil
}

// MarkReady lets Dispatch proceed. It is safe to call more than once.
func (e *Engine) MarkReady() {
	e.readyOnce.Do(func() { close(e.ready) })
}

// AddCommandSource loads every definition under dir. The returned error is
// reserved for the directory itself; per-definition failures go to LoadReport.Err.
func (e *Engine) AddCommandSource(ctx context.Context, dir string) (*LoadReport, error) {
	if !filepath.IsAbs(dir) {
		return nil, &cmd.ConfigurationError{Source: dir, Err: cmd.ErrRelativeDirectory}
	}
	raws, errs, err := definition.NewLoader(e.fs, e.useHCL).Load(dir)
	if err != nil {
		return nil, err
	}

	rep := &LoadReport{}
	for _, err := range errs {
		e.logger.Error("failed to load command", "error", err)
		rep.Err = multierror.Append(rep.Err, err)
	}
	for _, raw := range raws {
		rep.merge(e.load(ctx, raw))
	}
	e.logger.Info("loaded command source", "dir", dir, "commands", len(rep.Commands), "failed", errorCount(rep.Err))
	return rep, nil
}

// RegisterCommand loads one definition given as a record. Fields may hold Go
// functions for "callback", "error" and "init".
func (e *Engine) RegisterCommand(ctx context.Context, rec definition.Record) *LoadReport {
	return e.load(ctx, definition.Raw{Record: rec})
}

func (e *Engine) load(ctx context.Context, raw definition.Raw) *LoadReport {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	rep := &LoadReport{}
	v := &definition.Validator{
		Handlers:         e.handlers,
		TestServers:      e.settings.TestServerIDs,
		SuppressWarnings: e.settings.SuppressWarnings,
		Logger:           e.logger,
	}
	res, err := v.Validate(raw)
	if err != nil {
		e.logger.Error("invalid command definition", "error", err)
		rep.Err = multierror.Append(rep.Err, err)
		return rep
	}
	def := res.Definition
	rep.Warnings = res.Warnings

	if e.registrar != nil {
		if err := e.registrar.Register(ctx, &def); err != nil {
			e.logger.Error("failed to register slash command", "command", def.Name(), "error", err)
			rep.Err = multierror.Append(rep.Err, err)
			return rep
		}
	}

	if !res.Bound {
		rep.Unbound = append(rep.Unbound, def.Name())
		return rep
	}

	c := cmd.NewCommand(def)
	rep.Collisions = e.registry.Register(c.Aliases(), c)
	for _, col := range rep.Collisions {
		if !e.settings.SuppressWarnings {
			e.logger.Warn("alias re-pointed to another command",
				"alias", col.Alias, "previous", col.Previous, "current", col.Current)
		}
	}
	rep.Commands = append(rep.Commands, def.Name())
	e.logger.Debug("command loaded", "command", def.Name(), "aliases", c.Aliases(), "mode", def.Mode.String())

	if def.Init != nil {
		if err := def.Init(ctx, e.env); err != nil {
			err = &cmd.ConfigurationError{Command: def.Name(), Source: def.Source, Err: fmt.Errorf("init: %w", err)}
			e.logger.Error("command init failed", "error", err)
			rep.Err = multierror.Append(rep.Err, err)
		}
	}
	return rep
}

// Dispatch waits until the engine is ready, then dispatches ev.
func (e *Engine) Dispatch(ctx context.Context, ev *cmd.Event) (dispatch.Outcome, error) {
	select {
	case <-e.ready:
	case <-ctx.Done():
		return dispatch.Outcome{State: dispatch.Received}, ctx.Err()
	}
	return e.dispatcher.Dispatch(ctx, ev), nil
}

// Wait blocks until pending reply deliveries finish.
func (e *Engine) Wait() { e.dispatcher.Wait() }

// Close cancels pending deliveries.
func (e *Engine) Close() { e.dispatcher.Stop() }

func errorCount(err error) int {
	if err == nil {
		return 0
	}
	if m, ok := err.(*multierror.Error); ok {
		return len(m.Errors)
	}
	return 1
}
