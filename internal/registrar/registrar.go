// Package registrar registers structured (slash) commands with the platform,
// globally or per test server, with retries and an optional hash cache.
package registrar

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/keshon/dispatchkit/pkg/cmd"
	"github.com/keshon/dispatchkit/pkg/retrylimit"
	"github.com/keshon/dispatchkit/pkg/util"
)

// GlobalScope is the scope ID of a global registration.
const GlobalScope = ""

// Creator creates or overwrites one structured command in a scope.
// An empty scopeID means global.
type Creator interface {
	Create(ctx context.Context, name, description string, options []cmd.OptionSpec, scopeID string) error
}

// HashStore remembers what was last registered per scope.
type HashStore interface {
	CommandHash(scope, name string) (string, bool, error)
	SetCommandHash(scope, name, hash string) error
}

type Registrar struct {
	creator     Creator
	hashes      HashStore
	limiter     *retrylimit.AdaptiveLimiter
	retry       retrylimit.Config
	testServers []string
	workers     int
	logger      *slog.Logger
}

type Option func(*Registrar)

// WithHashStore enables skipping definitions that have not changed since the
// last successful registration in the same scope.
func WithHashStore(h HashStore) Option {
	return func(r *Registrar) { r.hashes = h }
}

func WithRetryConfig(cfg retrylimit.Config) Option {
	return func(r *Registrar) { r.retry = cfg }
}

func WithLimiter(l *retrylimit.AdaptiveLimiter) Option {
	return func(r *Registrar) { r.limiter = l }
}

func WithWorkers(n int) Option {
	return func(r *Registrar) { r.workers = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Registrar) { r.logger = l }
}

func New(creator Creator, testServers []string, opts ...Option) *Registrar {
	r := &Registrar{
		creator:     creator,
		limiter:     retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
		retry:       retrylimit.DefaultConfig(),
		testServers: append([]string(nil), testServers...),
		workers:     4,
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	if r.retry.Logger == nil {
		r.retry.Logger = r.logger
	}
	return r
}

// Scopes returns where def is registered: every test server for testOnly
// definitions, otherwise the global scope.
func (r *Registrar) Scopes(def *cmd.Definition) []string {
	if def.TestOnly {
		return append([]string(nil), r.testServers...)
	}
	return []string{GlobalScope}
}

// Register creates def in each of its scopes. Text-only definitions are a no-op.
// Failures are returned as RegistrationErrors, one per failed scope.
func (r *Registrar) Register(ctx context.Context, def *cmd.Definition) error {
	if !def.Mode.Structured() || r.creator == nil {
		return nil
	}
	return util.Parallel(ctx, r.Scopes(def), r.workers, func(ctx context.Context, scope string) error {
		return r.registerIn(ctx, def, scope)
	})
}

func (r *Registrar) registerIn(ctx context.Context, def *cmd.Definition, scope string) error {
	name := def.Name()
	hash := Hash(def)

	if r.hashes != nil {
		prev, ok, err := r.hashes.CommandHash(scope, name)
		if err != nil {
			r.logger.Warn("failed to read registration cache", "command", name, "scope", scope, "error", err)
		} else if ok && prev == hash {
			r.logger.Debug("slash command unchanged, skipping", "command", name, "scope", scope)
			return nil
		}
	}

	err := retrylimit.Do(ctx, r.limiter, r.retry, func(ctx context.Context) error {
		return r.creator.Create(ctx, name, def.Description, def.Options, scope)
	})
	if err != nil {
		return &cmd.RegistrationError{Command: name, Scope: scope, Err: err}
	}
	r.logger.Info("registered slash command", "command", name, "scope", scopeLabel(scope))

	if r.hashes != nil {
		if err := r.hashes.SetCommandHash(scope, name, hash); err != nil {
			r.logger.Warn("failed to write registration cache", "command", name, "scope", scope, "error", err)
		}
	}
	return nil
}

// Hash is a deterministic digest of what the platform sees of def.
// Option order is part of the hash.
func Hash(def *cmd.Definition) string {
	type option struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Type        string `json:"type"`
		Required    bool   `json:"required"`
	}
	obj := struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Options     []option `json:"options,omitempty"`
	}{Name: def.Name(), Description: def.Description}
	for _, o := range def.Options {
		obj.Options = append(obj.Options, option{o.Name, o.Description, string(o.Type), o.Required})
	}
	data, _ := json.Marshal(obj)
	return fmt.Sprintf("%x", sha1.Sum(data))
}

func scopeLabel(scope string) string {
	if scope == GlobalScope {
		return "global"
	}
	return scope
}
