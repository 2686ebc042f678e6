// Package dispatch resolves inbound events to commands, authorizes them, runs
// their callbacks and hands the result to the reply surface.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/keshon/dispatchkit/pkg/cmd"
	"github.com/keshon/dispatchkit/pkg/jobmgr"
)

// Notice keys.
const (
	NoticeUnknownCommand = "UNKNOWN_COMMAND"
	NoticeGuildOnly      = "GUILD_ONLY_COMMAND"
	NoticeBotOwnersOnly  = "BOT_OWNERS_ONLY"
	NoticeSyntaxError    = "SYNTAX_ERROR"
)

// Replier delivers a reply on the surface ev came from.
type Replier interface {
	Reply(ctx context.Context, ev *cmd.Event, r cmd.Reply, ephemeral bool) error
}

// Notifier renders a localized notice. An empty result sends nothing.
type Notifier interface {
	Notice(ctx context.Context, guildID, key string, vars map[string]string) string
}

// CooldownCanceler drops the cooldown of command for userID.
type CooldownCanceler func(command, userID string)

type Dispatcher struct {
	registry   *cmd.Registry
	env        *cmd.Env
	replier    Replier
	notifier   Notifier
	middleware []cmd.Middleware
	cooldown   CooldownCanceler
	logger     *slog.Logger
	jobs       *jobmgr.Manager
}

type Option func(*Dispatcher)

func WithNotifier(n Notifier) Option {
	return func(d *Dispatcher) { d.notifier = n }
}

// WithMiddleware wraps every callback; the first middleware is the outermost.
func WithMiddleware(mws ...cmd.Middleware) Option {
	return func(d *Dispatcher) { d.middleware = append(d.middleware, mws...) }
}

func WithCooldownCanceler(c CooldownCanceler) Option {
	return func(d *Dispatcher) { d.cooldown = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New returns a dispatcher over env.Registry. replier may be nil, in which
// case replies are dropped.
func New(env *cmd.Env, replier Replier, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: env.Registry,
		env:      env,
		replier:  replier,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	d.jobs = jobmgr.NewManager(func(s string) {
		d.logger.Debug("delivery", "status", s)
	})
	return d
}

// Dispatch runs one event through resolution, authorization and invocation.
// It returns once the callback has finished; delivery continues in the background.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *cmd.Event) Outcome {
	settings := d.env.Settings

	if settings.IgnoreBotOrigin && ev.Author.Bot {
		return Outcome{State: Rejected, Reason: OriginIsBot}
	}

	alias, args, ok := d.parse(ev)
	if !ok {
		return Outcome{State: Rejected, Reason: NotACommand}
	}

	c, found := d.registry.Lookup(alias)
	if !found {
		d.notice(ctx, ev, NoticeUnknownCommand, map[string]string{"COMMAND": alias, "PREFIX": settings.Prefix})
		return Outcome{State: Rejected, Reason: UnknownCommand, Alias: alias}
	}
	out := Outcome{State: Resolved, Command: c.Name(), Alias: alias}

	if reason := d.authorize(ctx, ev, c, alias, args); reason != NoReason {
		out.State, out.Reason = Rejected, reason
		return out
	}
	out.State = Authorized

	if ev.Surface == cmd.SurfaceInteraction {
		args = orderedOptionArgs(c, ev.Options)
	}
	var cancel func()
	if d.cooldown != nil {
		name, user := c.Name(), ev.Author.ID
		cancel = func() { d.cooldown(name, user) }
	}
	inv := cmd.NewInvocation(ev, c, alias, args, d.env, cancel)

	reply, err := d.invoke(ctx, c, inv)
	out.State = Invoked
	if err != nil {
		out.State, out.Err = Suppressed, err
		d.handleError(ctx, c, ev, inv, err)
		return out
	}

	if cmd.Empty(reply) {
		out.State = Suppressed
		return out
	}
	d.deliver(ctx, c, ev, inv, reply)
	out.State = Replied
	return out
}

// Wait blocks until every pending delivery has finished.
func (d *Dispatcher) Wait() {
	d.jobs.Wait()
}

// Stop cancels pending deliveries and waits for them.
func (d *Dispatcher) Stop() {
	d.jobs.StopAll()
	d.jobs.Wait()
}

// parse extracts the lower-cased alias and the arguments.
func (d *Dispatcher) parse(ev *cmd.Event) (alias string, args []string, ok bool) {
	if ev.Surface == cmd.SurfaceInteraction {
		if ev.CommandName == "" {
			return "", nil, false
		}
		return strings.ToLower(ev.CommandName), nil, true
	}

	prefix := d.env.Settings.Prefix
	if prefix == "" || !strings.HasPrefix(ev.Content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(ev.Content[len(prefix):])
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

func (d *Dispatcher) authorize(ctx context.Context, ev *cmd.Event, c *cmd.Command, alias string, args []string) Reason {
	settings := d.env.Settings

	switch ev.Surface {
	case cmd.SurfaceMessage:
		if !c.Mode().Text() {
			return SurfaceMismatch
		}
	case cmd.SurfaceInteraction:
		if !c.Mode().Structured() {
			return SurfaceMismatch
		}
	}

	if c.GuildOnly() && ev.GuildID == "" {
		d.notice(ctx, ev, NoticeGuildOnly, map[string]string{"COMMAND": c.Name()})
		return NotInGuild
	}
	if c.TestOnly() && !settings.IsTestServer(ev.GuildID) {
		return NotATestServer
	}
	if c.OwnerOnly() && !settings.IsBotOwner(ev.Author.ID) {
		d.notice(ctx, ev, NoticeBotOwnersOnly, map[string]string{"COMMAND": c.Name()})
		return NotABotOwner
	}

	if ev.Surface == cmd.SurfaceMessage {
		min, max := c.ArgBounds()
		if (min >= 0 && len(args) < min) || (max >= 0 && len(args) > max) {
			d.notice(ctx, ev, NoticeSyntaxError, map[string]string{
				"PREFIX":    settings.Prefix,
				"COMMAND":   alias,
				"ARGUMENTS": c.ExpectedArgs(),
			})
			return ArgumentCount
		}
	}
	return NoReason
}

// invoke runs the wrapped callback, turning a panic into a DispatchError.
func (d *Dispatcher) invoke(ctx context.Context, c *cmd.Command, inv *cmd.Invocation) (reply cmd.Reply, err error) {
	cb := c.Callback()
	if cb == nil {
		return cmd.NoReply{}, nil
	}
	cb = cmd.Apply(c.Name(), cb, d.middleware...)

	defer func() {
		if r := recover(); r != nil {
			d.logger.Debug("callback panic", "command", c.Name(), "stack", string(debug.Stack()))
			reply, err = nil, &cmd.DispatchError{Command: c.Name(), Stage: "callback", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	reply, err = cb(ctx, inv)
	if err != nil {
		return nil, &cmd.DispatchError{Command: c.Name(), Stage: "callback", Err: err}
	}
	return reply, nil
}

func (d *Dispatcher) deliver(ctx context.Context, c *cmd.Command, ev *cmd.Event, inv *cmd.Invocation, reply cmd.Reply) {
	if d.replier == nil {
		return
	}
	ephemeral := ev.Surface == cmd.SurfaceInteraction && d.env.Settings.EphemeralReplies
	d.jobs.Go(context.WithoutCancel(ctx), "reply:"+c.Name(), func(ctx context.Context) error {
		if err := d.replier.Reply(ctx, ev, reply, ephemeral); err != nil {
			err = &cmd.DispatchError{Command: c.Name(), Stage: "reply", Err: err}
			d.handleError(ctx, c, ev, inv, err)
			return err
		}
		return nil
	})
}

func (d *Dispatcher) notice(ctx context.Context, ev *cmd.Event, key string, vars map[string]string) {
	if d.notifier == nil || d.replier == nil {
		return
	}
	text := d.notifier.Notice(ctx, ev.GuildID, key, vars)
	if text == "" {
		return
	}
	ephemeral := ev.Surface == cmd.SurfaceInteraction && d.env.Settings.EphemeralReplies
	d.jobs.Go(context.WithoutCancel(ctx), "notice:"+key, func(ctx context.Context) error {
		if err := d.replier.Reply(ctx, ev, cmd.Text(text), ephemeral); err != nil {
			d.logger.Warn("failed to send notice", "key", key, "channel", ev.ChannelID, "error", err)
			return err
		}
		return nil
	})
}

// handleError routes err to the command's error handler, or logs it.
func (d *Dispatcher) handleError(ctx context.Context, c *cmd.Command, ev *cmd.Event, inv *cmd.Invocation, err error) {
	h := c.ErrorHandler()
	if h == nil {
		d.logger.Error("unhandled dispatch error", "command", c.Name(), "surface", ev.Surface.String(), "error", err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("error handler panicked", "command", c.Name(), "panic", r, "error", err)
		}
	}()
	h(ctx, &cmd.ErrorInfo{
		Command:    c.Name(),
		Message:    ev.Raw,
		Invocation: inv,
		Err:        err,
		Info: map[string]any{
			"surface": ev.Surface.String(),
			"args":    inv.Args,
		},
	})
}

// orderedOptionArgs lists supplied option values in declared option order.
func orderedOptionArgs(c *cmd.Command, values []cmd.OptionValue) []string {
	byName := make(map[string]any, len(values))
	for _, v := range values {
		byName[v.Name] = v.Value
	}
	var args []string
	for _, o := range c.Options() {
		if v, ok := byName[o.Name]; ok {
			args = append(args, fmt.Sprint(v))
		}
	}
	return args
}
