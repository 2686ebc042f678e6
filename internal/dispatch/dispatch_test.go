package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/keshon/dispatchkit/pkg/cmd"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sent struct {
	Reply     cmd.Reply
	Ephemeral bool
}

type fakeReplier struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (f *fakeReplier) Reply(_ context.Context, _ *cmd.Event, r cmd.Reply, ephemeral bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{Reply: r, Ephemeral: ephemeral})
	return f.err
}

func (f *fakeReplier) replies() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

type notice struct {
	Key  string
	Vars map[string]string
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (f *fakeNotifier) Notice(_ context.Context, _, key string, vars map[string]string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice{Key: key, Vars: vars})
	return "notice:" + key
}

type harness struct {
	reg      *cmd.Registry
	replier  *fakeReplier
	notifier *fakeNotifier
	d        *Dispatcher
}

func newHarness(t *testing.T, settings cmd.Settings, opts ...Option) *harness {
	t.Helper()
	if settings.Prefix == "" {
		settings.Prefix = "!"
	}
	h := &harness{reg: cmd.NewRegistry(), replier: &fakeReplier{}, notifier: &fakeNotifier{}}
	env := &cmd.Env{Registry: h.reg, Settings: settings}
	base := []Option{WithNotifier(h.notifier), WithLogger(slog.New(slog.DiscardHandler))}
	h.d = New(env, h.replier, append(base, opts...)...)
	t.Cleanup(h.d.Wait)
	return h
}

func (h *harness) add(def cmd.Definition) *cmd.Command {
	c := cmd.NewCommand(def)
	h.reg.Register(c.Aliases(), c)
	return c
}

func textReply(s string) cmd.Callback {
	return func(context.Context, *cmd.Invocation) (cmd.Reply, error) {
		return cmd.Text(s), nil
	}
}

func message(content string) *cmd.Event {
	return &cmd.Event{Surface: cmd.SurfaceMessage, Content: content, GuildID: "g1", ChannelID: "c1", Author: cmd.Author{ID: "u1"}}
}

func TestDispatch_UnknownAliasNoticesOnce(t *testing.T) {
	h := newHarness(t, cmd.Settings{})
	called := false
	h.add(cmd.Definition{Names: []string{"ping"}, Callback: func(context.Context, *cmd.Invocation) (cmd.Reply, error) {
		called = true
		return nil, nil
	}})

	out := h.d.Dispatch(context.Background(), message("!pong now"))
	h.d.Wait()

	assert.Equal(t, Rejected, out.State)
	assert.Equal(t, UnknownCommand, out.Reason)
	assert.Equal(t, "pong", out.Alias)
	assert.False(t, called)

	require.Len(t, h.notifier.notices, 1)
	assert.Equal(t, NoticeUnknownCommand, h.notifier.notices[0].Key)
	require.Len(t, h.replier.replies(), 1)
	assert.Equal(t, cmd.Text("notice:UNKNOWN_COMMAND"), h.replier.replies()[0].Reply)
}

func TestDispatch_PlainStringRepliesOnce(t *testing.T) {
	h := newHarness(t, cmd.Settings{})
	h.add(cmd.Definition{Names: []string{"ping", "p"}, Callback: textReply("pong")})

	out := h.d.Dispatch(context.Background(), message("!P"))
	h.d.Wait()

	assert.Equal(t, Replied, out.State)
	assert.Equal(t, "ping", out.Command)
	assert.Equal(t, "p", out.Alias)
	require.Len(t, h.replier.replies(), 1)
	assert.Equal(t, cmd.Text("pong"), h.replier.replies()[0].Reply)
	assert.False(t, h.replier.replies()[0].Ephemeral)
}

func TestDispatch_TwoBlocksInOneReply(t *testing.T) {
	h := newHarness(t, cmd.Settings{})
	h.add(cmd.Definition{Names: []string{"info"}, Callback: func(context.Context, *cmd.Invocation) (cmd.Reply, error) {
		return cmd.Blocks{{Title: "one"}, {Title: "two"}}, nil
	}})

	h.d.Dispatch(context.Background(), message("!info"))
	h.d.Wait()

	replies := h.replier.replies()
	require.Len(t, replies, 1)
	blocks, ok := replies[0].Reply.(cmd.Blocks)
	require.True(t, ok)
	assert.Len(t, blocks, 2)
}

func TestDispatch_LastRegistrationWins(t *testing.T) {
	h := newHarness(t, cmd.Settings{})
	h.add(cmd.Definition{Names: []string{"first", "x"}, Callback: textReply("first")})
	h.add(cmd.Definition{Names: []string{"second", "x"}, Callback: textReply("second")})

	out := h.d.Dispatch(context.Background(), message("!x"))
	h.d.Wait()

	assert.Equal(t, "second", out.Command)
	assert.Equal(t, cmd.Text("second"), h.replier.replies()[0].Reply)
}

func TestDispatch_CallbackErrorRoutedToHandler(t *testing.T) {
	h := newHarness(t, cmd.Settings{})
	boom := errors.New("boom")

	var got *cmd.ErrorInfo
	ev := message("!explode now")
	h.add(cmd.Definition{
		Names: []string{"explode"},
		Callback: func(context.Context, *cmd.Invocation) (cmd.Reply, error) {
			return nil, boom
		},
		ErrorHandler: func(_ context.Context, info *cmd.ErrorInfo) { got = info },
	})
	h.add(cmd.Definition{Names: []string{"ping"}, Callback: textReply("pong")})
	ev.Raw = "raw-message"

	out := h.d.Dispatch(context.Background(), ev)
	assert.Equal(t, Suppressed, out.State)
	assert.ErrorIs(t, out.Err, boom)

	require.NotNil(t, got)
	assert.Equal(t, "explode", got.Command)
	assert.Equal(t, "raw-message", got.Message)
	assert.ErrorIs(t, got.Err, boom)
	var dErr *cmd.DispatchError
	require.ErrorAs(t, got.Err, &dErr)
	assert.Equal(t, "callback", dErr.Stage)
	assert.Equal(t, []string{"now"}, got.Info["args"])

	next := h.d.Dispatch(context.Background(), message("!ping"))
	h.d.Wait()
	assert.Equal(t, Replied, next.State)
}

func TestDispatch_PanicRecovered(t *testing.T) {
	h := newHarness(t, cmd.Settings{})
	var got error
	h.add(cmd.Definition{
		Names: []string{"panic"},
		Callback: func(context.Context, *cmd.Invocation) (cmd.Reply, error) {
			panic("oh no")
		},
		ErrorHandler: func(_ context.Context, info *cmd.ErrorInfo) { got = info.Err },
	})

	out := h.d.Dispatch(context.Background(), message("!panic"))
	assert.Equal(t, Suppressed, out.State)
	require.Error(t, got)
	assert.Contains(t, got.Error(), "oh no")
	assert.Empty(t, h.replier.replies())
}

func TestDispatch_DeliveryFailureRoutedToHandler(t *testing.T) {
	h := newHarness(t, cmd.Settings{})
	h.replier.err = errors.New("missing access")

	errs := make(chan error, 1)
	h.add(cmd.Definition{
		Names:        []string{"ping"},
		Callback:     textReply("pong"),
		ErrorHandler: func(_ context.Context, info *cmd.ErrorInfo) { errs <- info.Err },
	})

	out := h.d.Dispatch(context.Background(), message("!ping"))
	h.d.Wait()
	assert.Equal(t, Replied, out.State)

	err := <-errs
	var dErr *cmd.DispatchError
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, "reply", dErr.Stage)
}

func TestDispatch_NoReplyIsSuppressed(t *testing.T) {
	h := newHarness(t, cmd.Settings{})
	h.add(cmd.Definition{Names: []string{"quiet"}, Callback: func(context.Context, *cmd.Invocation) (cmd.Reply, error) {
		return cmd.NoReply{}, nil
	}})

	out := h.d.Dispatch(context.Background(), message("!quiet"))
	h.d.Wait()
	assert.Equal(t, Suppressed, out.State)
	assert.Empty(t, h.replier.replies())
}

func TestDispatch_Authorization(t *testing.T) {
	settings := cmd.Settings{
		IgnoreBotOrigin: true,
		TestServerIDs:   []string{"test-guild"},
		BotOwnerIDs:     []string{"owner"},
	}
	min, max := 1, 2

	tests := []struct {
		name       string
		def        cmd.Definition
		ev         *cmd.Event
		wantState  State
		wantReason Reason
		wantNotice string
	}{
		{
			name:       "bot origin is silent",
			def:        cmd.Definition{Names: []string{"ping"}},
			ev:         &cmd.Event{Surface: cmd.SurfaceMessage, Content: "!ping", GuildID: "g1", Author: cmd.Author{ID: "b", Bot: true}},
			wantState:  Rejected,
			wantReason: OriginIsBot,
		},
		{
			name:       "no prefix",
			def:        cmd.Definition{Names: []string{"ping"}},
			ev:         message("ping"),
			wantState:  Rejected,
			wantReason: NotACommand,
		},
		{
			name:       "structured only by text",
			def:        cmd.Definition{Names: []string{"ping"}, Mode: cmd.StructuredOnly},
			ev:         message("!ping"),
			wantState:  Rejected,
			wantReason: SurfaceMismatch,
		},
		{
			name:       "guild only in DM",
			def:        cmd.Definition{Names: []string{"ping"}, GuildOnly: true},
			ev:         &cmd.Event{Surface: cmd.SurfaceMessage, Content: "!ping", Author: cmd.Author{ID: "u1"}},
			wantState:  Rejected,
			wantReason: NotInGuild,
			wantNotice: NoticeGuildOnly,
		},
		{
			name:       "test only elsewhere is silent",
			def:        cmd.Definition{Names: []string{"ping"}, TestOnly: true},
			ev:         message("!ping"),
			wantState:  Rejected,
			wantReason: NotATestServer,
		},
		{
			name:       "owner only",
			def:        cmd.Definition{Names: []string{"ping"}, OwnerOnly: true},
			ev:         message("!ping"),
			wantState:  Rejected,
			wantReason: NotABotOwner,
			wantNotice: NoticeBotOwnersOnly,
		},
		{
			name:       "too few arguments",
			def:        cmd.Definition{Names: []string{"ban"}, ExpectedArgs: "<user> [reason]", MinArgs: &min, MaxArgs: &max},
			ev:         message("!ban"),
			wantState:  Rejected,
			wantReason: ArgumentCount,
			wantNotice: NoticeSyntaxError,
		},
		{
			name:       "too many arguments",
			def:        cmd.Definition{Names: []string{"ban"}, ExpectedArgs: "<user> [reason]", MinArgs: &min, MaxArgs: &max},
			ev:         message("!ban a b c"),
			wantState:  Rejected,
			wantReason: ArgumentCount,
			wantNotice: NoticeSyntaxError,
		},
		{
			name:      "test server passes",
			def:       cmd.Definition{Names: []string{"ping"}, TestOnly: true},
			ev:        &cmd.Event{Surface: cmd.SurfaceMessage, Content: "!ping", GuildID: "test-guild", Author: cmd.Author{ID: "u1"}},
			wantState: Replied,
		},
		{
			name:      "owner passes",
			def:       cmd.Definition{Names: []string{"ping"}, OwnerOnly: true},
			ev:        &cmd.Event{Surface: cmd.SurfaceMessage, Content: "!ping", GuildID: "g1", Author: cmd.Author{ID: "owner"}},
			wantState: Replied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, settings)
			tt.def.Callback = textReply("ok")
			h.add(tt.def)

			out := h.d.Dispatch(context.Background(), tt.ev)
			h.d.Wait()

			assert.Equal(t, tt.wantState, out.State)
			assert.Equal(t, tt.wantReason, out.Reason)
			if tt.wantNotice == "" {
				if tt.wantState == Rejected {
					assert.Empty(t, h.notifier.notices)
					assert.Empty(t, h.replier.replies())
				}
				return
			}
			require.Len(t, h.notifier.notices, 1)
			assert.Equal(t, tt.wantNotice, h.notifier.notices[0].Key)
		})
	}
}

func TestDispatch_SyntaxErrorVars(t *testing.T) {
	h := newHarness(t, cmd.Settings{Prefix: "?"})
	min := 1
	h.add(cmd.Definition{Names: []string{"kick", "k"}, ExpectedArgs: "<user>", MinArgs: &min, Callback: textReply("ok")})

	h.d.Dispatch(context.Background(), message("?k"))
	h.d.Wait()

	require.Len(t, h.notifier.notices, 1)
	assert.Equal(t, map[string]string{"PREFIX": "?", "COMMAND": "k", "ARGUMENTS": "<user>"}, h.notifier.notices[0].Vars)
}

func TestDispatch_Interaction(t *testing.T) {
	h := newHarness(t, cmd.Settings{EphemeralReplies: true})

	var inv *cmd.Invocation
	h.add(cmd.Definition{
		Names: []string{"ban"},
		Mode:  cmd.Both,
		Options: []cmd.OptionSpec{
			{Name: "user", Type: cmd.TypeUser, Required: true},
			{Name: "reason", Type: cmd.TypeString},
		},
		Callback: func(_ context.Context, i *cmd.Invocation) (cmd.Reply, error) {
			inv = i
			return cmd.Text("banned"), nil
		},
	})

	out := h.d.Dispatch(context.Background(), &cmd.Event{
		Surface:     cmd.SurfaceInteraction,
		CommandName: "ban",
		Options:     []cmd.OptionValue{{Name: "reason", Value: "spam"}, {Name: "user", Value: "42"}},
		GuildID:     "g1",
		Author:      cmd.Author{ID: "u1"},
	})
	h.d.Wait()

	assert.Equal(t, Replied, out.State)
	require.NotNil(t, inv)
	assert.Equal(t, []string{"42", "spam"}, inv.Args)
	assert.Equal(t, "spam", inv.Options["reason"])
	assert.Equal(t, cmd.SurfaceInteraction, inv.Surface)
	assert.True(t, h.replier.replies()[0].Ephemeral)
}

func TestDispatch_InteractionForTextOnlyCommand(t *testing.T) {
	h := newHarness(t, cmd.Settings{})
	h.add(cmd.Definition{Names: []string{"ping"}, Callback: textReply("pong")})

	out := h.d.Dispatch(context.Background(), &cmd.Event{Surface: cmd.SurfaceInteraction, CommandName: "ping"})
	assert.Equal(t, SurfaceMismatch, out.Reason)
}

func TestDispatch_MiddlewareAndCooldown(t *testing.T) {
	var (
		order     []string
		cancelled []string
	)
	mw := func(tag string) cmd.Middleware {
		return func(name string, next cmd.Callback) cmd.Callback {
			return func(ctx context.Context, inv *cmd.Invocation) (cmd.Reply, error) {
				order = append(order, tag+":"+name)
				return next(ctx, inv)
			}
		}
	}
	h := newHarness(t, cmd.Settings{},
		WithMiddleware(mw("outer"), mw("inner")),
		WithCooldownCanceler(func(command, user string) { cancelled = append(cancelled, command+"/"+user) }),
	)
	h.add(cmd.Definition{Names: []string{"roll"}, Callback: func(_ context.Context, inv *cmd.Invocation) (cmd.Reply, error) {
		inv.CancelCooldown()
		return nil, nil
	}})

	h.d.Dispatch(context.Background(), message("!roll"))

	assert.Equal(t, []string{"outer:roll", "inner:roll"}, order)
	assert.Equal(t, []string{"roll/u1"}, cancelled)
}
