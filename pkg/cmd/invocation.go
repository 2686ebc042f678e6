package cmd

import (
	"context"
	"strings"
)

// Surface is the way an event reached the bot.
type Surface int

const (
	SurfaceMessage Surface = iota
	SurfaceInteraction
)

func (s Surface) String() string {
	if s == SurfaceInteraction {
		return "interaction"
	}
	return "message"
}

// Author identifies the acting user.
type Author struct {
	ID       string
	Username string
	Bot      bool
}

// OptionValue is one named value supplied with a structured interaction.
type OptionValue struct {
	Name  string
	Value any
}

// Event is a platform event translated by an adapter. Raw keeps the original
// value (e.g. *discordgo.MessageCreate) for the reply surface and for callbacks.
type Event struct {
	Surface     Surface
	Content     string        // message text, SurfaceMessage only
	CommandName string        // declared name, SurfaceInteraction only
	Options     []OptionValue // SurfaceInteraction only, declared order
	Author      Author
	GuildID     string
	ChannelID   string
	Raw         any
}

// Settings is the read-only configuration snapshot handed to callbacks.
type Settings struct {
	Prefix           string
	SuppressWarnings bool
	IgnoreBotOrigin  bool
	TestServerIDs    []string
	BotOwnerIDs      []string
	EphemeralReplies bool
	Debug            bool
}

// IsTestServer reports whether guildID is a configured test server.
func (s Settings) IsTestServer(guildID string) bool {
	for _, id := range s.TestServerIDs {
		if id == guildID {
			return true
		}
	}
	return false
}

// IsBotOwner reports whether userID is a configured bot owner.
func (s Settings) IsBotOwner(userID string) bool {
	for _, id := range s.BotOwnerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// NoticeFunc renders a localized notice for a guild.
type NoticeFunc func(ctx context.Context, guildID, key string, vars map[string]string) string

// Env carries the collaborators a callback may use. It replaces a global
// framework instance.
type Env struct {
	Registry *Registry
	Settings Settings
	Platform any // adapter handle, e.g. *discordgo.Session
	Notice   NoticeFunc
}

// Notify renders a notice, or returns "" when no notice source is set.
func (e *Env) Notify(ctx context.Context, guildID, key string, vars map[string]string) string {
	if e == nil || e.Notice == nil {
		return ""
	}
	return e.Notice(ctx, guildID, key, vars)
}

// Invocation is the uniform context built for one dispatch.
type Invocation struct {
	Surface Surface
	Command *Command
	Alias   string
	Args    []string
	Text    string
	Options map[string]any
	Author  Author
	GuildID string
	Channel string
	Event   any
	Env     *Env

	cancelCooldown func()
}

// NewInvocation builds an invocation. cancel may be nil.
func NewInvocation(ev *Event, c *Command, alias string, args []string, env *Env, cancel func()) *Invocation {
	opts := make(map[string]any, len(ev.Options))
	for _, o := range ev.Options {
		opts[o.Name] = o.Value
	}
	return &Invocation{
		Surface:        ev.Surface,
		Command:        c,
		Alias:          alias,
		Args:           args,
		Text:           strings.Join(args, " "),
		Options:        opts,
		Author:         ev.Author,
		GuildID:        ev.GuildID,
		Channel:        ev.ChannelID,
		Event:          ev.Raw,
		Env:            env,
		cancelCooldown: cancel,
	}
}

// InGuild reports whether the invocation happened inside a guild.
func (i *Invocation) InGuild() bool { return i.GuildID != "" }

// CancelCooldown asks the cooldown collaborator, if any, to drop the cooldown
// for this command and user. It has no effect on dispatch.
func (i *Invocation) CancelCooldown() {
	if i.cancelCooldown != nil {
		i.cancelCooldown()
	}
}
