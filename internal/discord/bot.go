package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/dispatchkit/internal/commands"
	"github.com/keshon/dispatchkit/internal/config"
	"github.com/keshon/dispatchkit/internal/definition"
	"github.com/keshon/dispatchkit/internal/engine"
	"github.com/keshon/dispatchkit/internal/middleware"
	"github.com/keshon/dispatchkit/internal/notice"
	"github.com/keshon/dispatchkit/internal/registrar"
	"github.com/keshon/dispatchkit/internal/storage"
	"github.com/keshon/dispatchkit/pkg/cmd"
)

// Bot connects a Discord session to the command engine.
type Bot struct {
	dg      *discordgo.Session
	engine  *engine.Engine
	cfg     *config.Config
	storage *storage.Storage
	logger  *slog.Logger

	builtins  []definition.Record
	startOnce sync.Once
	ctx       context.Context
}

func NewBot(cfg *config.Config, store *storage.Storage, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{cfg: cfg, storage: store, logger: logger}
}

// Engine is nil until Run has created the session.
func (b *Bot) Engine() *engine.Engine { return b.engine }

// Run opens the session and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.cfg.RequireToken(); err != nil {
		return err
	}
	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	b.dg = dg
	b.ctx = ctx

	if b.engine, err = b.newEngine(); err != nil {
		return err
	}
	defer b.engine.Close()

	b.configureIntents()
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onMessageCreate)
	dg.AddHandler(b.onInteractionCreate)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer dg.Close()

	<-ctx.Done()
	b.logger.Info("shutdown signal received, waiting for pending replies")
	b.engine.Wait()
	return nil
}

func (b *Bot) newEngine() (*engine.Engine, error) {
	catalogue, err := notice.New(
		notice.WithLanguageStore(b.storage),
		notice.WithFallback(b.cfg.DefaultLanguage),
		notice.WithLogger(b.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load notices: %w", err)
	}

	var regOpts []registrar.Option
	if b.cfg.RegistrationCache {
		regOpts = append(regOpts, registrar.WithHashStore(b.storage))
	}

	e := engine.New(b.cfg.Settings(),
		engine.WithHCL(b.cfg.UseHCL),
		engine.WithHandlers(commands.Handlers()),
		engine.WithCreator(NewCreator(b.dg), regOpts...),
		engine.WithReplier(NewResponder(b.dg)),
		engine.WithNotifier(catalogue),
		engine.WithMiddleware(middleware.WithCommandLogger(b.storage, b.logger)),
		engine.WithPlatform(b.dg),
		engine.WithLogger(b.logger),
	)
	b.builtins = commands.Builtins(b.storage, catalogue)
	return e, nil
}

func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent
}

// onReady loads commands the first time the gateway reports ready.
// Reconnects fire it again and are ignored.
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.startOnce.Do(func() {
		b.logger.Info("discord session ready", "user", r.User.Username, "guilds", len(r.Guilds))
		go b.start()
	})
}

func (b *Bot) start() {
	for _, rec := range b.builtins {
		rep := b.engine.RegisterCommand(b.ctx, rec)
		if rep.Err != nil {
			b.logger.Error("failed to register built-in command", "error", rep.Err)
		}
	}

	var dirs []string
	if b.cfg.CommandsDir != "" {
		dirs = append(dirs, b.cfg.CommandsDir)
	}
	rep, err := b.engine.Start(b.ctx, dirs...)
	if err != nil {
		b.logger.Error("failed to start command engine", "error", err)
		return
	}
	for _, c := range rep.Collisions {
		b.logger.Warn("command name reassigned", "name", c.Alias, "previous", c.Previous, "current", c.Current)
	}
	if rep.Err != nil {
		b.logger.Error("some commands failed to load", "error", rep.Err)
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author != nil && s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}
	ev, ok := messageEvent(m)
	if !ok {
		return
	}
	b.dispatch(ev)
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ev, ok := interactionEvent(i)
	if !ok {
		return
	}
	b.dispatch(ev)
}

func (b *Bot) dispatch(ev *cmd.Event) {
	out, err := b.engine.Dispatch(b.ctx, ev)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			b.logger.Warn("event dropped", "error", err)
		}
		return
	}
	if out.Err != nil {
		b.logger.Debug("dispatch finished with error", "command", out.Command, "reason", out.Reason, "error", out.Err)
	}
}
