// Package middleware holds callback middleware shared by every command.
package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/keshon/dispatchkit/internal/storage"
	"github.com/keshon/dispatchkit/pkg/cmd"
)

// HistoryStore records invoked commands per guild.
type HistoryStore interface {
	AppendCommandToHistory(guildID string, rec storage.CommandHistoryRecord) error
}

// WithCommandLogger records every guild invocation in store after the
// callback returns, whatever its result.
func WithCommandLogger(store HistoryStore, logger *slog.Logger) cmd.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(name string, next cmd.Callback) cmd.Callback {
		return func(ctx context.Context, inv *cmd.Invocation) (cmd.Reply, error) {
			reply, err := next(ctx, inv)

			logger.Debug("command invoked",
				"command", name,
				"alias", inv.Alias,
				"surface", inv.Surface.String(),
				"user", inv.Author.ID,
				"guild", inv.GuildID,
				"failed", err != nil,
			)
			if inv.InGuild() && store != nil {
				rec := storage.CommandHistoryRecord{
					ChannelID: inv.Channel,
					UserID:    inv.Author.ID,
					Username:  inv.Author.Username,
					Command:   name,
					Surface:   inv.Surface.String(),
					Param:     strings.Join(inv.Args, " "),
					Datetime:  time.Now().UTC(),
				}
				if e := store.AppendCommandToHistory(inv.GuildID, rec); e != nil {
					logger.Warn("failed to log command", "command", name, "error", e)
				}
			}
			return reply, err
		}
	}
}
