package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/keshon/dispatchkit/internal/definition"
	"github.com/keshon/dispatchkit/pkg/cmd"
)

// latencyReporter is implemented by *discordgo.Session.
type latencyReporter interface {
	HeartbeatLatency() time.Duration
}

func PingDefinition() definition.Record {
	return definition.Record{
		"name":        "ping",
		"category":    "Utility",
		"description": "Check bot latency",
		"slash":       "both",
		"maxArgs":     0,
		"callback":    cmd.Callback(Ping),
	}
}

func Ping(ctx context.Context, inv *cmd.Invocation) (cmd.Reply, error) {
	latency := "n/a"
	if lr, ok := inv.Env.Platform.(latencyReporter); ok {
		latency = fmt.Sprintf("%dms", lr.HeartbeatLatency().Milliseconds())
	}
	text := inv.Env.Notify(ctx, inv.GuildID, "PONG", map[string]string{"LATENCY": latency})
	if text == "" {
		text = "Pong! " + latency
	}
	return cmd.Text(text), nil
}
