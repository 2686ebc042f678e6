package commands

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/keshon/dispatchkit/internal/definition"
	"github.com/keshon/dispatchkit/pkg/cmd"
)

// Builtins returns the records registered on every bot.
func Builtins(store LanguageStore, langs Languages) []definition.Record {
	return []definition.Record{
		HelpDefinition(),
		PingDefinition(),
		LanguageDefinition(store, langs),
	}
}

// Handlers are the callbacks definition files may refer to by key.
func Handlers() cmd.Handlers {
	return cmd.Handlers{
		"echo": {Callback: Echo},
		"roll": {Callback: Roll},
	}
}

// Echo repeats its arguments.
func Echo(_ context.Context, inv *cmd.Invocation) (cmd.Reply, error) {
	if inv.Text == "" {
		return cmd.NoReply{}, nil
	}
	return cmd.Text(inv.Text), nil
}

// Roll rolls a die with the given number of sides, 6 by default.
func Roll(_ context.Context, inv *cmd.Invocation) (cmd.Reply, error) {
	sides := 6
	if len(inv.Args) > 0 {
		n, err := strconv.Atoi(strings.TrimSpace(inv.Args[0]))
		if err != nil || n < 2 {
			return cmd.Text("Give me a number of sides of at least 2."), nil
		}
		sides = n
	}
	return cmd.Text(strconv.Itoa(rand.IntN(sides) + 1)), nil
}
