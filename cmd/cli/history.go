package main

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/keshon/dispatchkit/internal/storage"
)

const (
	guildArg    = "guild"
	storageFlag = "storage"
)

var historyCmd = &cli.Command{
	Name:        "history",
	Usage:       "history --storage datastore.json <guild>",
	Description: "Print the recent command history recorded for a guild.",
	Arguments: []cli.Argument{
		&cli.StringArg{Name: guildArg},
	},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    storageFlag,
			Value:   "datastore.json",
			Sources: cli.EnvVars("STORAGE_PATH"),
		},
	},
	Action: func(_ context.Context, c *cli.Command) error {
		guild := c.StringArg(guildArg)
		if guild == "" {
			return cli.Exit("a guild ID is required", 2)
		}
		store, err := storage.New(c.String(storageFlag))
		if err != nil {
			return err
		}
		defer store.Close()
		return printHistory(c.Root().Writer, store, guild)
	},
}

type historySource interface {
	FetchCommandHistory(guildID string) ([]storage.CommandHistoryRecord, error)
}

func printHistory(w io.Writer, src historySource, guildID string) error {
	records, err := src.FetchCommandHistory(guildID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(w, "no commands recorded for guild %s\n", guildID)
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(w, "%s  %-8s %-12s %s %s\n", r.Datetime.Format("2006-01-02 15:04:05"), r.Surface, r.Username, r.Command, r.Param)
	}
	return nil
}
