package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

var rootCmd = &cli.Command{
	Name:      "dispatchctl",
	Usage:     "dispatchctl check ./commands",
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Commands: []*cli.Command{
		checkCmd,
		docsCmd,
		historyCmd,
	},
}

func main() {
	if err := rootCmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
