package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/keshon/dispatchkit/internal/commands"
	"github.com/keshon/dispatchkit/internal/definition"
	"github.com/keshon/dispatchkit/pkg/cmd"
)

const (
	dirArg          = "dir"
	hclFlag         = "hcl"
	testServersFlag = "test-servers"
)

// ErrInvalidDefinitions is returned when at least one definition fails.
var ErrInvalidDefinitions = errors.New("invalid command definitions")

var checkCmd = &cli.Command{
	Name:        "check",
	Usage:       "check ./commands",
	Description: "Validate command definition files and show the slash options derived from them.",
	Arguments: []cli.Argument{
		&cli.StringArg{Name: dirArg},
	},
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  hclFlag,
			Usage: "read .hcl definitions instead of YAML",
		},
		&cli.StringSliceFlag{
			Name:  testServersFlag,
			Usage: "test server IDs used when checking testOnly commands",
		},
	},
	Action: func(_ context.Context, c *cli.Command) error {
		dir := c.StringArg(dirArg)
		if dir == "" {
			return cli.Exit("a definitions directory is required", 2)
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		failed, err := check(c.Root().Writer, afero.NewOsFs(), abs, c.Bool(hclFlag), c.StringSlice(testServersFlag))
		if err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%w: %d failed", ErrInvalidDefinitions, failed)
		}
		return nil
	},
}

// check validates every definition under dir and prints a report to w. It
// returns how many definitions failed.
func check(w io.Writer, fs afero.Fs, dir string, useHCL bool, testServers []string) (int, error) {
	raws, errs, err := definition.NewLoader(fs, useHCL).Load(dir)
	if err != nil {
		return 0, err
	}

	v := &definition.Validator{
		Handlers:         commands.Handlers(),
		TestServers:      testServers,
		SuppressWarnings: true,
	}

	failed := len(errs)
	for _, err := range errs {
		fmt.Fprintf(w, "ERROR %v\n", err)
	}
	for _, raw := range raws {
		res, err := v.Validate(raw)
		if err != nil {
			failed++
			fmt.Fprintf(w, "ERROR %v\n", err)
			continue
		}
		printDefinition(w, &res.Definition)
		for _, warn := range res.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warn.Message)
		}
	}
	fmt.Fprintf(w, "%d definitions, %d failed\n", len(raws)+len(errs), failed)
	return failed, nil
}

func printDefinition(w io.Writer, def *cmd.Definition) {
	fmt.Fprintf(w, "OK    %s [%s] %s\n", strings.Join(def.Names, ", "), def.Mode, def.Source)
	for _, o := range def.Options {
		req := "optional"
		if o.Required {
			req = "required"
		}
		fmt.Fprintf(w, "  option %s (%s, %s)\n", o.Name, o.Type, req)
	}
}
