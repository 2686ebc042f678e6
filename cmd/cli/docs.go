package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/keshon/dispatchkit/internal/commands"
	"github.com/keshon/dispatchkit/internal/definition"
	"github.com/keshon/dispatchkit/internal/docs"
	"github.com/keshon/dispatchkit/pkg/cmd"
)

const (
	templateFlag = "template"
	outFlag      = "out"
	prefixFlag   = "prefix"
)

var docsCmd = &cli.Command{
	Name:        "docs",
	Usage:       "docs --out COMMANDS.md ./commands",
	Description: "Render a Markdown reference of the built-in commands and every valid definition in a directory.",
	Arguments: []cli.Argument{
		&cli.StringArg{Name: dirArg},
	},
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: hclFlag, Usage: "read .hcl definitions instead of YAML"},
		&cli.StringFlag{Name: templateFlag, Usage: "text/template file with a {{.CommandSections}} placeholder"},
		&cli.StringFlag{Name: outFlag, Usage: "output file, stdout when empty"},
		&cli.StringFlag{Name: prefixFlag, Value: "!", Sources: cli.EnvVars("COMMAND_PREFIX")},
	},
	Action: func(_ context.Context, c *cli.Command) error {
		fs := afero.NewOsFs()
		var dir string
		if d := c.StringArg(dirArg); d != "" {
			abs, err := filepath.Abs(d)
			if err != nil {
				return err
			}
			dir = abs
		}
		var tmpl string
		if p := c.String(templateFlag); p != "" {
			data, err := afero.ReadFile(fs, p)
			if err != nil {
				return err
			}
			tmpl = string(data)
		}

		var w io.Writer = c.Root().Writer
		if p := c.String(outFlag); p != "" {
			f, err := os.Create(p)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		return reference(w, fs, dir, c.Bool(hclFlag), tmpl, c.String(prefixFlag))
	},
}

// reference collects the built-ins plus the valid definitions under dir and
// writes them through docs.Write. Invalid definitions are skipped.
func reference(w io.Writer, fs afero.Fs, dir string, useHCL bool, tmpl, prefix string) error {
	reg := cmd.NewRegistry()
	v := &definition.Validator{Handlers: commands.Handlers(), SuppressWarnings: true}

	raws := make([]definition.Raw, 0)
	for _, rec := range commands.Builtins(nil, nil) {
		raws = append(raws, definition.Raw{Record: rec})
	}
	if dir != "" {
		loaded, _, err := definition.NewLoader(fs, useHCL).Load(dir)
		if err != nil {
			return err
		}
		raws = append(raws, loaded...)
	}

	for _, raw := range raws {
		res, err := v.Validate(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping: %v\n", err)
			continue
		}
		c := cmd.NewCommand(res.Definition)
		reg.Register(c.Aliases(), c)
	}
	return docs.Write(w, tmpl, reg.Commands(), prefix)
}
