// Package commands holds the built-in command handlers.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/keshon/dispatchkit/internal/config"
	"github.com/keshon/dispatchkit/internal/definition"
	"github.com/keshon/dispatchkit/pkg/cmd"
)

const EmbedColor = 0xb01e66

// HelpDefinition is the built-in help command.
func HelpDefinition() definition.Record {
	return definition.Record{
		"name":         "help",
		"aliases":      "commands",
		"category":     "Help",
		"description":  "Displays this bot's commands",
		"slash":        "both",
		"maxArgs":      1,
		"expectedArgs": "[command]",
		"callback":     cmd.Callback(Help),
	}
}

// Help lists visible commands by category, or describes the one named in the
// first argument.
func Help(ctx context.Context, inv *cmd.Invocation) (cmd.Reply, error) {
	env := inv.Env
	vars := map[string]string{"PREFIX": env.Settings.Prefix}
	lang := func(key string) string { return env.Notify(ctx, inv.GuildID, key, vars) }

	if len(inv.Args) > 0 {
		name := strings.ToLower(inv.Args[0])
		c, ok := env.Registry.Lookup(name)
		if !ok || !visible(c, inv) {
			return cmd.Text(env.Notify(ctx, inv.GuildID, "UNKNOWN_COMMAND", map[string]string{
				"COMMAND": name, "PREFIX": env.Settings.Prefix,
			})), nil
		}
		return cmd.Blocks{describe(c, inv, lang)}, nil
	}

	byCategory := make(map[string][]*cmd.Command)
	for _, c := range env.Registry.Commands() {
		if !visible(c, inv) {
			continue
		}
		byCategory[c.Category()] = append(byCategory[c.Category()], c)
	}

	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Slice(categories, func(i, j int) bool {
		wi, wj := config.CategoryWeight(categories[i]), config.CategoryWeight(categories[j])
		if wi != wj {
			return wi < wj
		}
		return categories[i] < categories[j]
	})

	var sb strings.Builder
	for _, cat := range categories {
		title := cat
		if title == "" {
			title = "-"
		}
		sb.WriteString(fmt.Sprintf("**%s**\n", title))
		for _, c := range byCategory[cat] {
			desc := c.Description()
			if desc == "" {
				desc = lang("HELP_NO_DESCRIPTION")
			}
			sb.WriteString(fmt.Sprintf("`%s` - %s\n", c.Name(), desc))
		}
		sb.WriteString("\n")
	}

	return cmd.Blocks{{
		Title:       lang("HELP_MENU_TITLE"),
		Description: strings.TrimSpace(sb.String()),
		Color:       EmbedColor,
		Footer:      lang("HELP_MENU_FOOTER"),
	}}, nil
}

func describe(c *cmd.Command, inv *cmd.Invocation, lang func(string) string) cmd.Block {
	b := cmd.Block{
		Title:       c.Name(),
		Description: c.Description(),
		Color:       EmbedColor,
	}
	if aliases := c.Aliases()[1:]; len(aliases) > 0 {
		b.Fields = append(b.Fields, cmd.Field{Name: lang("HELP_ALIASES"), Value: "`" + strings.Join(aliases, "`, `") + "`", Inline: true})
	}
	if c.Mode().Text() {
		usage := strings.TrimSpace(inv.Env.Settings.Prefix + c.Name() + " " + c.ExpectedArgs())
		b.Fields = append(b.Fields, cmd.Field{Name: lang("HELP_SYNTAX"), Value: "`" + usage + "`", Inline: true})
	}
	if c.Mode().Structured() {
		b.Fields = append(b.Fields, cmd.Field{Name: lang("HELP_SLASH"), Value: "`/" + c.Name() + "`", Inline: true})
	}
	return b
}

// visible hides test-only commands outside test servers and owner-only
// commands from everyone but the owners.
func visible(c *cmd.Command, inv *cmd.Invocation) bool {
	s := inv.Env.Settings
	if c.TestOnly() && !s.IsTestServer(inv.GuildID) {
		return false
	}
	if c.OwnerOnly() && !s.IsBotOwner(inv.Author.ID) {
		return false
	}
	return true
}
