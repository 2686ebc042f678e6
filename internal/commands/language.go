package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/keshon/dispatchkit/internal/definition"
	"github.com/keshon/dispatchkit/pkg/cmd"
)

// LanguageStore persists the notice language per guild.
type LanguageStore interface {
	GuildLanguage(guildID string) (string, error)
	SetGuildLanguage(guildID, lang string) error
}

// Languages reports which languages can be selected.
type Languages interface {
	Has(lang string) bool
	Languages() []string
}

// LanguageDefinition lets bot owners change a guild's notice language.
func LanguageDefinition(store LanguageStore, langs Languages) definition.Record {
	return definition.Record{
		"name":              "language",
		"aliases":           "lang",
		"category":          "Settings",
		"description":       "Show or set the language of bot notices in this server",
		"slash":             "both",
		"guildOnly":         true,
		"ownerOnly":         true,
		"maxArgs":           1,
		"expectedArgs":      "[language]",
		"expectedArgsTypes": []any{"STRING"},
		"callback":          cmd.Callback(languageCallback(store, langs)),
	}
}

func languageCallback(store LanguageStore, langs Languages) cmd.Callback {
	return func(ctx context.Context, inv *cmd.Invocation) (cmd.Reply, error) {
		if len(inv.Args) == 0 {
			current, err := store.GuildLanguage(inv.GuildID)
			if err != nil {
				return nil, err
			}
			if current == "" {
				current = "default"
			}
			return cmd.Text(fmt.Sprintf("Current language: `%s`. Available: `%s`",
				current, strings.Join(langs.Languages(), "`, `"))), nil
		}

		lang := strings.ToLower(inv.Args[0])
		if !langs.Has(lang) {
			return cmd.Text(fmt.Sprintf("Unknown language `%s`. Available: `%s`",
				lang, strings.Join(langs.Languages(), "`, `"))), nil
		}
		if err := store.SetGuildLanguage(inv.GuildID, lang); err != nil {
			return nil, err
		}
		return cmd.Text(fmt.Sprintf("Language set to `%s`.", lang)), nil
	}
}
