// Package notice renders localized user-facing notices from a YAML catalogue.
package notice

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

//go:embed messages.yaml
var defaultMessages []byte

// LanguageStore returns the language chosen for a guild, "" when unset.
type LanguageStore interface {
	GuildLanguage(guildID string) (string, error)
}

// Catalogue maps language → key → template. Templates use {NAME} placeholders.
type Catalogue struct {
	messages map[string]map[string]string
	fallback string
	langs    LanguageStore
	logger   *slog.Logger
}

type Option func(*Catalogue)

// WithLanguageStore enables per-guild languages.
func WithLanguageStore(s LanguageStore) Option {
	return func(c *Catalogue) { c.langs = s }
}

// WithFallback sets the language used when a guild has none or a key is missing.
func WithFallback(lang string) Option {
	return func(c *Catalogue) { c.fallback = strings.ToLower(lang) }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Catalogue) { c.logger = l }
}

// WithMessages overlays templates from YAML data onto the built-in ones.
func WithMessages(data []byte) Option {
	return func(c *Catalogue) {
		extra, err := parse(data)
		if err != nil {
			c.logger.Warn("ignoring notice overrides", "error", err)
			return
		}
		for lang, keys := range extra {
			if c.messages[lang] == nil {
				c.messages[lang] = map[string]string{}
			}
			for k, v := range keys {
				c.messages[lang][k] = v
			}
		}
	}
}

// New returns the built-in catalogue with opts applied.
func New(opts ...Option) (*Catalogue, error) {
	messages, err := parse(defaultMessages)
	if err != nil {
		return nil, err
	}
	c := &Catalogue{messages: messages, fallback: "en", logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	if _, ok := c.messages[c.fallback]; !ok {
		return nil, fmt.Errorf("fallback language %q is not in the catalogue", c.fallback)
	}
	return c, nil
}

func parse(data []byte) (map[string]map[string]string, error) {
	var raw map[string]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse notice catalogue: %w", err)
	}
	out := make(map[string]map[string]string, len(raw))
	for lang, keys := range raw {
		out[strings.ToLower(lang)] = keys
	}
	return out, nil
}

// Notice renders key in the guild's language.
func (c *Catalogue) Notice(_ context.Context, guildID, key string, vars map[string]string) string {
	return c.Get(c.language(guildID), key, vars)
}

// Get renders key in lang, falling back to the default language. An unknown
// key renders as "".
func (c *Catalogue) Get(lang, key string, vars map[string]string) string {
	tpl, ok := c.messages[strings.ToLower(lang)][key]
	if !ok {
		tpl, ok = c.messages[c.fallback][key]
	}
	if !ok {
		c.logger.Warn("missing notice", "key", key, "language", lang)
		return ""
	}
	return Render(tpl, vars)
}

// Languages lists the languages in the catalogue.
func (c *Catalogue) Languages() []string {
	out := make([]string, 0, len(c.messages))
	for l := range c.messages {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Has reports whether lang is in the catalogue.
func (c *Catalogue) Has(lang string) bool {
	_, ok := c.messages[strings.ToLower(lang)]
	return ok
}

func (c *Catalogue) language(guildID string) string {
	if c.langs == nil || guildID == "" {
		return c.fallback
	}
	lang, err := c.langs.GuildLanguage(guildID)
	if err != nil {
		c.logger.Warn("failed to read guild language", "guild", guildID, "error", err)
		return c.fallback
	}
	if lang == "" {
		return c.fallback
	}
	return lang
}

// Render replaces every {NAME} in tpl with vars[NAME].
func Render(tpl string, vars map[string]string) string {
	if len(vars) == 0 {
		return tpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}
