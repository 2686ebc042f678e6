package config

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/keshon/dispatchkit/pkg/cmd"
)

type Config struct {
	DiscordToken      string   `env:"DISCORD_TOKEN"`
	StoragePath       string   `env:"STORAGE_PATH" envDefault:"datastore.json"`
	CommandsDir       string   `env:"COMMANDS_DIR"`
	Prefix            string   `env:"COMMAND_PREFIX" envDefault:"!"`
	SuppressWarnings  bool     `env:"SUPPRESS_WARNINGS"`
	IgnoreBots        bool     `env:"IGNORE_BOTS" envDefault:"true"`
	TestServers       []string `env:"TEST_SERVERS" envSeparator:","`
	BotOwners         []string `env:"BOT_OWNERS" envSeparator:","`
	Ephemeral         bool     `env:"EPHEMERAL" envDefault:"true"`
	Debug             bool     `env:"DEBUG"`
	UseHCL            bool     `env:"USE_HCL_DEFINITIONS"`
	DefaultLanguage   string   `env:"DEFAULT_LANGUAGE" envDefault:"en"`
	RegistrationCache bool     `env:"REGISTRATION_CACHE" envDefault:"true"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, falling back to system environment variables")
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.TestServers = compact(cfg.TestServers)
	cfg.BotOwners = compact(cfg.BotOwners)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that have no usable default.
func (c *Config) Validate() error {
	if c.CommandsDir != "" && !filepath.IsAbs(c.CommandsDir) {
		return &cmd.ConfigurationError{Source: c.CommandsDir, Err: cmd.ErrRelativeDirectory}
	}
	if c.Prefix == "" {
		return &cmd.ConfigurationError{Err: fmt.Errorf("%w: COMMAND_PREFIX must not be empty", cmd.ErrInvalidField)}
	}
	return nil
}

// RequireToken reports a missing bot token.
func (c *Config) RequireToken() error {
	if c.DiscordToken == "" {
		return &cmd.ConfigurationError{Err: fmt.Errorf("%w: DISCORD_TOKEN is not set", cmd.ErrInvalidField)}
	}
	return nil
}

// Settings returns the snapshot handed to the engine and to callbacks.
func (c *Config) Settings() cmd.Settings {
	return cmd.Settings{
		Prefix:           c.Prefix,
		SuppressWarnings: c.SuppressWarnings,
		IgnoreBotOrigin:  c.IgnoreBots,
		TestServerIDs:    append([]string(nil), c.TestServers...),
		BotOwnerIDs:      append([]string(nil), c.BotOwners...),
		EphemeralReplies: c.Ephemeral,
		Debug:            c.Debug,
	}
}

// LogLevel is debug when DEBUG is set.
func (c *Config) LogLevel() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func compact(ids []string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
