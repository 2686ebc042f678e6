package config

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/dispatchkit/pkg/cmd"
)

// unsetEnv removes keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestParse_Defaults(t *testing.T) {
	unsetEnv(t, "DISCORD_TOKEN", "COMMANDS_DIR", "COMMAND_PREFIX", "STORAGE_PATH", "IGNORE_BOTS",
		"EPHEMERAL", "TEST_SERVERS", "DEBUG", "DEFAULT_LANGUAGE", "REGISTRATION_CACHE")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "!", cfg.Prefix)
	assert.Equal(t, "datastore.json", cfg.StoragePath)
	assert.True(t, cfg.IgnoreBots)
	assert.True(t, cfg.Ephemeral)
	assert.True(t, cfg.RegistrationCache)
	assert.Equal(t, "en", cfg.DefaultLanguage)
	assert.Nil(t, cfg.TestServers)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
	assert.Error(t, cfg.RequireToken())
}

func TestParse_Values(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "secret")
	t.Setenv("COMMANDS_DIR", "/srv/bot/commands")
	t.Setenv("COMMAND_PREFIX", "?")
	t.Setenv("TEST_SERVERS", "111,222,")
	t.Setenv("BOT_OWNERS", "9")
	t.Setenv("IGNORE_BOTS", "false")
	t.Setenv("DEBUG", "true")

	cfg, err := Parse()
	require.NoError(t, err)
	require.NoError(t, cfg.RequireToken())

	s := cfg.Settings()
	assert.Equal(t, "?", s.Prefix)
	assert.Equal(t, []string{"111", "222"}, s.TestServerIDs)
	assert.True(t, s.IsTestServer("222"))
	assert.True(t, s.IsBotOwner("9"))
	assert.False(t, s.IgnoreBotOrigin)
	assert.True(t, s.Debug)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestParse_RelativeCommandsDir(t *testing.T) {
	t.Setenv("COMMANDS_DIR", "commands")

	_, err := Parse()
	require.Error(t, err)
	assert.ErrorIs(t, err, cmd.ErrRelativeDirectory)

	var cfgErr *cmd.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
