package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths_DefaultHome(t *testing.T) {
	t.Setenv("TWITCHBOT_HOME", "")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, PathsAt(filepath.Join(home, ".twitchbot")), paths)
}

func TestPathsAt(t *testing.T) {
	p := PathsAt("/tmp/testbot")

	assert.Equal(t, "/tmp/testbot", p.Base)
	assert.Equal(t, "/tmp/testbot/config.yaml", p.Config)
	assert.Equal(t, "/tmp/testbot/.env", p.Env)
	assert.Equal(t, "/tmp/testbot/logs", p.Logs)
	assert.Equal(t, "/tmp/testbot/data", p.Data)
	assert.Equal(t, "/tmp/testbot/data/twitchbot.db", p.Database)
}

func TestEnsureDirs_Idempotent(t *testing.T) {
	p := PathsAt(filepath.Join(t.TempDir(), "home"))

	require.NoError(t, p.EnsureDirs())
	require.NoError(t, p.EnsureDirs())

	info, err := os.Stat(p.Data)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestApplyStoreDefaults(t *testing.T) {
	p := PathsAt("/tmp/testbot")

	cfg := Defaults()
	p.ApplyStoreDefaults(&cfg)
	assert.Equal(t, "/tmp/testbot/data/twitchbot.db", cfg.Store.DSN)

	cfg.Store.DSN = "custom.db"
	p.ApplyStoreDefaults(&cfg)
	assert.Equal(t, "custom.db", cfg.Store.DSN)

	cfg = Defaults()
	cfg.Store.Driver = "postgres"
	p.ApplyStoreDefaults(&cfg)
	assert.Empty(t, cfg.Store.DSN)
}
