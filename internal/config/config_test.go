package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LEVEL_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 5*time.Minute, cfg.Levels.AutosaveInterval())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "levelforge.yaml")
	data := `
levels:
  main: lobby
  size: {x: 64, z: 32, y: 16}
  generator: hell
  seed: 42
backup:
  enabled: true
  keep: 3
server:
  admin_port: 9000
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	t.Setenv("LEVEL_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "lobby", cfg.Levels.GetMain())
	assert.Equal(t, SizeConfig{X: 64, Z: 32, Y: 16}, cfg.Levels.Size)
	assert.Equal(t, "hell", cfg.Levels.Generator)
	assert.Equal(t, int64(42), cfg.Levels.Seed)
	assert.True(t, cfg.Backup.Enabled)
	assert.Equal(t, 3, cfg.Backup.Keep)
	assert.Equal(t, "data/backups", cfg.Backup.Path)
	assert.Equal(t, 9000, cfg.Server.GetAdminPort())
	assert.Equal(t, "levels", cfg.Levels.GetDir())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("levels:\n  size: {x: 0, z: 1, y: 1}\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestEnvFallback(t *testing.T) {
	t.Setenv("LEVEL_ADMIN_PORT", "9999")
	t.Setenv("LEVEL_DIR", "/srv/levels")

	var s ServerConfig
	assert.Equal(t, 9999, s.GetAdminPort())
	var l LevelsConfig
	assert.Equal(t, "/srv/levels", l.GetDir())
	assert.Equal(t, "main", l.GetMain())

	t.Setenv("LEVEL_ADMIN_PORT", "nope")
	assert.Equal(t, 8088, s.GetAdminPort())
}
