package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 9944, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Macros.MaxDepth)
	assert.Equal(t, 64, cfg.Macros.MaxSubstitutions)
	assert.Equal(t, Duration(30*time.Second), cfg.Sessions.GuardTimeout)
	assert.Equal(t, Duration(10*time.Second), cfg.Sessions.WaitTimeout)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
macros:
  max_depth: 4
sessions:
  guard_timeout: 5s
plugins:
  deny:
    - "Invoke*"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Macros.MaxDepth)
	assert.Equal(t, Duration(5*time.Second), cfg.Sessions.GuardTimeout)
	assert.Equal(t, []string{"Invoke*"}, cfg.Plugins.Deny)
	// untouched sections keep their defaults
	assert.Equal(t, 64, cfg.Macros.MaxSubstitutions)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o644))
	t.Setenv("G4_SERVER_PORT", "9000")
	t.Setenv("G4_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 0 }},
		{"zero depth", func(c *Config) { c.Macros.MaxDepth = 0 }},
		{"zero substitutions", func(c *Config) { c.Macros.MaxSubstitutions = 0 }},
		{"zero guard timeout", func(c *Config) { c.Sessions.GuardTimeout = 0 }},
		{"zero wait timeout", func(c *Config) { c.Sessions.WaitTimeout = 0 }},
		{"history without path", func(c *Config) { c.History.Enabled = true; c.History.Path = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
