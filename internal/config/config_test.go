package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 30, cfg.Session.TTLMinutes)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Experiments.Enabled)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leadflow.toml")
	content := `
[server]
port = 9090

[database]
url = "postgres://test"

[notify.channels]
general = "https://hooks.test/general"
sales = "https://hooks.test/sales"

[notify.sla_hours]
immediate = 1.0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres://test", cfg.Database.URL)
	assert.Equal(t, "https://hooks.test/sales", cfg.Notify.Channels["sales"])
	assert.Equal(t, 1.0, cfg.Notify.SLAHours["immediate"])
	// untouched defaults survive the file load
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	require.NoError(t, Validate(cfg))
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("LEADFLOW_SERVER_PORT", "7070")
	t.Setenv("LEADFLOW_LOG_LEVEL", "debug")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidateRejectsBrokenConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing database url", func(c *Config) { c.Database.URL = "" }},
		{"no channels", func(c *Config) { c.Notify.Channels = nil }},
		{"missing general fallback", func(c *Config) {
			c.Notify.Channels = map[string]string{"sales": "https://hooks.test/s"}
		}},
		{"unknown sla tier", func(c *Config) {
			c.Notify.SLAHours = map[string]float64{"urgentissimo": 1}
		}},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadConfig("")
			require.NoError(t, err)
			cfg.Database.URL = "postgres://test"
			cfg.Notify.Channels = map[string]string{"general": "https://hooks.test/g"}

			tc.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}
