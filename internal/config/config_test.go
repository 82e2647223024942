package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_UsesDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, ProfileDefault, cfg.Scanner.Profile)
	assert.True(t, cfg.Scanner.BareHostnameMatch)
	assert.True(t, cfg.Scanner.AutoRedirectDefault)
	assert.Equal(t, 500, cfg.Scanner.RedirectDelayMs)
	assert.Equal(t, 200, cfg.Scanner.PollIntervalMs)
	assert.False(t, cfg.Fallback.Enabled)
}

func TestLoadConfig_JSONFile(t *testing.T) {
	path := writeTempConfig(t, "config.json", `{
  "server": {"port": 9000, "host": "0.0.0.0"},
  "scanner": {"profile": "toggle", "bare_hostname_match": false, "auto_redirect_default": false, "redirect_delay_ms": 400, "poll_interval_ms": 150}
}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
	assert.False(t, cfg.Scanner.AutoRedirectDefault)
	assert.Equal(t, 150, cfg.Scanner.PollIntervalMs)
}

func TestLoadConfig_YAMLFileAndEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, "config.yaml", `
server:
  port: 9100
scanner:
  redirect_delay_ms: 250
  poll_interval_ms: 200
fallback:
  enabled: true
  requests_per_second: 2
  burst: 4
logging:
  level: debug
`)
	t.Setenv("SERVER_PORT", "9200")
	t.Setenv("SCANNER_AUTO_REDIRECT", "false")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, 250, cfg.Scanner.RedirectDelayMs)
	assert.False(t, cfg.Scanner.AutoRedirectDefault)
	assert.True(t, cfg.Fallback.Enabled)
	assert.Equal(t, 4, cfg.Fallback.Burst)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_ProfileFromEnvironment(t *testing.T) {
	t.Setenv("SCANNER_PROFILE", "toggle")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ScannerProfile(ProfileToggle), cfg.Scanner)
}

func TestLoadConfig_ProfileFromFile(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.json"} {
		t.Run(name, func(t *testing.T) {
			content := "scanner:\n  profile: toggle\n"
			if filepath.Ext(name) == ".json" {
				content = `{"scanner": {"profile": "toggle"}}`
			}

			cfg, err := LoadConfig(writeTempConfig(t, name, content))
			require.NoError(t, err)

			assert.Equal(t, ScannerProfile(ProfileToggle), cfg.Scanner)
		})
	}
}

func TestLoadConfig_FileRefinesProfile(t *testing.T) {
	path := writeTempConfig(t, "config.yaml", `
scanner:
  profile: toggle
  redirect_delay_ms: 300
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ProfileToggle, cfg.Scanner.Profile)
	assert.Equal(t, 300, cfg.Scanner.RedirectDelayMs)
	assert.False(t, cfg.Scanner.BareHostnameMatch)
	assert.False(t, cfg.Scanner.AutoRedirectDefault)
	assert.Equal(t, 200, cfg.Scanner.PollIntervalMs)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := writeTempConfig(t, "config.json", `{"server": `)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"poll interval zero", func(c *Config) { c.Scanner.PollIntervalMs = 0 }},
		{"negative redirect delay", func(c *Config) { c.Scanner.RedirectDelayMs = -1 }},
		{"fallback without rate", func(c *Config) {
			c.Fallback.Enabled = true
			c.Fallback.RequestsPerSecond = 0
		}},
		{"fallback without burst", func(c *Config) {
			c.Fallback.Enabled = true
			c.Fallback.Burst = 0
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := getDefaultConfig()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestSave_RoundTripsThroughLoad(t *testing.T) {
	cfg := getDefaultConfig()
	cfg.Scanner = ScannerProfile(ProfileToggle)
	path := filepath.Join(t.TempDir(), "saved.yml")

	require.NoError(t, cfg.Save(path))
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Scanner, loaded.Scanner)
}

func TestScannerProfile_UnknownFallsBackToDefault(t *testing.T) {
	assert.Equal(t, ScannerProfile(ProfileDefault), ScannerProfile("something-else"))
}
