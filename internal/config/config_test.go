package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		ThruText: ThruTextConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Fields: FieldsConfig{
			ConfigDir:    "/etc/thrutext",
			SynonymsFile: "custom_field_synonyms.yaml",
			CodesFile:    "custom_field_codes.json",
		},
		Cache: CacheConfig{Backend: "file"},
	}
}

func loadWith(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	return load(fs, args)
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown environment", func(c *Config) { c.App.Environment = "test" }},
		{"uppercase environment", func(c *Config) { c.App.Environment = "DEVELOPMENT" }},
		{"bad log level", func(c *Config) { c.Logger.Level = "verbose" }},
		{"missing synonyms file", func(c *Config) { c.Fields.SynonymsFile = "" }},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "redis" }},
		{"zero rate", func(c *Config) { c.ThruText.RequestsPerSecond = 0 }},
		{"zero burst", func(c *Config) { c.ThruText.Burst = 0 }},
		{"negative server rate", func(c *Config) { c.Server.RequestsPerSecond = -1 }},
		{"server rate without burst", func(c *Config) { c.Server.RequestsPerSecond = 5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := loadWith(t, "-env-file", filepath.Join(dir, "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, filepath.Join(dir, "config"), cfg.Fields.ConfigDir)
	assert.Equal(t, filepath.Join(dir, "config", "custom_field_synonyms.yaml"), cfg.SynonymsPath())
	assert.Equal(t, "custom_field_codes.json", cfg.Fields.CodesFile)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, cfg.Fields.ConfigDir, cfg.Cache.Path)
	assert.Equal(t, filepath.Join(dir, "config", "imports.db"), cfg.Imports.DatabasePath)
	assert.Equal(t, 30*time.Second, cfg.ThruText.Timeout)
	assert.Equal(t, "US/Eastern", cfg.ThruText.DefaultTimezone)
	assert.False(t, cfg.ThruText.Staging)
	assert.True(t, cfg.Fields.Watch)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.InDelta(t, 20, cfg.Server.RequestsPerSecond, 0)
	assert.Equal(t, 40, cfg.Server.Burst)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"THRU_TEXT_ACCOUNT_NAME=from-file\nTHRU_TEXT_API_UN=file-user\nLOG_LEVEL=debug\n",
	), 0o600))

	t.Setenv("THRU_TEXT_ACCOUNT_NAME", "from-env")
	t.Setenv("THRU_TEXT_STAGING", "yes")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := loadWith(t, "-env-file", envFile, "-log-level", "warn", "-config-dir", dir)
	require.NoError(t, err)

	// Flag beats env beats file.
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, "from-env", cfg.ThruText.AccountName)
	assert.Equal(t, "file-user", cfg.ThruText.Username)
	assert.True(t, cfg.ThruText.Staging)
	assert.Equal(t, dir, cfg.Fields.ConfigDir)
	assert.Equal(t, "file-user", os.Getenv("THRU_TEXT_API_UN"))
	t.Cleanup(func() { _ = os.Unsetenv("THRU_TEXT_API_UN") })
}

func TestLoad_BadgerCacheDefaultsUnderConfigDir(t *testing.T) {
	dir := t.TempDir()

	cfg, err := loadWith(t, "-env-file", filepath.Join(dir, "none"), "-config-dir", dir, "-cache-backend", "badger")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "cache.badger"), cfg.Cache.Path)
}

func TestLoad_InvalidDuration(t *testing.T) {
	dir := t.TempDir()

	_, err := loadWith(t, "-env-file", filepath.Join(dir, "none"), "-http-timeout", "soon")
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/thrutext/config", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "thrutext", "config"), got)

	got, err = expandPath("", "/var/lib/thrutext")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/thrutext", got)

	got, err = expandPath("", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("TEST_CONFIG_KEY", "env")

	assert.Equal(t, "flag", getConfigValue("flag", "TEST_CONFIG_KEY", "default"))
	assert.Equal(t, "env", getConfigValue("", "TEST_CONFIG_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "TEST_CONFIG_KEY_UNSET", "default"))
}

func TestTypedConfigValues(t *testing.T) {
	t.Setenv("TEST_INT", "12")
	t.Setenv("TEST_BAD_INT", "twelve")
	t.Setenv("TEST_FLOAT", "2.5")
	t.Setenv("TEST_BOOL", "TRUE")

	assert.Equal(t, 12, getIntConfigValue("", "TEST_INT", 1))
	assert.Equal(t, 1, getIntConfigValue("", "TEST_BAD_INT", 1))
	assert.InDelta(t, 2.5, getFloatConfigValue("", "TEST_FLOAT", 1), 0.0001)
	assert.True(t, getBoolConfigValue("", "TEST_BOOL", false))
	assert.False(t, getBoolConfigValue("no", "TEST_BOOL", true))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, splitList(" https://a.example, ,https://b.example "))
	assert.Empty(t, splitList(""))
}
