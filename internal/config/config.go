// Package config loads configuration from command-line flags, environment variables and a .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	ThruText ThruTextConfig
	Fields   FieldsConfig
	Cache    CacheConfig
	Imports  ImportsConfig
	Server   ServerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ThruTextConfig holds credentials and transport settings for the ThruText API.
type ThruTextConfig struct {
	AccountName     string
	Staging         bool
	Username        string
	Password        string
	DefaultTimezone string
	Timeout         time.Duration
	// RequestsPerSecond and Burst bound outbound calls per account.
	RequestsPerSecond float64
	Burst             int
}

// FieldsConfig locates the synonym configuration.
type FieldsConfig struct {
	ConfigDir    string
	SynonymsFile string
	// CodesFile is the cache key of the persisted code-to-id document.
	CodesFile string
	// Watch reloads the synonym table when the file changes (server only).
	Watch bool
}

// CacheConfig selects where the code registry and region list are persisted.
type CacheConfig struct {
	Backend string // file or badger
	Path    string
}

// ImportsConfig holds the import history database location.
type ImportsConfig struct {
	DatabasePath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string
	CORSOrigins []string
	// RequestsPerSecond and Burst bound inbound requests per client address.
	// A zero rate disables inbound limiting.
	RequestsPerSecond float64
	Burst             int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SynonymsPath returns the full path of the synonym configuration file.
func (c *Config) SynonymsPath() string {
	return filepath.Join(c.Fields.ConfigDir, c.Fields.SynonymsFile)
}

// LoadConfig loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
//
// Commands may register their own flags on flag.CommandLine before calling LoadConfig.
func LoadConfig() (*Config, error) {
	return load(flag.CommandLine, os.Args[1:])
}

func load(fs *flag.FlagSet, args []string) (*Config, error) {
	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	account := fs.String("account", "", "ThruText account name")
	staging := fs.String("staging", "", "Use the ThruText staging API (default: false)")
	timezone := fs.String("timezone", "", "Default campaign time zone")
	timeout := fs.String("http-timeout", "", "ThruText request timeout (default: 30s)")

	configDir := fs.String("config-dir", "", "Directory holding the synonym configuration (default: ./config)")
	synonymsFile := fs.String("synonyms-file", "", "Synonym configuration file name")
	watch := fs.String("watch", "", "Reload synonyms when the file changes (default: true)")

	cacheBackend := fs.String("cache-backend", "", "Registry cache backend: file or badger (default: file)")
	cachePath := fs.String("cache-path", "", "Registry cache location (default: config dir)")
	importsDB := fs.String("imports-db", "", "Import history database path")

	serverPort := fs.String("port", "", "Server port (default: 8080)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Missing .env is fine. godotenv never overrides variables that are already set.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		ThruText: ThruTextConfig{
			AccountName:       getConfigValue(*account, "THRU_TEXT_ACCOUNT_NAME", ""),
			Staging:           getBoolConfigValue(*staging, "THRU_TEXT_STAGING", false),
			Username:          getConfigValue("", "THRU_TEXT_API_UN", ""),
			Password:          getConfigValue("", "THRU_TEXT_API_PW", ""),
			DefaultTimezone:   getConfigValue(*timezone, "THRU_TEXT_DEFAULT_TIMEZONE", "US/Eastern"),
			RequestsPerSecond: getFloatConfigValue("", "THRU_TEXT_RPS", 5),
			Burst:             getIntConfigValue("", "THRU_TEXT_BURST", 10),
		},
		Fields: FieldsConfig{
			ConfigDir:    getConfigValue(*configDir, "FIELDS_CONFIG_DIR", "config"),
			SynonymsFile: getConfigValue(*synonymsFile, "FIELDS_SYNONYMS_FILE", "custom_field_synonyms.yaml"),
			CodesFile:    getConfigValue("", "FIELDS_CODES_FILE", "custom_field_codes.json"),
			Watch:        getBoolConfigValue(*watch, "FIELDS_WATCH", true),
		},
		Cache: CacheConfig{
			Backend: getConfigValue(*cacheBackend, "CACHE_BACKEND", "file"),
			Path:    getConfigValue(*cachePath, "CACHE_PATH", ""),
		},
		Imports: ImportsConfig{
			DatabasePath: getConfigValue(*importsDB, "IMPORTS_DB_PATH", ""),
		},
		Server: ServerConfig{
			Port:              getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins:       splitList(getConfigValue("", "SERVER_CORS_ORIGINS", "*")),
			RequestsPerSecond: getFloatConfigValue("", "SERVER_RPS", 20),
			Burst:             getIntConfigValue("", "SERVER_BURST", 40),
		},
	}

	durations := []struct {
		flagValue string
		envKey    string
		def       string
		dest      *time.Duration
	}{
		{*timeout, "THRU_TEXT_TIMEOUT", "30s", &cfg.ThruText.Timeout},
		{"", "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{"", "SERVER_WRITE_TIMEOUT", "60s", &cfg.Server.WriteTimeout},
		{"", "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dest = parsed
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Fields.ConfigDir == "" || c.Fields.SynonymsFile == "" || c.Fields.CodesFile == "" {
		return errors.New("fields config dir, synonyms file and codes file are required")
	}

	switch c.Cache.Backend {
	case "file", "badger":
	default:
		return fmt.Errorf("invalid cache backend: %s (must be file or badger)", c.Cache.Backend)
	}

	if c.ThruText.RequestsPerSecond <= 0 || c.ThruText.Burst <= 0 {
		return errors.New("ThruText rate limit must be positive")
	}
	if c.Server.RequestsPerSecond < 0 || (c.Server.RequestsPerSecond > 0 && c.Server.Burst <= 0) {
		return errors.New("server rate limit needs a non-negative rate and a positive burst")
	}

	return nil
}

// HasCredentials reports whether a username and password are configured.
func (c *Config) HasCredentials() bool {
	return c.ThruText.Username != "" && c.ThruText.Password != ""
}

func (c *Config) expandPaths() error {
	dir, err := expandPath(c.Fields.ConfigDir, "")
	if err != nil {
		return fmt.Errorf("invalid config dir: %w", err)
	}
	c.Fields.ConfigDir = dir

	defaultCache := dir
	if c.Cache.Backend == "badger" {
		defaultCache = filepath.Join(dir, "cache.badger")
	}
	if c.Cache.Path, err = expandPath(c.Cache.Path, defaultCache); err != nil {
		return fmt.Errorf("invalid cache path: %w", err)
	}

	if c.Imports.DatabasePath, err = expandPath(c.Imports.DatabasePath, filepath.Join(dir, "imports.db")); err != nil {
		return fmt.Errorf("invalid imports db path: %w", err)
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is used.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		if defaultPath == "" {
			return "", nil
		}
		path = defaultPath
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1", "yes" (case-insensitive) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// splitList splits a comma separated value, dropping empty items.
func splitList(value string) []string {
	var items []string
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return result
}
