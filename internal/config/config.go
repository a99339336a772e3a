package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Record source backends.
const (
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	// DefaultPeriod is the selector used when a query names neither a window nor a period.
	DefaultPeriod string `json:"default_period,omitempty"`

	// TopLimit is the default number of items returned by top-N reports.
	TopLimit int `json:"top_limit,omitempty"`

	// Timezone is the IANA zone used to decide what "today" is. Empty means local time.
	Timezone string `json:"timezone,omitempty"`

	// QueryTimeoutMS bounds each record-source read.
	QueryTimeoutMS int `json:"query_timeout_ms,omitempty"`

	// RecordSource selects where reports read rows from: "sqlite" (default) or "postgres".
	// Writes (add, catalog set, import) always go to the local SQLite store.
	RecordSource string `json:"record_source,omitempty"`

	// Postgres holds connection settings for the read-only Postgres source.
	Postgres PostgresConfig `json:"postgres,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside ~/.nutrilog/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool types to disable entirely.
	// Known types: "log", "catalog".
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is "text" or "json".
	LogFormat string `json:"log_format,omitempty"`
}

// PostgresConfig holds connection settings for the Postgres record source.
type PostgresConfig struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	DBName   string `json:"dbname,omitempty"`
	SSLMode  string `json:"sslmode,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultPeriod:  "last month",
		TopLimit:       10,
		QueryTimeoutMS: 5000,
		RecordSource:   SourceSQLite,
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			DBName:  "nutrilog",
			SSLMode: "disable",
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.nutrilog) and repo (.nutrilog) directories.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Environment overrides are applied last.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	ApplyEnv(cfg, os.Getenv)
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .nutrilog/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".nutrilog", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw returns a zero-valued config (not defaults) if the file doesn't exist.
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		DefaultPeriod:  pickString(overlay.DefaultPeriod, base.DefaultPeriod),
		TopLimit:       pickInt(overlay.TopLimit, base.TopLimit),
		Timezone:       pickString(overlay.Timezone, base.Timezone),
		QueryTimeoutMS: pickInt(overlay.QueryTimeoutMS, base.QueryTimeoutMS),
		RecordSource:   pickString(overlay.RecordSource, base.RecordSource),
		DBMaxOpenConns: pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns: pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		LogLevel:       pickString(overlay.LogLevel, base.LogLevel),
		LogFormat:      pickString(overlay.LogFormat, base.LogFormat),
		Postgres: PostgresConfig{
			Host:     pickString(overlay.Postgres.Host, base.Postgres.Host),
			Port:     pickInt(overlay.Postgres.Port, base.Postgres.Port),
			User:     pickString(overlay.Postgres.User, base.Postgres.User),
			Password: pickString(overlay.Postgres.Password, base.Postgres.Password),
			DBName:   pickString(overlay.Postgres.DBName, base.Postgres.DBName),
			SSLMode:  pickString(overlay.Postgres.SSLMode, base.Postgres.SSLMode),
		},
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

// ApplyEnv overlays NUTRILOG_* environment variables onto cfg.
// getenv is injected so tests don't have to touch the process environment.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("NUTRILOG_RECORD_SOURCE"); v != "" {
		cfg.RecordSource = v
	}
	if v := getenv("NUTRILOG_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := getenv("NUTRILOG_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("NUTRILOG_PG_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := getenv("NUTRILOG_PG_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Postgres.Port = port
		}
	}
	if v := getenv("NUTRILOG_PG_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := getenv("NUTRILOG_PG_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := getenv("NUTRILOG_PG_DBNAME"); v != "" {
		cfg.Postgres.DBName = v
	}
	if v := getenv("NUTRILOG_PG_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
}

// Validate reports configuration values that cannot work.
func (c *Config) Validate() error {
	switch c.RecordSource {
	case "", SourceSQLite, SourcePostgres:
	default:
		return fmt.Errorf("record_source must be %q or %q, got %q", SourceSQLite, SourcePostgres, c.RecordSource)
	}
	if c.TopLimit < 0 {
		return fmt.Errorf("top_limit must not be negative")
	}
	if c.QueryTimeoutMS < 0 {
		return fmt.Errorf("query_timeout_ms must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone, falling back to time.Local when unset.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// QueryTimeout returns QueryTimeoutMS as a duration (0 means no timeout).
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutMS) * time.Millisecond
}

func pickString(overlay, base string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
