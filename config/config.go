// Package config provides CLI configuration management for the funnel
// command-line tool. It supports loading configuration from YAML files and
// environment variables, with environment variables taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/funnel-cli/pkg/db"
	"github.com/otherjamesbrown/funnel-cli/pkg/names"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
)

// Default configuration values.
const (
	DefaultOutputFormat = OutputFormatText
	DefaultLookbackDays = 90
	DefaultConfigDir    = ".funnel"
	DefaultConfigFile   = "config.yaml"
	DefaultRedisAddr    = "localhost:6379"
)

// DatabaseConfig holds PostgreSQL connection settings from the config file.
// Zero values fall through to the pkg/db defaults.
type DatabaseConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	SSLMode  string `yaml:"sslmode,omitempty"`
	MaxConns int32  `yaml:"max_conns,omitempty"`
}

// RedisConfig holds the review queue connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	QueueKey string `yaml:"queue_key,omitempty"`
}

// CLIConfig holds the CLI configuration settings.
type CLIConfig struct {
	// OutputFormat specifies the default output format for commands.
	OutputFormat OutputFormat `yaml:"output_format"`

	// LookbackDays is the trailing window for report drill-downs.
	LookbackDays int `yaml:"lookback_days"`

	// AliasFile is a YAML file mapping raw roster names to the canonical
	// name they should resolve to. Supports ~ for home directory expansion.
	AliasFile string `yaml:"alias_file,omitempty"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`

	// Database holds the PostgreSQL connection settings.
	Database DatabaseConfig `yaml:"database,omitempty"`

	// Redis holds the review queue connection settings.
	Redis RedisConfig `yaml:"redis,omitempty"`
}

// DefaultConfig returns a CLIConfig with default values.
func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		OutputFormat: DefaultOutputFormat,
		LookbackDays: DefaultLookbackDays,
		Redis: RedisConfig{
			Addr: DefaultRedisAddr,
		},
	}
}

// ConfigDir returns the configuration directory path.
// Uses $FUNNEL_CONFIG_DIR if set, otherwise ~/.funnel
func ConfigDir() (string, error) {
	if dir := os.Getenv("FUNNEL_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the CLI configuration.
// Configuration is loaded in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.funnel/config.yaml or $FUNNEL_CONFIG_DIR/config.yaml)
// 3. Environment variables (FUNNEL_*, DB_*, REDIS_*)
func LoadConfig() (*CLIConfig, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *CLIConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fileCfg CLIConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fileCfg.OutputFormat != "" {
		cfg.OutputFormat = fileCfg.OutputFormat
	}
	if fileCfg.LookbackDays > 0 {
		cfg.LookbackDays = fileCfg.LookbackDays
	}
	if fileCfg.AliasFile != "" {
		cfg.AliasFile = fileCfg.AliasFile
	}
	cfg.Debug = cfg.Debug || fileCfg.Debug

	if fileCfg.Database != (DatabaseConfig{}) {
		cfg.Database = fileCfg.Database
	}
	if fileCfg.Redis.Addr != "" {
		cfg.Redis.Addr = fileCfg.Redis.Addr
	}
	if fileCfg.Redis.Password != "" {
		cfg.Redis.Password = fileCfg.Redis.Password
	}
	if fileCfg.Redis.QueueKey != "" {
		cfg.Redis.QueueKey = fileCfg.Redis.QueueKey
	}

	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *CLIConfig) {
	if v := os.Getenv("FUNNEL_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = OutputFormat(v)
	}

	if v := os.Getenv("FUNNEL_LOOKBACK_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.LookbackDays = days
		}
	}

	if v := os.Getenv("FUNNEL_ALIAS_FILE"); v != "" {
		cfg.AliasFile = v
	}

	if v := os.Getenv("FUNNEL_DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}

	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
}

// Validate checks that the configuration is valid.
func (c *CLIConfig) Validate() error {
	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("invalid output_format: %q (must be text or json)", c.OutputFormat)
	}

	if c.LookbackDays <= 0 {
		return fmt.Errorf("lookback_days must be positive")
	}

	return nil
}

// DatabaseSettings maps the file/env values onto a pkg/db Config, leaving
// defaults in place for anything unset.
func (c *CLIConfig) DatabaseSettings() *db.Config {
	dbCfg := db.DefaultConfig()

	if c.Database.Host != "" {
		dbCfg.Host = c.Database.Host
	}
	if c.Database.Port > 0 {
		dbCfg.Port = c.Database.Port
	}
	if c.Database.Database != "" {
		dbCfg.Database = c.Database.Database
	}
	if c.Database.User != "" {
		dbCfg.User = c.Database.User
	}
	if c.Database.Password != "" {
		dbCfg.Password = c.Database.Password
	}
	if c.Database.SSLMode != "" {
		dbCfg.SSLMode = c.Database.SSLMode
	}
	if c.Database.MaxConns > 0 {
		dbCfg.MaxConns = c.Database.MaxConns
	}

	return dbCfg
}

// LoadAliases reads the alias map from the configured alias file. A missing
// path returns an empty map so resolution runs without aliases.
func (c *CLIConfig) LoadAliases() (names.AliasMap, error) {
	if c.AliasFile == "" {
		return names.AliasMap{}, nil
	}

	path := expandPath(c.AliasFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return names.AliasMap{}, nil
		}
		return nil, fmt.Errorf("reading alias file: %w", err)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing alias file: %w", err)
	}

	aliases := make(names.AliasMap, len(raw))
	for from, to := range raw {
		aliases[names.Normalize(from)] = to
	}
	return aliases, nil
}

// IsValid checks if the output format is valid.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// SaveConfig saves the configuration to the config file.
func SaveConfig(cfg *CLIConfig) error {
	configDir, err := ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	configPath := filepath.Join(configDir, DefaultConfigFile)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
