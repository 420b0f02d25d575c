package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides (SMARTDOCTOR_LISTEN_ADDR, ...)
const EnvPrefix = "SMARTDOCTOR"

// LoggingConfig controls log level and output format
type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"` // json or console
}

// Config holds the agent configuration
type Config struct {
	// Directory where config and the installation ID are stored
	ConfigDir string `mapstructure:"-" json:"-"`

	// Loopback address the bridge listens on
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`

	// Directory with the page assets (index.html); empty disables static serving
	AssetsDir string `mapstructure:"assets_dir" json:"assets_dir,omitempty"`

	// Page loaded when no assets dir is served
	DefaultPageURL string `mapstructure:"default_page_url" json:"default_page_url"`

	// Filesystem whose capacity is reported as device storage
	DataDir string `mapstructure:"data_dir" json:"data_dir"`

	// Timeouts
	CommandTimeoutSeconds int `mapstructure:"command_timeout_seconds" json:"command_timeout_seconds"`
	SubmitTimeoutSeconds  int `mapstructure:"submit_timeout_seconds" json:"submit_timeout_seconds"`

	Logging LoggingConfig `mapstructure:"logging" json:"logging"`
}

// Paths returns important file paths
type Paths struct {
	Config         string // config.json
	InstallationID string // installation_id
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:            "127.0.0.1:8765",
		DefaultPageURL:        "file:///android_asset/index.html",
		DataDir:               defaultDataDir(),
		CommandTimeoutSeconds: 5,
		SubmitTimeoutSeconds:  15,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from the specified directory or default.
// Values come from defaults, then config.json, then SMARTDOCTOR_* variables.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = defaultConfigDir()
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(configDir, "config.json"))
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := DefaultConfig()
	v.SetDefault("listen_addr", def.ListenAddr)
	v.SetDefault("assets_dir", def.AssetsDir)
	v.SetDefault("default_page_url", def.DefaultPageURL)
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("command_timeout_seconds", def.CommandTimeoutSeconds)
	v.SetDefault("submit_timeout_seconds", def.SubmitTimeoutSeconds)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)

	if err := v.ReadInConfig(); err != nil {
		// First run - defaults and environment only
		if !errors.Is(err, os.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ConfigDir = configDir

	if cfg.CommandTimeoutSeconds < 1 {
		cfg.CommandTimeoutSeconds = def.CommandTimeoutSeconds
	}
	if cfg.SubmitTimeoutSeconds < 1 {
		cfg.SubmitTimeoutSeconds = def.SubmitTimeoutSeconds
	}

	return cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(c.Paths().Config, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Paths returns the file paths kept in the config directory
func (c *Config) Paths() Paths {
	return Paths{
		Config:         filepath.Join(c.ConfigDir, "config.json"),
		InstallationID: filepath.Join(c.ConfigDir, "installation_id"),
	}
}

// defaultDataDir returns the filesystem reported as device storage
func defaultDataDir() string {
	switch runtime.GOOS {
	case "android":
		return "/data"
	case "windows":
		return "C:\\"
	default:
		return "/"
	}
}

// defaultConfigDir returns the default configuration directory
func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		// Use %LOCALAPPDATA%\SmartDoctor
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData != "" {
			return filepath.Join(localAppData, "SmartDoctor")
		}
		return filepath.Join(os.Getenv("USERPROFILE"), ".smartdoctor")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "SmartDoctor")
	default:
		// Linux, Android (Termux home) and others
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			return filepath.Join(os.TempDir(), ".smartdoctor")
		}
		return filepath.Join(home, ".smartdoctor")
	}
}
