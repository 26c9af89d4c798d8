package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all recentswitch configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	DB       DBConfig       `yaml:"db"`
	Log      LogConfig      `yaml:"log"`
	History  HistoryConfig  `yaml:"history"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Icons    IconsConfig    `yaml:"icons"`
	Switcher SwitcherConfig `yaml:"switcher"`
}

// ServerConfig is the WebSocket endpoint the extension connects to.
type ServerConfig struct {
	Port int `yaml:"port"`
	// CallTimeout bounds each command sent to the extension.
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// APIConfig is the localhost HTTP API used by the options page and the
// terminal switcher.
type APIConfig struct {
	Port int `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

type HistoryConfig struct {
	MaxRecords int `yaml:"max_records"`
	// ExcludePrefixes and ExcludeURLs describe pages never recorded.
	ExcludePrefixes []string `yaml:"exclude_prefixes"`
	ExcludeURLs     []string `yaml:"exclude_urls"`
}

type DeliveryConfig struct {
	Retries        int           `yaml:"retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	Timeout        time.Duration `yaml:"timeout"`
	// InjectFiles are the content-script files injected when the overlay
	// script is not yet loaded in the target tab.
	InjectFiles []string `yaml:"inject_files"`
}

type IconsConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	MaxAge          time.Duration `yaml:"max_age"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

type SwitcherConfig struct {
	SkipCurrent      bool `yaml:"skip_current"`
	IncludeBookmarks bool `yaml:"include_bookmarks"`
	BookmarkLimit    int  `yaml:"bookmark_limit"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	dataDir := DataDir()
	return &Config{
		Server: ServerConfig{Port: 19192, CallTimeout: 2 * time.Second},
		API:    APIConfig{Port: 19193},
		DB:     DBConfig{Path: filepath.Join(dataDir, "recentswitch.db")},
		Log:    LogConfig{Dir: dataDir, Level: "info"},
		History: HistoryConfig{
			MaxRecords:      8,
			ExcludePrefixes: []string{"chrome-devtools://", "devtools://"},
			ExcludeURLs:     []string{"about:blank", "edge://newtab/", "chrome://newtab/"},
		},
		Delivery: DeliveryConfig{
			Retries:        3,
			InitialBackoff: 300 * time.Millisecond,
			Timeout:        1500 * time.Millisecond,
			InjectFiles:    []string{"contents/tabSwitcher.js"},
		},
		Icons: IconsConfig{
			TTL:             7 * 24 * time.Hour,
			MaxAge:          30 * 24 * time.Hour,
			CleanupInterval: 24 * time.Hour,
		},
		Switcher: SwitcherConfig{
			SkipCurrent:      true,
			IncludeBookmarks: true,
			BookmarkLimit:    10,
		},
	}
}

// DataDir returns ~/.local/share/recentswitch, or the working directory if
// the home directory cannot be resolved.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "recentswitch")
}

// DefaultPath returns the config file location: RECENTSWITCH_CONFIG if set,
// otherwise ~/.config/recentswitch/config.yaml.
func DefaultPath() string {
	if p := os.Getenv("RECENTSWITCH_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "recentswitch", "config.yaml")
}

// Load reads a YAML config file at path and merges it with defaults. A
// missing file is not an error. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("RECENTSWITCH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RECENTSWITCH_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("RECENTSWITCH_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RECENTSWITCH_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}
	if v := os.Getenv("RECENTSWITCH_DB"); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv("RECENTSWITCH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.CallTimeout <= 0 {
		return fmt.Errorf("server.call_timeout must be positive")
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	if c.History.MaxRecords < 1 {
		return fmt.Errorf("history.max_records must be at least 1, got %d", c.History.MaxRecords)
	}
	if c.Delivery.Retries < 0 {
		return fmt.Errorf("delivery.retries must not be negative, got %d", c.Delivery.Retries)
	}
	if c.Delivery.Timeout <= 0 {
		return fmt.Errorf("delivery.timeout must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	return nil
}
