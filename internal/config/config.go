package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the companion server configuration.
type Config struct {
	Server  ServerConfig  `toml:"server" envPrefix:"GEMDECK_SERVER_"`
	API     APIConfig     `toml:"api" envPrefix:"GEMDECK_API_"`
	Storage StorageConfig `toml:"storage" envPrefix:"GEMDECK_STORAGE_"`
	Assets  AssetsConfig  `toml:"assets" envPrefix:"GEMDECK_ASSETS_"`
	Log     LogConfig     `toml:"log" envPrefix:"GEMDECK_LOG_"`
}

type ServerConfig struct {
	// Port is also read from the plain PORT variable.
	Port         string `toml:"port" env:"PORT"`
	CookieName   string `toml:"cookie_name" env:"COOKIE_NAME"`
	SecureCookie bool   `toml:"secure_cookie" env:"SECURE_COOKIE"`
	// IdleTimeout drops workspaces untouched for this long (e.g. "12h").
	IdleTimeout string `toml:"idle_timeout" env:"IDLE_TIMEOUT"`
}

type APIConfig struct {
	BaseURL           string  `toml:"base_url" env:"BASE_URL"`
	RequestsPerSecond float64 `toml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
	Timeout           string  `toml:"timeout" env:"TIMEOUT"`
}

type StorageConfig struct {
	// Path of the SQLite file holding client-local state.
	Path string `toml:"path" env:"PATH"`
}

type AssetsConfig struct {
	// BaseURL hosts /img/NNN.png artwork.
	BaseURL   string `toml:"base_url" env:"BASE_URL"`
	CacheSize int    `toml:"cache_size" env:"CACHE_SIZE"`
	// DataDir may hold gems.csv with name/effect overrides.
	DataDir string `toml:"data_dir" env:"DATA_DIR"`
}

type LogConfig struct {
	Level  string `toml:"level" env:"LEVEL"`
	Format string `toml:"format" env:"FORMAT"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			CookieName:  "gemdeck_session",
			IdleTimeout: "12h",
		},
		API: APIConfig{
			BaseURL:           "https://auragem.zeabur.app/api",
			RequestsPerSecond: 10,
			Timeout:           "15s",
		},
		Storage: StorageConfig{
			Path: "data/gemdeck.db",
		},
		Assets: AssetsConfig{
			BaseURL:   "https://auragem.zeabur.app",
			CacheSize: 64,
			DataDir:   "data",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error; an empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if p := os.Getenv("PORT"); p != "" {
		cfg.Server.Port = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if _, err := time.ParseDuration(c.Server.IdleTimeout); err != nil {
		return fmt.Errorf("invalid idle timeout %q: %w", c.Server.IdleTimeout, err)
	}
	if _, err := time.ParseDuration(c.API.Timeout); err != nil {
		return fmt.Errorf("invalid api timeout %q: %w", c.API.Timeout, err)
	}
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api base url %q", c.API.BaseURL)
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must not be negative")
	}
	if c.Storage.Path == "" {
		return errors.New("storage path is required")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	return nil
}

// IdleTimeout returns the parsed workspace idle timeout.
func (c *Config) IdleTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.IdleTimeout)
	return d
}

// APITimeout returns the parsed remote call timeout.
func (c *Config) APITimeout() time.Duration {
	d, _ := time.ParseDuration(c.API.Timeout)
	return d
}

// ParseLevel maps a level name to slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(s)))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}
