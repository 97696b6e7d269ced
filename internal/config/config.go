package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/lazypower/starfield/internal/layout"
	"github.com/lazypower/starfield/internal/scene"
)

// Config holds all starfield configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Gateway  GatewayConfig  `toml:"gateway"`
	Supabase SupabaseConfig `toml:"supabase"`
	Layout   layout.Config  `toml:"layout"`
	View     ViewConfig     `toml:"view"`
	Log      LogConfig      `toml:"log"`
}

type ServerConfig struct {
	Bind        string   `toml:"bind" validate:"required"`
	Port        int      `toml:"port" validate:"min=1,max=65535"`
	CORSOrigins []string `toml:"cors_origins"`
}

type DatabaseConfig struct {
	Path string `toml:"path"` // empty: store.DefaultDBPath()
}

// GatewayConfig tells clients (view, render, upload) where graphs live.
type GatewayConfig struct {
	URL             string        `toml:"url" validate:"omitempty,url"`
	RateLimit       float64       `toml:"rate_limit" validate:"min=0"`
	BreakerFailures uint32        `toml:"breaker_failures" validate:"min=1"`
	BreakerOpenFor  time.Duration `toml:"breaker_open_for"`
	FallbackToLocal bool          `toml:"fallback_to_local"`
	RequestTimeout  time.Duration `toml:"request_timeout"`
	PreferSupabase  bool          `toml:"prefer_supabase"`
}

type SupabaseConfig struct {
	URL string `toml:"url" validate:"omitempty,url"`
	Key string `toml:"key"`
}

// ViewConfig sizes the canvas for render and view, and sets the zoom range.
type ViewConfig struct {
	Width  int `toml:"width" validate:"min=1"`
	Height int `toml:"height" validate:"min=1"`
	scene.Zoom
}

type LogConfig struct {
	Level       string `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Development bool   `toml:"development"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind:        "127.0.0.1",
			Port:        37790,
			CORSOrigins: []string{"*"},
		},
		Gateway: GatewayConfig{
			URL:             "", // resolved by the CLI from Server when empty
			RateLimit:       5,
			BreakerFailures: 3,
			BreakerOpenFor:  30 * time.Second,
			RequestTimeout:  5 * time.Second,
		},
		Layout: layout.DefaultConfig(),
		View: ViewConfig{
			Width:  960,
			Height: 640,
			Zoom:   scene.DefaultZoom(),
		},
		Log: LogConfig{Level: "info"},
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// ServerURL is the base URL of the local service described by Server.
func (c *Config) ServerURL() string {
	host := c.Server.Bind
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Server.Port)
}

// GatewayURL is Gateway.URL, or ServerURL when unset.
func (c *Config) GatewayURL() string {
	if c.Gateway.URL != "" {
		return c.Gateway.URL
	}
	return c.ServerURL()
}

// DefaultPath returns ~/.starfield/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".starfield", "config.toml"), nil
}

// Load builds the configuration: defaults, then the TOML file at path
// ($STARFIELD_CONFIG or DefaultPath when empty; a missing file is fine),
// then environment overrides. A .env in the working directory is read
// first so it can feed the overrides.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = os.Getenv("STARFIELD_CONFIG")
	}
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks ranges and formats.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.View.Min <= 0 || c.View.Max < c.View.Min || c.View.Step <= 0 {
		return fmt.Errorf("invalid config: zoom range %.2f-%.2f step %.2f", c.View.Min, c.View.Max, c.View.Step)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("STARFIELD_BIND"); v != "" {
		c.Server.Bind = v
	}
	if v := os.Getenv("STARFIELD_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STARFIELD_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("STARFIELD_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("STARFIELD_URL"); v != "" {
		c.Gateway.URL = v
	}
	if v := os.Getenv("APP_SUPABASE_URL"); v != "" {
		c.Supabase.URL = v
	}
	if v := os.Getenv("APP_SUPABASE_ANON_KEY"); v != "" {
		c.Supabase.Key = v
	}
	if v := os.Getenv("APP_CORS_ALLOW_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.CORSOrigins = origins
	}
	if v := os.Getenv("STARFIELD_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	return nil
}
