package lendconsole

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/lendconsole/api"
	"github.com/MrEthical07/lendconsole/guard"
	"github.com/MrEthical07/lendconsole/store"
)

// Config is the full console configuration. Obtain one from
// [DefaultConfig] or [LoadConfig] and adjust fields before passing it to
// [Builder.WithConfig].
type Config struct {
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Store   StoreConfig   `yaml:"store"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// APIConfig locates the lending API.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// SessionConfig controls credential persistence and forced navigation.
type SessionConfig struct {
	TokenKey   string `yaml:"token_key"`
	ProfileKey string `yaml:"profile_key"`
	// Leeway extends token expiry to absorb clock skew.
	Leeway       time.Duration `yaml:"leeway"`
	LoginRoute   string        `yaml:"login_route"`
	DefaultRoute string        `yaml:"default_route"`
}

// StoreKind selects the session store backend.
type StoreKind string

const (
	StoreFile   StoreKind = "file"
	StoreRedis  StoreKind = "redis"
	StoreMemory StoreKind = "memory"
)

// StoreConfig selects and configures the session store.
type StoreConfig struct {
	Kind StoreKind `yaml:"kind"`
	// Path of the file store. Empty means store.DefaultPath().
	Path          string        `yaml:"path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`
	Namespace     string        `yaml:"namespace"`
}

// AuditConfig controls asynchronous audit delivery. With DropIfFull a full
// buffer drops events instead of blocking the caller.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig enables the in-process counters and, optionally, latency
// histograms for API calls.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"latency_histograms"`
}

// LogConfig sets the verbosity of the console's logr logger.
type LogConfig struct {
	Verbosity int `yaml:"verbosity"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:   api.DefaultBaseURL,
			Timeout:   15 * time.Second,
			UserAgent: "lendconsole",
		},
		Session: SessionConfig{
			TokenKey:     "auth_token",
			ProfileKey:   "current_user",
			LoginRoute:   guard.LoginRoute,
			DefaultRoute: guard.DefaultRoute,
		},
		Store: StoreConfig{
			Kind:        StoreFile,
			RedisPrefix: store.DefaultRedisPrefix,
			Namespace:   "default",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// Validate checks cfg for values the console cannot run with.
func (c *Config) Validate() error {
	// API
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("API BaseURL %q must be an absolute http(s) URL", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return errors.New("API Timeout must be > 0")
	}

	// Session
	if strings.TrimSpace(c.Session.TokenKey) == "" || strings.TrimSpace(c.Session.ProfileKey) == "" {
		return errors.New("Session TokenKey and ProfileKey must be set")
	}
	if c.Session.TokenKey == c.Session.ProfileKey {
		return errors.New("Session TokenKey and ProfileKey must differ")
	}
	if c.Session.Leeway < 0 {
		return errors.New("Session Leeway must be >= 0")
	}
	if !strings.HasPrefix(c.Session.LoginRoute, "/") || !strings.HasPrefix(c.Session.DefaultRoute, "/") {
		return errors.New("Session LoginRoute and DefaultRoute must be absolute paths")
	}

	// Store
	switch c.Store.Kind {
	case StoreFile, StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("Store Kind %q must be one of file, redis, memory", c.Store.Kind)
	}
	if c.Store.RedisDB < 0 {
		return errors.New("Store RedisDB must be >= 0")
	}
	if c.Store.RedisTTL < 0 {
		return errors.New("Store RedisTTL must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Log.Verbosity < 0 {
		return errors.New("Log Verbosity must be >= 0")
	}
	return nil
}
