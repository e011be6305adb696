package lendconsole

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Session.TokenKey != "auth_token" || cfg.Session.ProfileKey != "current_user" {
		t.Fatalf("unexpected storage keys: %+v", cfg.Session)
	}
	if cfg.Session.Leeway != 0 {
		t.Fatalf("expected zero leeway, got %v", cfg.Session.Leeway)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "https base url valid",
			mutate:    func(c *Config) { c.API.BaseURL = "https://lending.example.com" },
			wantValid: true,
		},
		{
			name:      "relative base url invalid",
			mutate:    func(c *Config) { c.API.BaseURL = "/api" },
			wantValid: false,
		},
		{
			name:      "ftp base url invalid",
			mutate:    func(c *Config) { c.API.BaseURL = "ftp://lending.example.com" },
			wantValid: false,
		},
		{
			name:      "zero timeout invalid",
			mutate:    func(c *Config) { c.API.Timeout = 0 },
			wantValid: false,
		},
		{
			name:      "blank token key invalid",
			mutate:    func(c *Config) { c.Session.TokenKey = "  " },
			wantValid: false,
		},
		{
			name:      "same keys invalid",
			mutate:    func(c *Config) { c.Session.ProfileKey = c.Session.TokenKey },
			wantValid: false,
		},
		{
			name:      "negative leeway invalid",
			mutate:    func(c *Config) { c.Session.Leeway = -time.Second },
			wantValid: false,
		},
		{
			name:      "relative login route invalid",
			mutate:    func(c *Config) { c.Session.LoginRoute = "login" },
			wantValid: false,
		},
		{
			name:      "redis kind valid",
			mutate:    func(c *Config) { c.Store.Kind = StoreRedis },
			wantValid: true,
		},
		{
			name:      "unknown store kind invalid",
			mutate:    func(c *Config) { c.Store.Kind = "etcd" },
			wantValid: false,
		},
		{
			name:      "negative redis db invalid",
			mutate:    func(c *Config) { c.Store.RedisDB = -1 },
			wantValid: false,
		},
		{
			name: "audit without buffer invalid",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name:      "negative verbosity invalid",
			mutate:    func(c *Config) { c.Log.Verbosity = -1 },
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestMergeYAML(t *testing.T) {
	cfg := DefaultConfig()
	doc := []byte(`
api:
  base_url: https://lending.example.com
  timeout: 30s
session:
  leeway: 1m
store:
  kind: redis
  redis_addr: 127.0.0.1:6379
  namespace: branch-7
audit:
  enabled: true
`)
	if err := MergeYAML(&cfg, doc); err != nil {
		t.Fatalf("MergeYAML failed: %v", err)
	}
	if cfg.API.BaseURL != "https://lending.example.com" || cfg.API.Timeout != 30*time.Second {
		t.Fatalf("unexpected api section: %+v", cfg.API)
	}
	if cfg.Session.Leeway != time.Minute {
		t.Fatalf("unexpected leeway %v", cfg.Session.Leeway)
	}
	if cfg.Store.Kind != StoreRedis || cfg.Store.Namespace != "branch-7" {
		t.Fatalf("unexpected store section: %+v", cfg.Store)
	}
	if !cfg.Audit.Enabled || cfg.Audit.BufferSize != 256 {
		t.Fatalf("unset fields must keep defaults: %+v", cfg.Audit)
	}
	if cfg.Session.TokenKey != "auth_token" {
		t.Fatal("unset session fields must keep defaults")
	}
}

func TestMergeYAMLRejectsUnknownKeys(t *testing.T) {
	cfg := DefaultConfig()
	if err := MergeYAML(&cfg, []byte("api:\n  base_uri: http://x\n")); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"LENDCTL_SERVER":   "http://lending.internal:8080",
		"LENDCTL_STORE":    "MEMORY",
		"LENDCTL_TIMEOUT":  "3s",
		"LENDCTL_REDIS_DB": "2",
		"LENDCTL_VERBOSE":  "2",
		"LENDCTL_AUDIT":    "true",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	if err := ApplyEnv(&cfg, lookup); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.API.BaseURL != "http://lending.internal:8080" || cfg.API.Timeout != 3*time.Second {
		t.Fatalf("unexpected api section: %+v", cfg.API)
	}
	if cfg.Store.Kind != StoreMemory || cfg.Store.RedisDB != 2 {
		t.Fatalf("unexpected store section: %+v", cfg.Store)
	}
	if cfg.Log.Verbosity != 2 || !cfg.Audit.Enabled {
		t.Fatalf("unexpected log/audit: %+v %+v", cfg.Log, cfg.Audit)
	}
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	for _, kv := range [][2]string{
		{"LENDCTL_TIMEOUT", "soon"},
		{"LENDCTL_REDIS_DB", "one"},
		{"LENDCTL_VERBOSE", "loud"},
		{"LENDCTL_AUDIT", "maybe"},
	} {
		lookup := func(k string) (string, bool) {
			if k == kv[0] {
				return kv[1], true
			}
			return "", false
		}
		cfg := DefaultConfig()
		if err := ApplyEnv(&cfg, lookup); err == nil {
			t.Fatalf("expected error for %s=%s", kv[0], kv[1])
		}
	}
}

func TestLoadConfigLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lendctl.yaml")
	if err := os.WriteFile(path, []byte("api:\n  base_url: http://from-file:8080\nstore:\n  kind: memory\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LENDCTL_SERVER", "http://from-env:8080")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.API.BaseURL != "http://from-env:8080" {
		t.Fatalf("environment must override file, got %q", cfg.API.BaseURL)
	}
	if cfg.Store.Kind != StoreMemory {
		t.Fatalf("file value lost, got %q", cfg.Store.Kind)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file must be skipped: %v", err)
	}
	if cfg.API.BaseURL != DefaultConfig().API.BaseURL {
		t.Fatalf("unexpected base url %q", cfg.API.BaseURL)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("store:\n  kind: etcd\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error")
	}
}
