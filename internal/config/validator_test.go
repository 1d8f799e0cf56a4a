package config

import (
	"strings"
	"testing"
)

// validConfig returns a config that passes validation.
func validConfig() Config {
	var cfg Config
	cfg.SetDefaults()
	cfg.SetDevDefaults()
	return cfg
}

func TestValidateDefaults(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestValidateStructTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad listen address",
			mutate:  func(c *Config) { c.Server.HTTPAddr = "not an address" },
			wantErr: "server.http_addr",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Server.LogLevel = "verbose" },
			wantErr: "server.log_level",
		},
		{
			name:    "bad upstream url",
			mutate:  func(c *Config) { c.Upstream.URL = "not-a-url" },
			wantErr: "upstream.url",
		},
		{
			name:    "bad upstream timeout",
			mutate:  func(c *Config) { c.Upstream.HTTPTimeout = "fast" },
			wantErr: "upstream.http_timeout",
		},
		{
			name:    "negative duration",
			mutate:  func(c *Config) { c.RateLimit.Auth.Window = "-5m" },
			wantErr: "rate_limit.auth.window",
		},
		{
			name:    "bad backend",
			mutate:  func(c *Config) { c.RateLimit.Backend = "dynamo" },
			wantErr: "rate_limit.backend",
		},
		{
			name:    "bad mode",
			mutate:  func(c *Config) { c.Mode = "staging" },
			wantErr: "mode",
		},
		{
			name:    "bad auth mode",
			mutate:  func(c *Config) { c.Auth.Mode = "oauth" },
			wantErr: "auth.mode",
		},
		{
			name: "key without identity_id",
			mutate: func(c *Config) {
				c.Auth.Keys = []KeyConfig{{Hash: "sha256:deadbeef"}}
			},
			wantErr: "identity_id",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateProductionPosture(t *testing.T) {
	t.Parallel()

	keyring := AuthConfig{
		Mode:       "keyring",
		Identities: []IdentityConfig{{ID: "user_1", Name: "Akshay"}},
		Keys:       []KeyConfig{{Hash: "sha256:deadbeef", IdentityID: "user_1"}},
	}

	t.Run("demo auth rejected", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		cfg.Mode = "production"
		cfg.CSRF.AllowMissing = false

		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "demo") {
			t.Errorf("production with demo auth should fail, got: %v", err)
		}
	})

	t.Run("permissive csrf rejected", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		cfg.Mode = "production"
		cfg.Auth = keyring
		cfg.CSRF.AllowMissing = true

		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "allow_missing") {
			t.Errorf("production with allow_missing should fail, got: %v", err)
		}
	})

	t.Run("hardened production passes", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		cfg.Mode = "production"
		cfg.Auth = keyring
		cfg.CSRF.AllowMissing = false

		if err := cfg.Validate(); err != nil {
			t.Errorf("hardened production config should validate, got: %v", err)
		}
	})
}

func TestValidateRedisBackend(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.RateLimit.Backend = "redis"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "redis.addr") {
		t.Errorf("redis backend without addr should fail, got: %v", err)
	}

	cfg.Redis.Addr = "localhost:6379"
	if err := cfg.Validate(); err != nil {
		t.Errorf("redis backend with addr should validate, got: %v", err)
	}
}

func TestValidateKeyring(t *testing.T) {
	t.Parallel()

	t.Run("no keys", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		cfg.Auth.Mode = "keyring"

		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "at least one") {
			t.Errorf("keyring without keys should fail, got: %v", err)
		}
	})

	t.Run("dangling identity reference", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		cfg.Auth.Mode = "keyring"
		cfg.Auth.Identities = []IdentityConfig{{ID: "user_1", Name: "Akshay"}}
		cfg.Auth.Keys = []KeyConfig{{Hash: "sha256:deadbeef", IdentityID: "ghost"}}

		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "ghost") {
			t.Errorf("dangling identity_id should fail, got: %v", err)
		}
	})

	t.Run("consistent keyring", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		cfg.Auth.Mode = "keyring"
		cfg.Auth.Identities = []IdentityConfig{{ID: "user_1", Name: "Akshay"}}
		cfg.Auth.Keys = []KeyConfig{{Hash: "sha256:deadbeef", IdentityID: "user_1"}}

		if err := cfg.Validate(); err != nil {
			t.Errorf("consistent keyring should validate, got: %v", err)
		}
	})
}

func TestConfigKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		namespace string
		want      string
	}{
		{"Config.Server.HTTPAddr", "server.http_addr"},
		{"Config.RateLimit.SweepInterval", "rate_limit.sweep_interval"},
		{"Config.RateLimit.AI.Window", "rate_limit.ai.window"},
		{"Config.Mode", "mode"},
	}

	for _, tt := range tests {
		if got := configKey(tt.namespace); got != tt.want {
			t.Errorf("configKey(%q) = %q, want %q", tt.namespace, got, tt.want)
		}
	}
}
