package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ExampleYAML renders a fully-populated example configuration file,
// printed by `fearvana-gate config`.
func ExampleYAML() ([]byte, error) {
	cfg := Config{
		Server: ServerConfig{
			HTTPAddr: "127.0.0.1:8080",
			LogLevel: "info",
		},
		Upstream: UpstreamConfig{
			URL:         "http://localhost:3000",
			HTTPTimeout: "30s",
		},
		Origins: OriginsConfig{
			AppURL: "https://app.fearvana.ai",
			Extra:  []string{"https://staging.fearvana.ai"},
		},
		RateLimit: RateLimitConfig{
			Backend:       "memory",
			SweepInterval: "1m",
			Auth:          ClassConfig{Requests: 5, Window: "15m"},
			AI:            ClassConfig{Requests: 20, Window: "1h"},
			Payment:       ClassConfig{Requests: 10, Window: "1h"},
			Default:       ClassConfig{Requests: 100, Window: "1m"},
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Auth: AuthConfig{
			Mode: "keyring",
			Identities: []IdentityConfig{
				{ID: "user_1", Name: "Akshay"},
			},
			Keys: []KeyConfig{
				{
					Hash:       "sha256:<hex, generate with: fearvana-gate hash-key>",
					IdentityID: "user_1",
				},
			},
		},
		Mode: "production",
	}
	cfg.SetDefaults()

	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to render example config: %w", err)
	}
	return out, nil
}
