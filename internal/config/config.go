// Package config provides configuration types for Fearvana Gate.
//
// The gate is configured from a YAML file plus environment overrides. All
// fields have working defaults: a bare `fearvana-gate start` runs a
// development-mode gate on localhost with the in-memory rate limit store
// and the demo authenticator.
package config

// Config is the top-level configuration for the gate.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Upstream configures the application the gate fronts.
	Upstream UpstreamConfig `yaml:"upstream" mapstructure:"upstream"`

	// Origins configures the cross-origin allow list.
	Origins OriginsConfig `yaml:"origins" mapstructure:"origins"`

	// RateLimit configures the limiter backend and per-class budgets.
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`

	// Redis configures the Redis connection for the redis rate limit
	// backend. Ignored when the backend is "memory".
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`

	// Auth configures bearer token verification.
	Auth AuthConfig `yaml:"auth" mapstructure:"auth"`

	// CSRF configures CSRF token validation.
	CSRF CSRFConfig `yaml:"csrf" mapstructure:"csrf"`

	// Routes configures the public bypass and protected route prefixes.
	Routes RoutesConfig `yaml:"routes" mapstructure:"routes"`

	// Mode selects the deployment mode: "production" or "development".
	// Production tightens origin checks to exact allow-list membership and
	// forbids permissive CSRF handling.
	Mode string `yaml:"mode" mapstructure:"mode" validate:"omitempty,oneof=production development"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// HTTPAddr is the address to listen on (e.g., "127.0.0.1:8080").
	// Defaults to "127.0.0.1:8080" (localhost only) if empty.
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum log level: "debug", "info", "warn", "error".
	// Defaults to "info". Development mode overrides to "debug".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// UpstreamConfig configures the application behind the gate.
type UpstreamConfig struct {
	// URL is the base URL requests are forwarded to after passing the gate
	// (e.g., "http://localhost:3000"). Optional: when empty the gate serves
	// 502 for allowed requests, which is only useful in tests or when the
	// gate is embedded as middleware.
	URL string `yaml:"url" mapstructure:"url" validate:"omitempty,url"`

	// HTTPTimeout is the upstream response header timeout (e.g., "30s").
	// Defaults to "30s".
	HTTPTimeout string `yaml:"http_timeout" mapstructure:"http_timeout" validate:"omitempty,duration"`
}

// OriginsConfig configures the cross-origin allow list.
type OriginsConfig struct {
	// AppURL is the deployed frontend origin, always allowed.
	AppURL string `yaml:"app_url" mapstructure:"app_url" validate:"omitempty,url"`

	// Extra lists additional allowed origins (staging frontends, preview
	// deployments).
	Extra []string `yaml:"extra" mapstructure:"extra" validate:"omitempty,dive,url"`
}

// ClassConfig is the budget for one rate limit class.
type ClassConfig struct {
	// Requests is the number of allowed requests per window.
	Requests int `yaml:"requests" mapstructure:"requests" validate:"omitempty,min=1"`

	// Window is the fixed window length (e.g., "15m", "1h").
	Window string `yaml:"window" mapstructure:"window" validate:"omitempty,duration"`
}

// RateLimitConfig configures the limiter.
type RateLimitConfig struct {
	// Backend selects the counter store: "memory" (single process) or
	// "redis" (shared across processes). Defaults to "memory".
	Backend string `yaml:"backend" mapstructure:"backend" validate:"omitempty,oneof=memory redis"`

	// SweepInterval is how often the memory backend deletes expired
	// windows (e.g., "1m"). Defaults to "1m". Ignored for redis.
	SweepInterval string `yaml:"sweep_interval" mapstructure:"sweep_interval" validate:"omitempty,duration"`

	// Auth, AI, Payment, Default override the per-class budgets.
	Auth    ClassConfig `yaml:"auth" mapstructure:"auth"`
	AI      ClassConfig `yaml:"ai" mapstructure:"ai"`
	Payment ClassConfig `yaml:"payment" mapstructure:"payment"`
	Default ClassConfig `yaml:"default" mapstructure:"default"`
}

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	// Addr is the Redis host:port.
	Addr string `yaml:"addr" mapstructure:"addr" validate:"omitempty,hostname_port"`

	// Password authenticates the connection. Optional.
	Password string `yaml:"password" mapstructure:"password"`

	// DB selects the Redis logical database.
	DB int `yaml:"db" mapstructure:"db" validate:"omitempty,min=0"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	// Mode selects the authenticator: "demo" (prefix-convention placeholder
	// for development) or "keyring" (hashed keys with expiry/revocation).
	// Defaults to "demo".
	Mode string `yaml:"mode" mapstructure:"mode" validate:"omitempty,oneof=demo keyring"`

	// Identities defines the known identities for keyring mode.
	Identities []IdentityConfig `yaml:"identities" mapstructure:"identities" validate:"omitempty,dive"`

	// Keys defines the hashed keys for keyring mode.
	Keys []KeyConfig `yaml:"keys" mapstructure:"keys" validate:"omitempty,dive"`
}

// IdentityConfig defines one known identity.
type IdentityConfig struct {
	// ID is the unique identifier forwarded upstream as X-User-Id.
	ID string `yaml:"id" mapstructure:"id" validate:"required"`

	// Name is the human-readable name.
	Name string `yaml:"name" mapstructure:"name" validate:"required"`
}

// KeyConfig defines one hashed bearer key.
type KeyConfig struct {
	// Hash is the stored key hash: "sha256:<hex>" or Argon2id PHC format.
	// Generate with: fearvana-gate hash-key <raw-key>
	Hash string `yaml:"hash" mapstructure:"hash" validate:"required"`

	// IdentityID references the identity this key authenticates as.
	IdentityID string `yaml:"identity_id" mapstructure:"identity_id" validate:"required"`
}

// CSRFConfig configures CSRF validation.
type CSRFConfig struct {
	// AllowMissing passes state-changing requests that carry neither CSRF
	// token. Development convenience only: validation rejects it in
	// production mode.
	AllowMissing bool `yaml:"allow_missing" mapstructure:"allow_missing"`
}

// RoutesConfig configures path matching.
type RoutesConfig struct {
	// Public prefixes bypass every gate check.
	Public []string `yaml:"public" mapstructure:"public"`

	// Protected prefixes require a valid bearer token.
	Protected []string `yaml:"protected" mapstructure:"protected"`
}

// IsProduction reports whether the gate runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Mode == "production"
}

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Upstream.HTTPTimeout == "" {
		c.Upstream.HTTPTimeout = "30s"
	}
	if c.Mode == "" {
		c.Mode = "development"
	}

	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = "memory"
	}
	if c.RateLimit.SweepInterval == "" {
		c.RateLimit.SweepInterval = "1m"
	}
	setClassDefaults(&c.RateLimit.Auth, 5, "15m")
	setClassDefaults(&c.RateLimit.AI, 20, "1h")
	setClassDefaults(&c.RateLimit.Payment, 10, "1h")
	setClassDefaults(&c.RateLimit.Default, 100, "1m")

	if c.Auth.Mode == "" {
		c.Auth.Mode = "demo"
	}

	if len(c.Routes.Public) == 0 {
		c.Routes.Public = []string{
			"/_next",
			"/static",
			"/public",
			"/auth/login",
			"/auth/register",
			"/landing",
		}
	}
	if len(c.Routes.Protected) == 0 {
		c.Routes.Protected = []string{
			"/api/ai-coach",
			"/api/antarctica-ai",
			"/api/payments",
			"/api/subscriptions",
			"/api/corporate-programs",
		}
	}
}

// SetDevDefaults applies permissive defaults for development mode.
// Applied BEFORE validation, and never in production mode.
func (c *Config) SetDevDefaults() {
	if c.IsProduction() {
		return
	}

	// Tokenless local clients are common before the frontend mints a CSRF
	// cookie; production validation rejects this flag.
	c.CSRF.AllowMissing = true
}

func setClassDefaults(class *ClassConfig, requests int, window string) {
	if class.Requests == 0 {
		class.Requests = requests
	}
	if class.Window == "" {
		class.Window = window
	}
}
