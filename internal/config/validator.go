package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers gate-specific validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	// duration: validates Go duration strings ("30s", "15m", "1h").
	if err := v.RegisterValidation("duration", validateDuration); err != nil {
		return fmt.Errorf("failed to register duration validator: %w", err)
	}
	return nil
}

// validateDuration validates a Go duration string field.
func validateDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

// Validate validates the Config using struct tags and cross-field rules.
// Returns an error with actionable messages on failure.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateProductionPosture(); err != nil {
		return err
	}

	if err := c.validateRedisBackend(); err != nil {
		return err
	}

	if err := c.validateKeyring(); err != nil {
		return err
	}

	return nil
}

// validateProductionPosture forbids development shortcuts in production.
func (c *Config) validateProductionPosture() error {
	if !c.IsProduction() {
		return nil
	}
	if c.CSRF.AllowMissing {
		return errors.New("csrf.allow_missing must be false in production mode")
	}
	if c.Auth.Mode == "demo" {
		return errors.New("auth.mode \"demo\" is not allowed in production mode; configure a keyring")
	}
	return nil
}

// validateRedisBackend requires a Redis address when the redis rate limit
// backend is selected.
func (c *Config) validateRedisBackend() error {
	if c.RateLimit.Backend == "redis" && c.Redis.Addr == "" {
		return errors.New("rate_limit.backend \"redis\" requires redis.addr")
	}
	return nil
}

// validateKeyring checks keyring referential integrity: keyring mode needs
// at least one key, and every key must reference a defined identity.
func (c *Config) validateKeyring() error {
	if c.Auth.Mode != "keyring" {
		return nil
	}

	if len(c.Auth.Keys) == 0 {
		return errors.New("auth.mode \"keyring\" requires at least one entry in auth.keys")
	}

	known := make(map[string]struct{}, len(c.Auth.Identities))
	for _, identity := range c.Auth.Identities {
		known[identity.ID] = struct{}{}
	}

	for i, key := range c.Auth.Keys {
		if _, ok := known[key.IdentityID]; !ok {
			return fmt.Errorf("auth.keys[%d]: identity_id %q does not match any identity", i, key.IdentityID)
		}
	}

	return nil
}

// formatValidationErrors converts validator errors into actionable
// messages naming the offending config key.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		key := configKey(fieldErr.Namespace())
		switch fieldErr.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", key))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", key, fieldErr.Param()))
		case "duration":
			messages = append(messages, fmt.Sprintf("%s must be a positive duration (e.g. \"30s\", \"15m\")", key))
		case "url":
			messages = append(messages, fmt.Sprintf("%s must be a valid URL", key))
		case "hostname_port":
			messages = append(messages, fmt.Sprintf("%s must be a host:port address", key))
		default:
			messages = append(messages, fmt.Sprintf("%s failed %q validation", key, fieldErr.Tag()))
		}
	}

	return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
}

// configKey converts a struct namespace like "Config.Server.HTTPAddr"
// into the YAML-ish key "server.http_addr" users actually write.
func configKey(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:] // drop the root struct name
	}
	for i, part := range parts {
		parts[i] = toSnake(part)
	}
	return strings.Join(parts, ".")
}

// toSnake converts a Go field name to snake_case, keeping runs of capitals
// together (HTTPAddr -> http_addr, AI -> ai).
func toSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			prevLower := i > 0 && runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if i > 0 && (prevLower || nextLower) {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
