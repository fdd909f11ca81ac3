package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds all environment configuration. It is read once at process
// start; a missing required value is a startup error, never a runtime
// fallback.
type Config struct {
	Port     string
	BaseURL  string
	LogLevel string

	IdentityURL        string
	IdentityAnonKey    string
	IdentityServiceKey string

	DatastoreURL        string
	DatastoreServiceKey string

	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string

	// GuardValidateTokens selects the strict route-guard variant that
	// verifies the access token locally before forwarding.
	GuardValidateTokens bool
	IdentityJWTSecret   string
}

// Load reads configuration from the environment. All missing required
// variables are reported together.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		BaseURL:              os.Getenv("BASE_URL"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		IdentityURL:          os.Getenv("IDENTITY_URL"),
		IdentityAnonKey:      os.Getenv("IDENTITY_ANON_KEY"),
		IdentityServiceKey:   os.Getenv("IDENTITY_SERVICE_KEY"),
		DatastoreURL:         os.Getenv("DATASTORE_URL"),
		DatastoreServiceKey:  os.Getenv("DATASTORE_SERVICE_KEY"),
		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripePublishableKey: os.Getenv("STRIPE_PUBLISHABLE_KEY"),
		StripeWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		GuardValidateTokens:  getEnvBool("GUARD_VALIDATE_TOKENS", false),
		IdentityJWTSecret:    os.Getenv("IDENTITY_JWT_SECRET"),
	}

	var missing []string
	required := []struct {
		name, value string
	}{
		{"BASE_URL", cfg.BaseURL},
		{"IDENTITY_URL", cfg.IdentityURL},
		{"IDENTITY_ANON_KEY", cfg.IdentityAnonKey},
		{"IDENTITY_SERVICE_KEY", cfg.IdentityServiceKey},
		{"DATASTORE_URL", cfg.DatastoreURL},
		{"DATASTORE_SERVICE_KEY", cfg.DatastoreServiceKey},
		{"STRIPE_SECRET_KEY", cfg.StripeSecretKey},
		{"STRIPE_PUBLISHABLE_KEY", cfg.StripePublishableKey},
	}
	for _, req := range required {
		if req.value == "" {
			missing = append(missing, req.name)
		}
	}
	if cfg.GuardValidateTokens && cfg.IdentityJWTSecret == "" {
		missing = append(missing, "IDENTITY_JWT_SECRET")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	cfg.IdentityURL = strings.TrimSuffix(cfg.IdentityURL, "/")
	cfg.DatastoreURL = strings.TrimSuffix(cfg.DatastoreURL, "/")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
