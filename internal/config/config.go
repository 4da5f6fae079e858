package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds every runtime setting for the broker. It is populated once
// at startup and never mutated afterwards; constructors receive it by value
// of reference and must not write through it.
type Config struct {
	// OAuthHost is the base URL of the authorization server,
	// e.g. "https://www.recurse.com".
	OAuthHost         string `env:"RC_OAUTH_HOST"`
	OAuthClientID     string `env:"RC_OAUTH_CLIENT_ID"`
	OAuthClientSecret string `env:"RC_OAUTH_CLIENT_SECRET"`

	// OAuthRedirectURI must be byte-identical to the redirect URI registered
	// with the authorization server; the token exchange fails otherwise.
	OAuthRedirectURI string `env:"OAUTH_REDIRECT_URI"`

	// APIBaseURL is the root of the downstream profile API.
	APIBaseURL string `env:"RC_API_BASE_URL"`

	// ClientOrigin is the browser client's origin, used both for the CORS
	// allow-list and as the post-login redirect target.
	ClientOrigin string `env:"CLIENT_ORIGIN"`

	// SessionSecret signs the session cookie.
	SessionSecret string `env:"SESSION_SECRET"`

	RedisURL      string `env:"REDIS_URL"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	Port        string `env:"PORT" envDefault:"3000"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present, matching local development setups.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded environment from .env file")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsProduction reports whether the secure cookie attribute should be set.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"RC_OAUTH_HOST", c.OAuthHost},
		{"RC_OAUTH_CLIENT_ID", c.OAuthClientID},
		{"RC_OAUTH_CLIENT_SECRET", c.OAuthClientSecret},
		{"OAUTH_REDIRECT_URI", c.OAuthRedirectURI},
		{"RC_API_BASE_URL", c.APIBaseURL},
		{"CLIENT_ORIGIN", c.ClientOrigin},
		{"SESSION_SECRET", c.SessionSecret},
	}

	var missing []string
	for _, req := range required {
		if req.value == "" {
			missing = append(missing, req.name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return nil
}
