package identity

import (
	"os"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

// EnvConfig is the environment-backed Config implementation used by the
// bundled daemon. Library consumers that already carry their own config
// layer can implement Config directly instead.
type EnvConfig struct {
	AccessSecret      string
	RefreshSecret     string
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	MailerURL         string
	ActivationBaseURL string
	ResetBaseURL      string

	// Daemon-only knobs, not part of the Config contract.
	ListenAddr  string
	DatabaseDSN string
}

// LoadConfigFromEnv reads the configuration from the process environment,
// loading a .env file first when one is present. Missing signing secrets are
// a hard error: the engine must never start with tokens it cannot verify.
func LoadConfigFromEnv() (*EnvConfig, error) {
	// A missing .env file is fine, env vars may come from the process.
	_ = godotenv.Load()

	cfg := &EnvConfig{
		AccessSecret:      os.Getenv("IDENTITY_ACCESS_SECRET"),
		RefreshSecret:     os.Getenv("IDENTITY_REFRESH_SECRET"),
		AccessTTL:         DefaultAccessTokenTTL,
		RefreshTTL:        DefaultRefreshTokenTTL,
		MailerURL:         os.Getenv("IDENTITY_MAILER_URL"),
		ActivationBaseURL: os.Getenv("IDENTITY_ACTIVATION_BASE_URL"),
		ResetBaseURL:      os.Getenv("IDENTITY_RESET_BASE_URL"),
		ListenAddr:        envOrDefault("IDENTITY_LISTEN_ADDR", ":9000"),
		DatabaseDSN:       envOrDefault("IDENTITY_DATABASE_DSN", "file::memory:?cache=shared"),
	}

	if cfg.AccessSecret == "" {
		return nil, MissingSecretError(SecretAccess)
	}

	if cfg.RefreshSecret == "" {
		return nil, MissingSecretError(SecretRefresh)
	}

	if raw := os.Getenv("IDENTITY_ACCESS_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "invalid IDENTITY_ACCESS_TTL")
		}
		cfg.AccessTTL = ttl
	}

	if raw := os.Getenv("IDENTITY_REFRESH_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "invalid IDENTITY_REFRESH_TTL")
		}
		cfg.RefreshTTL = ttl
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func (c *EnvConfig) GetAccessSecret() string           { return c.AccessSecret }
func (c *EnvConfig) GetRefreshSecret() string          { return c.RefreshSecret }
func (c *EnvConfig) GetAccessTokenTTL() time.Duration  { return c.AccessTTL }
func (c *EnvConfig) GetRefreshTokenTTL() time.Duration { return c.RefreshTTL }
func (c *EnvConfig) GetMailerURL() string              { return c.MailerURL }
func (c *EnvConfig) GetActivationBaseURL() string      { return c.ActivationBaseURL }
func (c *EnvConfig) GetResetBaseURL() string           { return c.ResetBaseURL }
