// Package config loads client session settings from the environment.
//
// Every variable carries the AUTHCLIENT_ prefix, e.g. AUTHCLIENT_LOGIN_PATH.
// A .env file in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	authclient "github.com/goliatone/go-auth-client"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable name
const EnvPrefix = "AUTHCLIENT_"

// MinValidationInterval guards against a busy validation loop
const MinValidationInterval = time.Second

var _ authclient.Config = (*Config)(nil)

type Config struct {
	// Verbose drops the CLI logger to trace level.
	Verbose bool `env:"VERBOSE" envDefault:"false"`

	LoginPath        string `env:"LOGIN_PATH" envDefault:"/login"`
	UnauthorizedPath string `env:"UNAUTHORIZED_PATH" envDefault:"/unauthorized"`
	RegistrationPath string `env:"REGISTRATION_PATH" envDefault:"/register"`

	// RoleClaimKey and NamespacedRoleClaimKey name the two role claims
	// tokens may carry. The namespaced key is checked first.
	RoleClaimKey           string `env:"ROLE_CLAIM_KEY" envDefault:"role"`
	NamespacedRoleClaimKey string `env:"NAMESPACED_ROLE_CLAIM_KEY" envDefault:"http://schemas.microsoft.com/ws/2008/06/identity/claims/role"`

	ValidationInterval time.Duration `env:"VALIDATION_INTERVAL" envDefault:"30s"`

	// RolesDSN, when set, points at the SQLite database holding role
	// records consulted at login.
	RolesDSN string `env:"ROLES_DSN"`

	Keys    KeysConfig    `envPrefix:"KEY_"`
	Storage StorageConfig `envPrefix:"STORAGE_"`
}

// KeysConfig renames the durable storage keys. Change them only when the
// client that shares the storage changes too.
type KeysConfig struct {
	Token  string `env:"TOKEN" envDefault:"token"`
	User   string `env:"USER" envDefault:"user"`
	RoleID string `env:"ROLE_ID" envDefault:"roleId"`
}

// Load reads .env (if any) and the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	return Parse()
}

// Parse reads the environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// Sanitize applies guardrails to values loaded from env.
func (c *Config) Sanitize() {
	c.LoginPath = sanitizePath(c.LoginPath, authclient.DefaultLoginPath)
	c.UnauthorizedPath = sanitizePath(c.UnauthorizedPath, authclient.DefaultUnauthorizedPath)
	c.RegistrationPath = sanitizePath(c.RegistrationPath, authclient.DefaultRegistrationPath)

	c.RoleClaimKey = strings.TrimSpace(c.RoleClaimKey)
	if c.RoleClaimKey == "" {
		c.RoleClaimKey = authclient.DefaultRoleClaimKey
	}
	c.NamespacedRoleClaimKey = strings.TrimSpace(c.NamespacedRoleClaimKey)
	if c.NamespacedRoleClaimKey == "" {
		c.NamespacedRoleClaimKey = authclient.DefaultNamespacedRoleClaimKey
	}

	if c.ValidationInterval <= 0 {
		c.ValidationInterval = authclient.DefaultValidationInterval
	} else if c.ValidationInterval < MinValidationInterval {
		c.ValidationInterval = MinValidationInterval
	}

	c.RolesDSN = strings.TrimSpace(c.RolesDSN)

	c.Keys.Token = strings.TrimSpace(c.Keys.Token)
	c.Keys.User = strings.TrimSpace(c.Keys.User)
	c.Keys.RoleID = strings.TrimSpace(c.Keys.RoleID)

	c.Storage.Sanitize()
}

// sanitizePath keeps only absolute local paths
func sanitizePath(path, fallback string) string {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return fallback
	}
	return path
}

func (c *Config) GetLoginPath() string                 { return c.LoginPath }
func (c *Config) GetUnauthorizedPath() string          { return c.UnauthorizedPath }
func (c *Config) GetRegistrationPath() string          { return c.RegistrationPath }
func (c *Config) GetRoleClaimKey() string              { return c.RoleClaimKey }
func (c *Config) GetNamespacedRoleClaimKey() string    { return c.NamespacedRoleClaimKey }
func (c *Config) GetValidationInterval() time.Duration { return c.ValidationInterval }

func (c *Config) GetStorageKeys() authclient.StorageKeys {
	return authclient.StorageKeys{
		Token:  c.Keys.Token,
		User:   c.Keys.User,
		RoleID: c.Keys.RoleID,
	}
}
