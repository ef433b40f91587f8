package authclient

import "time"

const (
	DefaultLoginPath        = "/login"
	DefaultUnauthorizedPath = "/unauthorized"
	DefaultRegistrationPath = "/register"
	DefaultLogoutPath       = "/logout"
)

var _ Config = StaticConfig{}

// StaticConfig is a plain value Config
type StaticConfig struct {
	LoginPath              string
	UnauthorizedPath       string
	RegistrationPath       string
	RoleClaimKey           string
	NamespacedRoleClaimKey string
	ValidationInterval     time.Duration
	StorageKeys            StorageKeys
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() StaticConfig {
	return StaticConfig{
		LoginPath:              DefaultLoginPath,
		UnauthorizedPath:       DefaultUnauthorizedPath,
		RegistrationPath:       DefaultRegistrationPath,
		RoleClaimKey:           DefaultRoleClaimKey,
		NamespacedRoleClaimKey: DefaultNamespacedRoleClaimKey,
		ValidationInterval:     DefaultValidationInterval,
		StorageKeys:            DefaultStorageKeys(),
	}
}

func (c StaticConfig) GetLoginPath() string                 { return c.LoginPath }
func (c StaticConfig) GetUnauthorizedPath() string          { return c.UnauthorizedPath }
func (c StaticConfig) GetRegistrationPath() string          { return c.RegistrationPath }
func (c StaticConfig) GetRoleClaimKey() string              { return c.RoleClaimKey }
func (c StaticConfig) GetNamespacedRoleClaimKey() string    { return c.NamespacedRoleClaimKey }
func (c StaticConfig) GetValidationInterval() time.Duration { return c.ValidationInterval }
func (c StaticConfig) GetStorageKeys() StorageKeys          { return c.StorageKeys }
