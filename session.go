package authclient

import (
	"encoding/json"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Session is an immutable snapshot of the client session. Claims and
// ExpiresAt are set iff Token is set and decoded. A new Session replaces the
// old one on every change.
type Session struct {
	Token     string    `json:"token,omitempty"`
	Claims    *Claims   `json:"claims,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Role      Role      `json:"role"`
	Profile   Profile   `json:"profile,omitempty"`
}

// EmptySession is the unauthenticated session
func EmptySession() Session {
	return Session{Role: RoleGuest}
}

// IsAuthenticated reports whether the session carries a decoded token.
func (s Session) IsAuthenticated() bool {
	return s.Token != "" && s.Claims != nil
}

// Expired reports whether now is at or past the expiry. Sessions without an
// expiry are always expired.
func (s Session) Expired(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return true
	}
	return !now.Before(s.ExpiresAt)
}

// UserID returns the token subject
func (s Session) UserID() string {
	if s.Claims == nil {
		return ""
	}
	return s.Claims.Subject
}

// HasRole reports membership of the session role in roles.
func (s Session) HasRole(roles ...Role) bool {
	if !s.IsAuthenticated() {
		return false
	}
	for _, role := range roles {
		if role == s.Role {
			return true
		}
	}
	return false
}

// Profile is the user projection persisted next to the token. The JSON
// shape is read by other tabs and legacy consumers.
type Profile struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	UserID   string `json:"userId"`
	RoleID   int    `json:"roleId"`
	Role     string `json:"role"`
}

// NewProfile projects claims and the resolved role.
func NewProfile(claims *Claims, role Role) Profile {
	if claims == nil {
		return Profile{}
	}
	return Profile{
		Email:    claims.Email,
		Username: claims.DisplayName(),
		UserID:   claims.Subject,
		RoleID:   role.Code(),
		Role:     role.String(),
	}
}

// Validate checks a profile read back from storage
func (p Profile) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.UserID, validation.Required),
		validation.Field(&p.Email, is.Email),
		validation.Field(&p.Role, validation.Required),
	)
}

// Marshal encodes the profile for storage.
func (p Profile) Marshal() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ParseProfile decodes a stored profile and validates it.
func ParseProfile(raw string) (Profile, error) {
	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Profile{}, err
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}
