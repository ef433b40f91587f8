package authclient

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultRoleClaimKey is the short role claim key
	DefaultRoleClaimKey = "role"
	// DefaultNamespacedRoleClaimKey is the long role claim key emitted by the
	// issuing service. It wins over the short key when both are present.
	DefaultNamespacedRoleClaimKey = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
)

var (
	defaultSubjectClaimKeys = []string{
		"sub",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier",
		"nameid",
		"userId",
	}
	defaultEmailClaimKeys = []string{
		"email",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress",
	}
	defaultUsernameClaimKeys = []string{
		"unique_name",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name",
		"username",
		"name",
	}
)

// RoleClaim is the raw role claim, either a role name or a legacy code.
type RoleClaim struct {
	Name    string `json:"name,omitempty"`
	Code    int    `json:"code,omitempty"`
	Numeric bool   `json:"numeric,omitempty"`
}

// RoleClaimFromName builds a string role claim
func RoleClaimFromName(name string) RoleClaim {
	return RoleClaim{Name: name}
}

// RoleClaimFromCode builds a numeric role claim
func RoleClaimFromCode(code int) RoleClaim {
	return RoleClaim{Code: code, Numeric: true}
}

// IsZero reports an absent claim
func (c RoleClaim) IsZero() bool {
	return !c.Numeric && strings.TrimSpace(c.Name) == ""
}

// Value returns the claim as it appeared in the token: string or int.
func (c RoleClaim) Value() any {
	if c.Numeric {
		return c.Code
	}
	return c.Name
}

func (c RoleClaim) String() string {
	if c.Numeric {
		return strconv.Itoa(c.Code)
	}
	return c.Name
}

// Role maps the claim to a known role. Legacy codes and role names resolve
// to the same set.
func (c RoleClaim) Role() (Role, bool) {
	if c.Numeric {
		return RoleFromCode(c.Code)
	}
	return ParseRole(c.Name)
}

// Claims is the decoded token payload. A Claims value is never mutated after
// decoding.
type Claims struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email,omitempty"`
	Username  string    `json:"username,omitempty"`
	RoleClaim RoleClaim `json:"role"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp"`
}

// SubjectUUID parses the subject as a UUID
func (c *Claims) SubjectUUID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Expired reports whether now is at or past the expiry
func (c *Claims) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// DisplayName is the username, falling back to the email local part.
func (c *Claims) DisplayName() string {
	if c.Username != "" {
		return c.Username
	}
	if at := strings.Index(c.Email, "@"); at > 0 {
		return c.Email[:at]
	}
	return c.Email
}

// Validate checks the claims every session depends on. The email rule is
// the one Profile applies on restore.
func (c Claims) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Subject, validation.Required),
		validation.Field(&c.Email, is.Email),
		validation.Field(&c.RoleClaim, validation.By(requireRoleClaim)),
		validation.Field(&c.ExpiresAt, validation.By(requireTime)),
	)
}

func requireRoleClaim(value any) error {
	claim, ok := value.(RoleClaim)
	if !ok || claim.IsZero() {
		return errors.New("cannot be blank")
	}
	return nil
}

func requireTime(value any) error {
	t, ok := value.(time.Time)
	if !ok || t.IsZero() {
		return errors.New("cannot be blank")
	}
	return nil
}

// TokenDecoder turns an opaque bearer token into claims.
type TokenDecoder interface {
	Decode(token string) (*Claims, error)
}

// TokenDecoderFunc adapts a function into a TokenDecoder.
type TokenDecoderFunc func(token string) (*Claims, error)

// Decode satisfies TokenDecoder.
func (f TokenDecoderFunc) Decode(token string) (*Claims, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	return f(token)
}

// ClaimDecoder parses JWT payloads without verifying signatures. The
// issuing service owns verification; the client only needs the claims.
type ClaimDecoder struct {
	parser            *jwt.Parser
	roleClaimKey      string
	namespacedRoleKey string
	subjectKeys       []string
	emailKeys         []string
	usernameKeys      []string
}

var _ TokenDecoder = (*ClaimDecoder)(nil)

// DecoderOption customizes a ClaimDecoder.
type DecoderOption func(*ClaimDecoder)

// WithRoleClaimKeys overrides the short and namespaced role claim keys.
// Empty values keep the defaults.
func WithRoleClaimKeys(short, namespaced string) DecoderOption {
	return func(d *ClaimDecoder) {
		if short = strings.TrimSpace(short); short != "" {
			d.roleClaimKey = short
		}
		if namespaced = strings.TrimSpace(namespaced); namespaced != "" {
			d.namespacedRoleKey = namespaced
		}
	}
}

// WithSubjectClaimKeys overrides the ordered subject claim keys
func WithSubjectClaimKeys(keys ...string) DecoderOption {
	return func(d *ClaimDecoder) {
		if keys = uniqueKeys(keys...); len(keys) > 0 {
			d.subjectKeys = keys
		}
	}
}

// NewClaimDecoder returns a decoder using the default claim keys.
func NewClaimDecoder(opts ...DecoderOption) *ClaimDecoder {
	d := &ClaimDecoder{
		parser:            jwt.NewParser(),
		roleClaimKey:      DefaultRoleClaimKey,
		namespacedRoleKey: DefaultNamespacedRoleClaimKey,
		subjectKeys:       defaultSubjectClaimKeys,
		emailKeys:         defaultEmailClaimKeys,
		usernameKeys:      defaultUsernameClaimKeys,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// NewClaimDecoderFromConfig reads the role claim keys from cfg.
func NewClaimDecoderFromConfig(cfg Config, opts ...DecoderOption) *ClaimDecoder {
	if cfg != nil {
		opts = append([]DecoderOption{
			WithRoleClaimKeys(cfg.GetRoleClaimKey(), cfg.GetNamespacedRoleClaimKey()),
		}, opts...)
	}
	return NewClaimDecoder(opts...)
}

// DecodeClaims decodes token with the default decoder
func DecodeClaims(token string) (*Claims, error) {
	return NewClaimDecoder().Decode(token)
}

// RoleClaimKeys returns the role keys in precedence order
func (d *ClaimDecoder) RoleClaimKeys() []string {
	return uniqueKeys(d.namespacedRoleKey, d.roleClaimKey)
}

// Decode parses token. A missing expiry is an error: tokens never default to
// "never expires".
func (d *ClaimDecoder) Decode(token string) (*Claims, error) {
	token = NormalizeToken(token)
	if token == "" {
		return nil, withMetadata(ErrTokenMalformed, map[string]any{"reason": "empty token"})
	}

	raw := jwt.MapClaims{}
	if _, _, err := d.parser.ParseUnverified(token, raw); err != nil {
		return nil, wrapAs(ErrTokenMalformed, err, map[string]any{"cause": err.Error()})
	}

	exp, err := raw.GetExpirationTime()
	if err != nil {
		return nil, wrapAs(ErrTokenMalformed, err, map[string]any{"claim": "exp"})
	}

	iat, err := raw.GetIssuedAt()
	if err != nil {
		return nil, wrapAs(ErrTokenMalformed, err, map[string]any{"claim": "iat"})
	}

	claims := Claims{
		Subject:   firstString(raw, d.subjectKeys...),
		Email:     firstString(raw, d.emailKeys...),
		Username:  firstString(raw, d.usernameKeys...),
		RoleClaim: d.roleClaim(raw),
	}
	if exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat != nil {
		claims.IssuedAt = iat.Time
	}

	if err := claims.Validate(); err != nil {
		return nil, wrapAs(ErrMissingRequiredClaim, err, map[string]any{
			"fields": validationFields(err),
		})
	}

	return &claims, nil
}

// NormalizeToken trims whitespace and an optional "Bearer " scheme.
func NormalizeToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

// roleClaim returns the first usable role claim. A claim that is present but
// unusable is kept verbatim so it resolves to the fallback role instead of
// failing as missing.
func (d *ClaimDecoder) roleClaim(raw jwt.MapClaims) RoleClaim {
	var unusable RoleClaim
	for _, key := range d.RoleClaimKeys() {
		val, ok := raw[key]
		if !ok || val == nil {
			continue
		}
		if claim, ok := roleClaimFromAny(val); ok {
			return claim
		}
		if unusable.IsZero() {
			unusable = unrecognizedRoleClaim(val)
		}
	}
	return unusable
}

func unrecognizedRoleClaim(val any) RoleClaim {
	if _, ok := val.(string); ok {
		// blank strings count as absent
		return RoleClaim{}
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return RoleClaimFromName("unrecognized")
	}
	return RoleClaimFromName(string(raw))
}

func roleClaimFromAny(val any) (RoleClaim, bool) {
	switch typed := val.(type) {
	case string:
		if strings.TrimSpace(typed) == "" {
			return RoleClaim{}, false
		}
		return RoleClaimFromName(strings.TrimSpace(typed)), true
	case float64:
		if typed != math.Trunc(typed) {
			return RoleClaim{}, false
		}
		return RoleClaimFromCode(int(typed)), true
	case int:
		return RoleClaimFromCode(typed), true
	case int64:
		return RoleClaimFromCode(int(typed)), true
	case json.Number:
		code, err := typed.Int64()
		if err != nil {
			return RoleClaim{}, false
		}
		return RoleClaimFromCode(int(code)), true
	case []any:
		// multi-role tokens carry an array; the first usable entry wins
		for _, entry := range typed {
			if claim, ok := roleClaimFromAny(entry); ok {
				return claim, true
			}
		}
	}
	return RoleClaim{}, false
}

func firstString(raw jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if val, ok := raw[key]; ok {
			if str := stringFromAny(val); str != "" {
				return str
			}
		}
	}
	return ""
}

func stringFromAny(val any) string {
	switch typed := val.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case json.Number:
		return typed.String()
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	}
	return ""
}

func validationFields(err error) map[string]string {
	fields := map[string]string{}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				fields[field] = ferr.Error()
			}
		}
		return fields
	}
	if err != nil {
		fields["_"] = err.Error()
	}
	return fields
}

func uniqueKeys(values ...string) []string {
	seen := map[string]struct{}{}
	keys := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		keys = append(keys, value)
	}
	return keys
}
