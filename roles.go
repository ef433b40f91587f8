package authclient

import (
	"strconv"
	"strings"
)

// Role is the closed set of principals the client knows how to route.
type Role int

const (
	// RoleGuest is the unauthenticated principal
	RoleGuest Role = iota
	// RoleAdmin manages accounts and the whole catalogue
	RoleAdmin
	// RoleStudent borrows laptops
	RoleStudent
	// RoleSponsor donates laptops and funds students
	RoleSponsor
	// RoleStaff works the inventory and request queues
	RoleStaff
	// RoleManager approves requests and reads reports
	RoleManager
	// RoleShop sells refurbished laptops
	RoleShop
	// RoleUnknown is an authenticated principal whose role claim matched
	// nothing. It gets the Student landing page and menu but is a member of
	// no policy, so every role-restricted route rejects it.
	RoleUnknown
)

// RoleDefinition is the static data each role carries.
type RoleDefinition struct {
	Role    Role
	Name    string
	Code    int
	Label   string
	Landing string
}

var roleTable = map[Role]RoleDefinition{
	RoleGuest:   {Role: RoleGuest, Name: "Guest", Code: 0, Label: "Guest", Landing: "/"},
	RoleAdmin:   {Role: RoleAdmin, Name: "Admin", Code: 1, Label: "Administrator", Landing: "/admin/dashboard"},
	RoleStudent: {Role: RoleStudent, Name: "Student", Code: 2, Label: "Student", Landing: "/student/profile"},
	RoleSponsor: {Role: RoleSponsor, Name: "Sponsor", Code: 3, Label: "Sponsor", Landing: "/sponsor/profile"},
	RoleStaff:   {Role: RoleStaff, Name: "Staff", Code: 4, Label: "Staff", Landing: "/staff/requests"},
	RoleManager: {Role: RoleManager, Name: "Manager", Code: 5, Label: "Manager", Landing: "/manager/approvals"},
	RoleShop:    {Role: RoleShop, Name: "Shop", Code: 6, Label: "Shop", Landing: "/shop/orders"},
}

// unknownRoleCode is persisted for RoleUnknown. It never maps back to a
// known role.
const unknownRoleCode = -1

var roleAliases = map[string]Role{
	"administrator": RoleAdmin,
	"shopowner":     RoleShop,
	"shop_owner":    RoleShop,
}

// Definition returns the static role data. RoleUnknown, and any value outside
// the enum, borrows the Student landing page and keeps its own name.
func (r Role) Definition() RoleDefinition {
	if def, ok := roleTable[r]; ok {
		return def
	}
	student := roleTable[RoleStudent]
	return RoleDefinition{
		Role:    RoleUnknown,
		Name:    "Unknown",
		Code:    unknownRoleCode,
		Label:   student.Label,
		Landing: student.Landing,
	}
}

// String returns the canonical role name
func (r Role) String() string {
	return r.Definition().Name
}

// Code returns the legacy numeric role code
func (r Role) Code() int {
	return r.Definition().Code
}

// Label is the display label
func (r Role) Label() string {
	return r.Definition().Label
}

// LandingPath is where a freshly logged-in principal is sent
func (r Role) LandingPath() string {
	return r.Definition().Landing
}

// IsKnown reports whether the role is one of the seven named variants.
func (r Role) IsKnown() bool {
	_, ok := roleTable[r]
	return ok
}

// IsAuthenticatedRole reports roles that can only be held with a token.
func (r Role) IsAuthenticatedRole() bool {
	return r != RoleGuest
}

// GetAllRoles returns the named roles in declaration order
func GetAllRoles() []Role {
	return []Role{
		RoleGuest,
		RoleAdmin,
		RoleStudent,
		RoleSponsor,
		RoleStaff,
		RoleManager,
		RoleShop,
	}
}

// RoleFromCode maps a legacy numeric code.
func RoleFromCode(code int) (Role, bool) {
	for role, def := range roleTable {
		if def.Code == code {
			return role, true
		}
	}
	return RoleUnknown, false
}

// ParseRole maps a role name, case-insensitively. Numeric strings are
// treated as legacy codes.
func ParseRole(name string) (Role, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return RoleUnknown, false
	}

	if code, err := strconv.Atoi(name); err == nil {
		return RoleFromCode(code)
	}

	lower := strings.ToLower(name)
	for role, def := range roleTable {
		if strings.ToLower(def.Name) == lower {
			return role, true
		}
	}

	if role, ok := roleAliases[lower]; ok {
		return role, true
	}

	return RoleUnknown, false
}

// RoleResolver maps claims to a Role. Unrecognized role claims never fail:
// they resolve to the configured fallback.
type RoleResolver struct {
	fallback Role
	logger   Logger
}

// RoleResolverOption customizes a RoleResolver.
type RoleResolverOption func(*RoleResolver)

// WithResolverLogger sets the logger used to report unrecognized claims.
func WithResolverLogger(logger Logger) RoleResolverOption {
	return func(r *RoleResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFallbackRole overrides the role given to unrecognized claims. Only
// unprivileged roles are accepted; anything else keeps RoleUnknown.
func WithFallbackRole(role Role) RoleResolverOption {
	return func(r *RoleResolver) {
		if isUnprivileged(role) {
			r.fallback = role
		}
	}
}

// NewRoleResolver returns a resolver that fails closed to RoleUnknown.
func NewRoleResolver(opts ...RoleResolverOption) *RoleResolver {
	r := &RoleResolver{
		fallback: RoleUnknown,
		logger:   defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Resolve maps the role claim of claims. Nil claims resolve to RoleGuest.
func (r *RoleResolver) Resolve(claims *Claims) Role {
	if claims == nil {
		return RoleGuest
	}

	role, ok := claims.RoleClaim.Role()
	if ok && role != RoleGuest {
		return role
	}

	r.logger.Debug("role claim not recognized, using fallback",
		"role_claim", claims.RoleClaim.String(),
		"fallback", r.fallback.String(),
	)
	return r.fallback
}

func isUnprivileged(role Role) bool {
	switch role {
	case RoleUnknown, RoleStudent:
		return true
	default:
		return false
	}
}
