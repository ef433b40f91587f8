package authclient_test

import (
	"testing"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input    string
		expected authclient.Role
		ok       bool
	}{
		{"Admin", authclient.RoleAdmin, true},
		{"admin", authclient.RoleAdmin, true},
		{"ADMINISTRATOR", authclient.RoleAdmin, true},
		{"Student", authclient.RoleStudent, true},
		{"sponsor", authclient.RoleSponsor, true},
		{"Staff", authclient.RoleStaff, true},
		{"Manager", authclient.RoleManager, true},
		{"shop_owner", authclient.RoleShop, true},
		{"1", authclient.RoleAdmin, true},
		{"6", authclient.RoleShop, true},
		{" 2 ", authclient.RoleStudent, true},
		{"0", authclient.RoleGuest, true},
		{"99", authclient.RoleUnknown, false},
		{"superuser", authclient.RoleUnknown, false},
		{"", authclient.RoleUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			role, ok := authclient.ParseRole(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, role)
		})
	}
}

func TestRole_Definition(t *testing.T) {
	for _, role := range authclient.GetAllRoles() {
		t.Run(role.String(), func(t *testing.T) {
			assert.True(t, role.IsKnown())
			assert.NotEmpty(t, role.Label())
			assert.NotEmpty(t, role.LandingPath())

			fromCode, ok := authclient.RoleFromCode(role.Code())
			assert.True(t, ok)
			assert.Equal(t, role, fromCode)

			byName, ok := authclient.ParseRole(role.String())
			assert.True(t, ok)
			assert.Equal(t, role, byName)
		})
	}

	assert.Equal(t, "/admin/dashboard", authclient.RoleAdmin.LandingPath())
	assert.Equal(t, "/", authclient.RoleGuest.LandingPath())
	assert.False(t, authclient.RoleGuest.IsAuthenticatedRole())
}

func TestRole_UnknownBorrowsStudentDefaults(t *testing.T) {
	unknown := authclient.RoleUnknown

	assert.False(t, unknown.IsKnown())
	assert.True(t, unknown.IsAuthenticatedRole())
	assert.Equal(t, "Unknown", unknown.String())
	assert.Equal(t, -1, unknown.Code())
	assert.Equal(t, authclient.RoleStudent.LandingPath(), unknown.LandingPath())
	assert.Equal(t, authclient.RoleStudent.Label(), unknown.Label())

	_, ok := authclient.RoleFromCode(unknown.Code())
	assert.False(t, ok)

	outOfRange := authclient.Role(42)
	assert.Equal(t, authclient.RoleStudent.LandingPath(), outOfRange.LandingPath())
}

func TestRoleResolver_Resolve(t *testing.T) {
	resolver := authclient.NewRoleResolver(authclient.WithResolverLogger(authclient.NopLogger()))

	tests := []struct {
		name     string
		claim    authclient.RoleClaim
		expected authclient.Role
	}{
		{"string admin", authclient.RoleClaimFromName("Admin"), authclient.RoleAdmin},
		{"legacy code admin", authclient.RoleClaimFromCode(1), authclient.RoleAdmin},
		{"string and code agree", authclient.RoleClaimFromName("3"), authclient.RoleSponsor},
		{"string student", authclient.RoleClaimFromName("student"), authclient.RoleStudent},
		{"unknown name", authclient.RoleClaimFromName("root"), authclient.RoleUnknown},
		{"unknown code", authclient.RoleClaimFromCode(77), authclient.RoleUnknown},
		{"negative code", authclient.RoleClaimFromCode(-1), authclient.RoleUnknown},
		{"guest code is not a token role", authclient.RoleClaimFromCode(0), authclient.RoleUnknown},
		{"guest name is not a token role", authclient.RoleClaimFromName("Guest"), authclient.RoleUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := &authclient.Claims{Subject: testSubject, RoleClaim: tt.claim}
			assert.Equal(t, tt.expected, resolver.Resolve(claims))
		})
	}

	assert.Equal(t, authclient.RoleGuest, resolver.Resolve(nil))
}

func TestRoleResolver_FailsClosed(t *testing.T) {
	privileged := []authclient.Role{authclient.RoleAdmin, authclient.RoleStaff, authclient.RoleManager}
	claims := []authclient.RoleClaim{
		authclient.RoleClaimFromName("administrators"),
		authclient.RoleClaimFromName("Admin,Staff"),
		authclient.RoleClaimFromName("manager-ish"),
		authclient.RoleClaimFromName("staff\u0000"),
		authclient.RoleClaimFromCode(100),
		authclient.RoleClaimFromCode(-4),
	}

	resolvers := map[string]*authclient.RoleResolver{
		"default":          authclient.NewRoleResolver(authclient.WithResolverLogger(authclient.NopLogger())),
		"student fallback": authclient.NewRoleResolver(authclient.WithFallbackRole(authclient.RoleStudent), authclient.WithResolverLogger(authclient.NopLogger())),
		"admin fallback is ignored": authclient.NewRoleResolver(authclient.WithFallbackRole(authclient.RoleAdmin), authclient.WithResolverLogger(authclient.NopLogger())),
	}

	for name, resolver := range resolvers {
		t.Run(name, func(t *testing.T) {
			for _, claim := range claims {
				role := resolver.Resolve(&authclient.Claims{Subject: testSubject, RoleClaim: claim})
				assert.NotContains(t, privileged, role, "claim %q", claim.String())
				assert.Contains(t, []authclient.Role{authclient.RoleUnknown, authclient.RoleStudent}, role)
			}
		})
	}
}
