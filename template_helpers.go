package authclient

import (
	"strings"

	"github.com/goliatone/go-router"
)

var TemplateSessionKey = "current_session"

// TemplateHelpers returns a map of helper functions and data that can be used
// with go-template's WithGlobalData option to render role scoped navigation.
//
// Usage:
//
//	renderer, err := template.NewRenderer(
//	    template.WithBaseDir("./templates"),
//	    template.WithGlobalData(authclient.TemplateHelpers()),
//	)
//
// In templates, you can then use:
//
//	{% if current_session|is_authenticated %}
//	{% if current_session|has_role:"Admin" %}
//	{% for entry in current_session|menu_for %}
//	{% if current_session|show_sponsor_banner %}
func TemplateHelpers() map[string]any {
	roles := map[string]int{}
	for _, role := range GetAllRoles() {
		roles[strings.ToLower(role.String())] = role.Code()
	}

	return map[string]any{
		"is_authenticated":    isAuthenticated,
		"has_role":            hasRole,
		"menu_for":            menuFor,
		"top_bar_for":         topBarFor,
		"show_sponsor_banner": showSponsorBanner,
		"landing_path":        landingPath,
		"roles":               roles,
	}
}

// TemplateHelpersWithSession returns template helpers with session set as
// current_session.
func TemplateHelpersWithSession(session Session) map[string]any {
	helpers := TemplateHelpers()
	helpers[TemplateSessionKey] = session
	return helpers
}

// TemplateHelpersWithRouter returns template helpers with the session the
// guard middleware stored in the router context. Requests without one get
// the empty session so templates always render the guest navigation.
func TemplateHelpersWithRouter(ctx router.Context, sessionKey string) map[string]any {
	session, ok := GetRouterSession(ctx, sessionKey)
	if !ok {
		session = EmptySession()
	}
	return TemplateHelpersWithSession(session)
}

func sessionFromAny(value any) (Session, bool) {
	switch v := value.(type) {
	case Session:
		return v, true
	case *Session:
		if v != nil {
			return *v, true
		}
	}
	return EmptySession(), false
}

// roleFromAny accepts a session, a Role or a role name. Anything else is
// treated as a guest.
func roleFromAny(value any) (Role, bool) {
	switch v := value.(type) {
	case Role:
		return v, v.IsAuthenticatedRole()
	case string:
		role, ok := ParseRole(v)
		if !ok {
			return RoleGuest, false
		}
		return role, role.IsAuthenticatedRole()
	}
	if session, ok := sessionFromAny(value); ok {
		if !session.IsAuthenticated() {
			return RoleGuest, false
		}
		return session.Role, true
	}
	return RoleGuest, false
}

func isAuthenticated(value any) bool {
	_, authenticated := roleFromAny(value)
	return authenticated
}

func hasRole(value any, role string) bool {
	current, authenticated := roleFromAny(value)
	if !authenticated {
		return false
	}
	target, ok := ParseRole(role)
	return ok && target == current
}

func menuFor(value any) []MenuEntry {
	role, authenticated := roleFromAny(value)
	return MenuFor(role, authenticated)
}

func topBarFor(value any) []MenuEntry {
	role, authenticated := roleFromAny(value)
	return TopBar(role, authenticated)
}

func showSponsorBanner(value any) bool {
	role, _ := roleFromAny(value)
	return ShowSponsorBanner(role)
}

func landingPath(value any) string {
	role, authenticated := roleFromAny(value)
	if !authenticated {
		return RoleGuest.LandingPath()
	}
	return role.LandingPath()
}
