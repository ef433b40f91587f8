package authclient

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// GuardState is the state of a single navigation attempt.
type GuardState int

const (
	GuardUnchecked GuardState = iota
	GuardChecking
	GuardAllowed
	GuardRedirectLogin
	GuardRedirectUnauthorized
)

func (s GuardState) String() string {
	switch s {
	case GuardUnchecked:
		return "unchecked"
	case GuardChecking:
		return "checking"
	case GuardAllowed:
		return "allowed"
	case GuardRedirectLogin:
		return "redirect_login"
	case GuardRedirectUnauthorized:
		return "redirect_unauthorized"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition can happen.
func (s GuardState) IsTerminal() bool {
	return s == GuardAllowed || s == GuardRedirectLogin || s == GuardRedirectUnauthorized
}

// Policy is a per-route requirement declared by the route owner. An empty
// AllowedRoles admits any authenticated principal. Empty redirects use the
// guard defaults.
type Policy struct {
	Name                    string
	AllowedRoles            []Role
	UnauthenticatedRedirect string
	UnauthorizedRedirect    string
}

// AnyAuthenticated admits every authenticated principal
func AnyAuthenticated() Policy {
	return Policy{Name: "authenticated"}
}

// RequireRoles admits only the given roles
func RequireRoles(roles ...Role) Policy {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.String())
	}
	return Policy{
		Name:         "roles:" + strings.Join(names, ","),
		AllowedRoles: append([]Role(nil), roles...),
	}
}

// SponsorRegistrationPolicy guards the sponsor self-registration flow: only
// students may start it and anonymous visitors are sent to registration
// instead of login.
func SponsorRegistrationPolicy(registrationPath string) Policy {
	return Policy{
		Name:                    "sponsor_registration",
		AllowedRoles:            []Role{RoleStudent},
		UnauthenticatedRedirect: registrationPath,
	}
}

// Allows reports whether role satisfies the policy
func (p Policy) Allows(role Role) bool {
	if !role.IsAuthenticatedRole() {
		return false
	}
	if len(p.AllowedRoles) == 0 {
		return true
	}
	for _, allowed := range p.AllowedRoles {
		if allowed == role {
			return true
		}
	}
	return false
}

// Decision is the terminal outcome of a guard check.
type Decision struct {
	State      GuardState
	RedirectTo string
	ReturnTo   string
	Role       Role
	Session    Session
}

// Allowed reports whether the route content may be constructed
func (d Decision) Allowed() bool {
	return d.State == GuardAllowed
}

// Err returns the error form of a redirect decision, nil when allowed.
func (d Decision) Err() error {
	switch d.State {
	case GuardAllowed:
		return nil
	case GuardRedirectUnauthorized:
		return withMetadata(ErrUnauthorizedRoute, map[string]any{
			"role":        d.Role.String(),
			"redirect_to": d.RedirectTo,
		})
	default:
		return withMetadata(ErrSessionNotFound, map[string]any{
			"redirect_to": d.RedirectTo,
			"return_to":   d.ReturnTo,
		})
	}
}

// GuardTransition describes one state change of a navigation attempt.
type GuardTransition struct {
	From   GuardState
	To     GuardState
	Path   string
	Policy string
	At     time.Time
}

// GuardHook observes guard transitions
type GuardHook func(ctx context.Context, transition GuardTransition)

// RouteGuard runs the Unchecked, Checking, terminal state machine for every
// navigation attempt. One guard serves every policy.
type RouteGuard struct {
	store            *SessionStore
	validator        *SessionValidator
	loginPath        string
	unauthorizedPath string
	hooks            []GuardHook
	logger           Logger
	activity         ActivitySink
}

// GuardOption customizes a RouteGuard.
type GuardOption func(*RouteGuard)

// WithGuardConfig reads the login and unauthorized paths from cfg.
func WithGuardConfig(cfg Config) GuardOption {
	return func(g *RouteGuard) {
		if cfg == nil {
			return
		}
		if path := cfg.GetLoginPath(); path != "" {
			g.loginPath = path
		}
		if path := cfg.GetUnauthorizedPath(); path != "" {
			g.unauthorizedPath = path
		}
	}
}

// WithLoginPath overrides the login route
func WithLoginPath(path string) GuardOption {
	return func(g *RouteGuard) {
		if path != "" {
			g.loginPath = path
		}
	}
}

// WithUnauthorizedPath overrides the unauthorized route
func WithUnauthorizedPath(path string) GuardOption {
	return func(g *RouteGuard) {
		if path != "" {
			g.unauthorizedPath = path
		}
	}
}

// WithGuardHook registers a transition observer
func WithGuardHook(hook GuardHook) GuardOption {
	return func(g *RouteGuard) {
		if hook != nil {
			g.hooks = append(g.hooks, hook)
		}
	}
}

// WithGuardLogger overrides the logger
func WithGuardLogger(logger Logger) GuardOption {
	return func(g *RouteGuard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGuardActivitySink records route denials
func WithGuardActivitySink(sink ActivitySink) GuardOption {
	return func(g *RouteGuard) {
		g.activity = normalizeActivitySink(sink)
	}
}

// NewRouteGuard returns a guard over store. A nil validator gets one bound
// to store.
func NewRouteGuard(store *SessionStore, validator *SessionValidator, opts ...GuardOption) *RouteGuard {
	if validator == nil {
		validator = NewSessionValidator(store)
	}

	g := &RouteGuard{
		store:            store,
		validator:        validator,
		loginPath:        DefaultLoginPath,
		unauthorizedPath: DefaultUnauthorizedPath,
		activity:         noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	if g.logger == nil {
		g.logger = store.loggerProvider.GetLogger("authclient.guard")
	}

	return g
}

// Store returns the session store the guard reads
func (g *RouteGuard) Store() *SessionStore {
	return g.store
}

// LoginPath returns the configured login route
func (g *RouteGuard) LoginPath() string {
	return g.loginPath
}

// UnauthorizedPath returns the configured unauthorized route
func (g *RouteGuard) UnauthorizedPath() string {
	return g.unauthorizedPath
}

// Check decides whether the principal may see path under policy. It waits
// for the store to be restored; a cancelled wait redirects to login.
func (g *RouteGuard) Check(ctx context.Context, path string, policy Policy) Decision {
	run := guardRun{guard: g, path: path, policy: policy, state: GuardUnchecked}
	run.transition(ctx, GuardChecking)

	returnTo := SafeReturnPath(path)

	if err := g.store.AwaitRestore(ctx); err != nil {
		g.logger.Debug("guard gave up waiting for restore", "path", path, "error", err)
		return run.finish(ctx, Decision{
			State:      GuardRedirectLogin,
			RedirectTo: g.unauthenticatedTarget(policy, returnTo),
			ReturnTo:   returnTo,
			Role:       RoleGuest,
			Session:    EmptySession(),
		})
	}

	session := g.validator.EnsureCurrent(ctx)

	if !session.IsAuthenticated() {
		return run.finish(ctx, Decision{
			State:      GuardRedirectLogin,
			RedirectTo: g.unauthenticatedTarget(policy, returnTo),
			ReturnTo:   returnTo,
			Role:       RoleGuest,
			Session:    session,
		})
	}

	if !policy.Allows(session.Role) {
		target := policy.UnauthorizedRedirect
		if target == "" {
			target = g.unauthorizedPath
		}

		g.logger.Info("route denied", "path", path, "role", session.Role.String(), "policy", policy.Name)
		recordActivity(ctx, g.activity, g.logger, ActivityEvent{
			EventType:  ActivityEventRouteDenied,
			UserID:     session.UserID(),
			Role:       session.Role,
			Path:       path,
			OccurredAt: g.store.Now(),
			Metadata:   map[string]any{"policy": policy.Name},
		})

		return run.finish(ctx, Decision{
			State:      GuardRedirectUnauthorized,
			RedirectTo: target,
			Role:       session.Role,
			Session:    session,
		})
	}

	return run.finish(ctx, Decision{
		State:   GuardAllowed,
		Role:    session.Role,
		Session: session,
	})
}

func (g *RouteGuard) unauthenticatedTarget(policy Policy, returnTo string) string {
	target := policy.UnauthenticatedRedirect
	if target == "" {
		target = g.loginPath
	}
	return LoginURL(target, returnTo)
}

type guardRun struct {
	guard  *RouteGuard
	path   string
	policy Policy
	state  GuardState
}

func (r *guardRun) transition(ctx context.Context, to GuardState) {
	from := r.state
	r.state = to
	if len(r.guard.hooks) == 0 {
		return
	}
	tr := GuardTransition{
		From:   from,
		To:     to,
		Path:   r.path,
		Policy: r.policy.Name,
		At:     r.guard.store.Now(),
	}
	for _, hook := range r.guard.hooks {
		hook(ctx, tr)
	}
}

func (r *guardRun) finish(ctx context.Context, d Decision) Decision {
	r.transition(ctx, d.State)
	return d
}

// Guarded runs build only when the guard allows path. Denied attempts
// return the zero value and never call build.
func Guarded[T any](ctx context.Context, guard *RouteGuard, path string, policy Policy, build func(ctx context.Context, session Session) (T, error)) (T, Decision, error) {
	var zero T
	decision := guard.Check(ctx, path, policy)
	if !decision.Allowed() || build == nil {
		return zero, decision, nil
	}
	content, err := build(WithSessionContext(ctx, decision.Session), decision.Session)
	if err != nil {
		return zero, decision, err
	}
	return content, decision, nil
}

// RedirectQueryParam carries the return path on login redirects
const RedirectQueryParam = "redirect"

// LoginURL appends returnTo to target as the redirect query parameter.
func LoginURL(target, returnTo string) string {
	if returnTo == "" {
		return target
	}
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set(RedirectQueryParam, returnTo)
	u.RawQuery = q.Encode()
	return u.String()
}

// SafeReturnPath accepts only same-origin absolute paths, so a return path
// cannot be used as an open redirect. Anything else yields "".
func SafeReturnPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || !strings.HasPrefix(path, "/") {
		return ""
	}
	if strings.HasPrefix(path, "//") || strings.Contains(path, `\`) {
		return ""
	}
	u, err := url.Parse(path)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return u.RequestURI()
}
