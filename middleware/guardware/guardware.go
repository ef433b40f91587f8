// Package guardware runs the route guard in front of go-router handlers.
package guardware

import (
	"errors"
	"net/http"
	"strings"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-router"
)

// ErrTokenMissing is returned by extractors that find no token
var ErrTokenMissing = errors.New("missing or malformed token")

// DeniedHandler responds to a non Allowed decision.
type DeniedHandler func(ctx router.Context, decision authclient.Decision) error

type Config struct {
	// Filter skips the guard when it returns true
	Filter func(router.Context) bool
	Guard  *authclient.RouteGuard
	Policy authclient.Policy
	// PathExtractor returns the path recorded as the return path. Defaults
	// to the original request URL.
	PathExtractor func(router.Context) string
	// LocalsKey is where the allowed session is stored for handlers.
	LocalsKey string
	// NavigationKey, when set, also stores the navigation model for templates.
	NavigationKey string
	// TokenLookup names where a handoff token may be read from, e.g.
	// "query:auth_token,header:Authorization". When the store holds no
	// session and a token is found, it is used to log in before the check.
	// The login lands in the guard's SessionStore, which is process wide:
	// later requests without a token run as that principal. Only enable it
	// when the process serves a single principal, such as a local UI server.
	TokenLookup string
	AuthScheme  string
	// DeniedHandler defaults to a 302 redirect to the decision target.
	DeniedHandler DeniedHandler
	Logger        authclient.Logger
}

// New returns the guard middleware.
func New(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)
	extractors := GetExtractors(cfg.TokenLookup, cfg.AuthScheme)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return next(ctx)
			}

			reqCtx := ctx.Context()
			store := cfg.Guard.Store()

			if len(extractors) > 0 && !store.Current().IsAuthenticated() {
				if raw, err := ExtractToken(ctx, extractors); err == nil {
					if _, err := store.Login(reqCtx, raw); err != nil {
						cfg.Logger.Warn("handoff token rejected", "error", err)
					}
				}
			}

			decision := cfg.Guard.Check(reqCtx, cfg.PathExtractor(ctx), cfg.Policy)
			if !decision.Allowed() {
				return cfg.DeniedHandler(ctx, decision)
			}

			ctx.Locals(cfg.LocalsKey, decision.Session)
			if cfg.NavigationKey != "" {
				ctx.Locals(cfg.NavigationKey, authclient.NavigationFor(decision.Session))
			}
			ctx.SetContext(authclient.WithSessionContext(reqCtx, decision.Session))

			return next(ctx)
		}
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Guard == nil {
		panic("AUTHCLIENT: guard middleware configuration: Guard is required.")
	}

	if cfg.Policy.Name == "" && len(cfg.Policy.AllowedRoles) == 0 {
		cfg.Policy = authclient.AnyAuthenticated()
	}

	if cfg.PathExtractor == nil {
		cfg.PathExtractor = func(ctx router.Context) string {
			return ctx.OriginalURL()
		}
	}

	if cfg.LocalsKey == "" {
		cfg.LocalsKey = authclient.SessionLocalsKey
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.DeniedHandler == nil {
		cfg.DeniedHandler = RedirectDenied
	}

	if cfg.Logger == nil {
		cfg.Logger = authclient.NopLogger()
	}

	return cfg
}

// RedirectDenied sends a 302 to the decision target.
func RedirectDenied(ctx router.Context, decision authclient.Decision) error {
	return ctx.Redirect(decision.RedirectTo, http.StatusFound)
}

// StatusDenied answers with 401 or 403 instead of redirecting, for API
// endpoints.
func StatusDenied(ctx router.Context, decision authclient.Decision) error {
	status := http.StatusUnauthorized
	if decision.State == authclient.GuardRedirectUnauthorized {
		status = http.StatusForbidden
	}
	return ctx.Status(status).SendString(decision.Err().Error())
}

type TokenExtractor func(c router.Context) (string, error)

func ExtractToken(ctx router.Context, extractors []TokenExtractor) (string, error) {
	var raw string
	err := ErrTokenMissing

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

// GetExtractors parses a lookup like "header:Authorization,query:auth_token".
func GetExtractors(tokenLookup string, authScheme string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)
	if strings.TrimSpace(tokenLookup) == "" {
		return extractors
	}

	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}
		source, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

		switch source {
		case "header":
			extractors = append(extractors, tokenFromHeader(name, authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(name))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(name))
		}
	}

	return extractors
}

func tokenFromHeader(header string, authScheme string) TokenExtractor {
	authScheme = strings.TrimSpace(authScheme)
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrTokenMissing
	}
}

func tokenFromQuery(param string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}

func tokenFromCookie(name string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}
