package authclient

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultValidationInterval is used by Watch when no interval is given
const DefaultValidationInterval = 30 * time.Second

// SessionValidator checks sessions against the clock and clears the store
// when they are no longer usable.
type SessionValidator struct {
	store  *SessionStore
	now    func() time.Time
	logger Logger
	group  singleflight.Group
}

// ValidatorOption customizes a SessionValidator.
type ValidatorOption func(*SessionValidator)

// WithValidatorClock injects a custom clock (useful for tests).
func WithValidatorClock(clock func() time.Time) ValidatorOption {
	return func(v *SessionValidator) {
		if clock != nil {
			v.now = clock
		}
	}
}

// WithValidatorLogger overrides the logger
func WithValidatorLogger(logger Logger) ValidatorOption {
	return func(v *SessionValidator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewSessionValidator returns a validator bound to store. It uses the store
// clock unless one is given.
func NewSessionValidator(store *SessionStore, opts ...ValidatorOption) *SessionValidator {
	v := &SessionValidator{
		store: store,
		now:   store.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	if v.logger == nil {
		v.logger = store.loggerProvider.GetLogger("authclient.validator")
	}
	return v
}

// IsValid reports whether s carries a decoded token that has not expired at
// now. It has no side effects.
func (v *SessionValidator) IsValid(s Session, now time.Time) bool {
	if !s.IsAuthenticated() {
		return false
	}
	return !s.Expired(now)
}

// EnsureValid returns s unchanged when valid. Otherwise it clears the store,
// if the store still holds s, and returns the empty session. Concurrent
// calls for the same token share one clear, so listeners fire once.
func (v *SessionValidator) EnsureValid(ctx context.Context, s Session) Session {
	if v.IsValid(s, v.now()) {
		return s
	}

	if s.Token == "" {
		return EmptySession()
	}

	reason := LogoutReasonExpired
	if s.Claims == nil || s.ExpiresAt.IsZero() {
		reason = LogoutReasonInvalid
	}

	_, err, shared := v.group.Do(s.Token, func() (any, error) {
		cleared, err := v.store.expire(ctx, s.Token, reason)
		if cleared {
			v.logger.Debug("session invalidated", "reason", string(reason), "user_id", s.UserID())
		}
		return cleared, err
	})
	if err != nil {
		v.logger.Warn("unable to clear invalid session", "error", err, "shared", shared)
	}

	return EmptySession()
}

// EnsureCurrent validates the store's current session
func (v *SessionValidator) EnsureCurrent(ctx context.Context) Session {
	return v.EnsureValid(ctx, v.store.Current())
}

// Watch re-validates the current session every interval until ctx is done.
func (v *SessionValidator) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultValidationInterval
	}

	if err := v.store.AwaitRestore(ctx); err != nil {
		return err
	}
	v.EnsureCurrent(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			v.EnsureCurrent(ctx)
		}
	}
}
