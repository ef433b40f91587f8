package authclient

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/goliatone/go-auth-client/storage"
	"github.com/goliatone/go-print"
)

// LogoutReason tells listeners why a session ended
type LogoutReason string

const (
	LogoutReasonUser    LogoutReason = "user"
	LogoutReasonExpired LogoutReason = "expired"
	LogoutReasonInvalid LogoutReason = "invalid"
)

// LogoutEvent is delivered once per authenticated to empty transition.
type LogoutEvent struct {
	Reason     LogoutReason
	Previous   Session
	OccurredAt time.Time
}

// LogoutListener is notified after the session has been cleared. The route
// layer uses it to redirect to the login route.
type LogoutListener func(ctx context.Context, event LogoutEvent)

// SessionStore owns the current Session and its durable mirror. It is the
// only component that writes session keys to storage.
type SessionStore struct {
	mu      sync.RWMutex
	session Session

	// writeMu orders mutations; mu only guards the snapshot so reads never
	// wait on storage I/O.
	writeMu sync.Mutex

	storage        Storage
	decoder        TokenDecoder
	resolver       *RoleResolver
	lookup         RoleLookup
	keys           StorageKeys
	now            func() time.Time
	logger         Logger
	loggerProvider LoggerProvider
	activity       ActivitySink

	listenersMu sync.RWMutex
	listeners   []LogoutListener

	restored    chan struct{}
	restoreOnce sync.Once
}

// StoreOption customizes a SessionStore.
type StoreOption func(*SessionStore)

// WithStoreConfig applies storage keys and role claim keys from cfg.
func WithStoreConfig(cfg Config) StoreOption {
	return func(s *SessionStore) {
		if cfg == nil {
			return
		}
		s.keys = cfg.GetStorageKeys().withDefaults()
		s.decoder = NewClaimDecoderFromConfig(cfg)
	}
}

// WithStoreDecoder overrides the claim decoder
func WithStoreDecoder(decoder TokenDecoder) StoreOption {
	return func(s *SessionStore) {
		if decoder != nil {
			s.decoder = decoder
		}
	}
}

// WithStoreResolver overrides the role resolver
func WithStoreResolver(resolver *RoleResolver) StoreOption {
	return func(s *SessionStore) {
		if resolver != nil {
			s.resolver = resolver
		}
	}
}

// WithRoleLookup makes Login await lookup before committing a session.
func WithRoleLookup(lookup RoleLookup) StoreOption {
	return func(s *SessionStore) {
		s.lookup = lookup
	}
}

// WithStorageKeys overrides the durable key names
func WithStorageKeys(keys StorageKeys) StoreOption {
	return func(s *SessionStore) {
		s.keys = keys.withDefaults()
	}
}

// WithStoreClock injects a custom clock (useful for tests).
func WithStoreClock(clock func() time.Time) StoreOption {
	return func(s *SessionStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithStoreLogger overrides the logger
func WithStoreLogger(logger Logger) StoreOption {
	return func(s *SessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStoreLoggerProvider sets the provider used to name component loggers.
func WithStoreLoggerProvider(provider LoggerProvider) StoreOption {
	return func(s *SessionStore) {
		if provider != nil {
			s.loggerProvider = provider
		}
	}
}

// WithStoreActivitySink sets the ActivitySink used to publish session events.
func WithStoreActivitySink(sink ActivitySink) StoreOption {
	return func(s *SessionStore) {
		s.activity = normalizeActivitySink(sink)
	}
}

// NewSessionStore returns an empty, not yet restored store. A nil backend
// falls back to process memory.
func NewSessionStore(backend Storage, opts ...StoreOption) *SessionStore {
	if backend == nil {
		backend = storage.NewMemory()
	}

	s := &SessionStore{
		session:  EmptySession(),
		storage:  backend,
		decoder:  NewClaimDecoder(),
		keys:     DefaultStorageKeys(),
		now:      time.Now,
		activity: noopActivitySink{},
		restored: make(chan struct{}),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.loggerProvider, s.logger = ResolveLogger("authclient.store", s.loggerProvider, s.logger)
	if s.resolver == nil {
		s.resolver = NewRoleResolver(WithResolverLogger(s.loggerProvider.GetLogger("authclient.roles")))
	}

	return s
}

// Keys returns the durable key names
func (s *SessionStore) Keys() StorageKeys {
	return s.keys
}

// Now returns the store clock reading
func (s *SessionStore) Now() time.Time {
	return s.now()
}

// Current returns the session snapshot
func (s *SessionStore) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// OnLogout registers listener for authenticated to empty transitions.
func (s *SessionStore) OnLogout(listener LogoutListener) {
	if listener == nil {
		return
	}
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// Ready is closed once the first restore, login or logout completes.
func (s *SessionStore) Ready() <-chan struct{} {
	return s.restored
}

// AwaitRestore blocks until Ready is closed or ctx is done.
func (s *SessionStore) AwaitRestore(ctx context.Context) error {
	select {
	case <-s.restored:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Login decodes token, resolves its role and commits the session. Nothing is
// written to storage unless every step succeeds.
func (s *SessionStore) Login(ctx context.Context, token string) (Session, error) {
	token = NormalizeToken(token)

	claims, err := s.decoder.Decode(token)
	if err != nil {
		s.logger.Debug("login rejected, token could not be decoded", "error", err)
		s.recordLoginFailure(ctx, "", err)
		return EmptySession(), err
	}

	if claims.Expired(s.now()) {
		err := withMetadata(ErrTokenExpired, map[string]any{
			"expired_at": claims.ExpiresAt,
		})
		s.recordLoginFailure(ctx, claims.Subject, err)
		return EmptySession(), err
	}

	role, err := s.roleFor(ctx, claims)
	if err != nil {
		s.logger.Warn("login aborted, role lookup failed", "user_id", claims.Subject, "error", err)
		s.recordLoginFailure(ctx, claims.Subject, err)
		return EmptySession(), err
	}

	next := Session{
		Token:     token,
		Claims:    claims,
		ExpiresAt: claims.ExpiresAt,
		Role:      role,
		Profile:   NewProfile(claims, role),
	}

	s.writeMu.Lock()
	err = s.persist(ctx, next)
	if err != nil {
		prev := s.swap(EmptySession())
		s.writeMu.Unlock()
		s.markReady()
		s.notifyLogout(ctx, prev, LogoutReasonInvalid)
		s.recordLoginFailure(ctx, claims.Subject, err)
		return EmptySession(), err
	}
	s.swap(next)
	s.writeMu.Unlock()
	s.markReady()

	s.logger.Info("session established",
		"user_id", claims.Subject,
		"role", role.String(),
		"expires_at", claims.ExpiresAt.Format(time.RFC3339),
	)
	recordActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType:  ActivityEventLoginSuccess,
		UserID:     claims.Subject,
		Role:       role,
		OccurredAt: s.now(),
		Metadata: map[string]any{
			"expires_at": claims.ExpiresAt,
		},
	})

	return next, nil
}

// Logout clears the session keys and nothing else. Calling it on an empty
// session only re-deletes absent keys.
func (s *SessionStore) Logout(ctx context.Context) error {
	return s.clear(ctx, "", LogoutReasonUser)
}

// Restore rebuilds the session from storage. Any inconsistency clears the
// session keys and yields the empty session.
func (s *SessionStore) Restore(ctx context.Context) (Session, error) {
	defer s.markReady()

	s.writeMu.Lock()
	restored, found, err := s.load(ctx)
	if err != nil {
		prev := s.swap(EmptySession())
		s.writeMu.Unlock()
		s.notifyLogout(ctx, prev, LogoutReasonInvalid)
		return EmptySession(), err
	}

	if !restored.IsAuthenticated() && found {
		if delErr := s.storage.Delete(ctx, s.keys.All()...); delErr != nil {
			s.logger.Warn("unable to clear partial session", "error", delErr)
		}
	}

	prev := s.swap(restored)
	s.writeMu.Unlock()

	if !restored.IsAuthenticated() {
		s.notifyLogout(ctx, prev, LogoutReasonInvalid)
		return restored, nil
	}

	s.logger.Debug("session restored",
		"user_id", restored.UserID(),
		"role", restored.Role.String(),
	)
	return restored, nil
}

// expire clears the session only if it still holds token.
func (s *SessionStore) expire(ctx context.Context, token string, reason LogoutReason) (bool, error) {
	if token == "" {
		return false, nil
	}
	current := s.Current()
	if current.Token != token {
		return false, nil
	}
	return true, s.clear(ctx, token, reason)
}

// clear empties the session. A non-empty expected token turns it into a
// compare-and-clear.
func (s *SessionStore) clear(ctx context.Context, expected string, reason LogoutReason) error {
	s.writeMu.Lock()
	if expected != "" && s.Current().Token != expected {
		s.writeMu.Unlock()
		return nil
	}

	prev := s.swap(EmptySession())
	err := s.storage.Delete(ctx, s.keys.All()...)
	s.writeMu.Unlock()
	s.markReady()

	s.notifyLogout(ctx, prev, reason)

	if err != nil {
		return wrapAs(ErrStorageFailure, err, map[string]any{"op": "delete"})
	}
	return nil
}

func (s *SessionStore) swap(next Session) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.session
	s.session = next
	return prev
}

func (s *SessionStore) markReady() {
	s.restoreOnce.Do(func() { close(s.restored) })
}

func (s *SessionStore) roleFor(ctx context.Context, claims *Claims) (Role, error) {
	if s.lookup == nil {
		return s.resolver.Resolve(claims), nil
	}

	role, err := s.lookup.LookupRole(ctx, claims)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return RoleGuest, wrapAs(ErrRoleLookupFailed, err, map[string]any{
			"user_id": claims.Subject,
		})
	}

	if !role.IsAuthenticatedRole() {
		return RoleGuest, withMetadata(ErrRoleLookupFailed, map[string]any{
			"user_id": claims.Subject,
			"reason":  "lookup returned guest role",
		})
	}
	if !role.IsKnown() {
		// same fail closed default as an unrecognized claim
		return s.resolver.fallback, nil
	}
	return role, nil
}

func (s *SessionStore) persist(ctx context.Context, next Session) error {
	profile, err := next.Profile.Marshal()
	if err != nil {
		return wrapAs(ErrStorageFailure, err, map[string]any{"key": s.keys.User})
	}

	writes := []struct{ key, value string }{
		{s.keys.Token, next.Token},
		{s.keys.User, profile},
		{s.keys.RoleID, strconv.Itoa(next.Role.Code())},
	}

	for _, w := range writes {
		if err := s.storage.Set(ctx, w.key, w.value); err != nil {
			if delErr := s.storage.Delete(ctx, s.keys.All()...); delErr != nil {
				s.logger.Error("unable to roll back partial session write", "error", delErr)
			}
			return wrapAs(ErrStorageFailure, err, map[string]any{"key": w.key})
		}
	}
	return nil
}

// load reads the durable keys. found reports whether any session key was
// present, so callers know whether there is partial state to clear.
func (s *SessionStore) load(ctx context.Context) (Session, bool, error) {
	token, hasToken, err := s.storage.Get(ctx, s.keys.Token)
	if err != nil {
		return EmptySession(), false, wrapAs(ErrStorageFailure, err, map[string]any{"key": s.keys.Token})
	}
	rawUser, hasUser, err := s.storage.Get(ctx, s.keys.User)
	if err != nil {
		return EmptySession(), false, wrapAs(ErrStorageFailure, err, map[string]any{"key": s.keys.User})
	}
	rawRoleID, hasRoleID, err := s.storage.Get(ctx, s.keys.RoleID)
	if err != nil {
		return EmptySession(), false, wrapAs(ErrStorageFailure, err, map[string]any{"key": s.keys.RoleID})
	}

	found := hasToken || hasUser || hasRoleID
	if !hasToken || !hasUser || token == "" {
		if found {
			s.logger.Debug("discarding partial session", "has_token", hasToken, "has_user", hasUser)
		}
		return EmptySession(), found, nil
	}

	claims, err := s.decoder.Decode(token)
	if err != nil {
		s.logger.Debug("discarding stored token", "error", err)
		return EmptySession(), true, nil
	}

	profile, err := ParseProfile(rawUser)
	if err != nil {
		s.logger.Debug("discarding stored profile", "error", err)
		return EmptySession(), true, nil
	}

	if profile.UserID != claims.Subject {
		s.logger.Warn("stored profile does not match token subject",
			"details", print.MaybePrettyJSON(map[string]any{
				"profile_user_id": profile.UserID,
				"token_subject":   claims.Subject,
			}),
		)
		return EmptySession(), true, nil
	}

	role := s.restoredRole(claims, profile, rawRoleID, hasRoleID)

	return Session{
		Token:     token,
		Claims:    claims,
		ExpiresAt: claims.ExpiresAt,
		Role:      role,
		Profile:   NewProfile(claims, role),
	}, true, nil
}

// restoredRole prefers the persisted role code, which may come from a login
// time lookup, and falls back to the claim. A persisted unknown code stays
// RoleUnknown: the claim must not widen a role the lookup narrowed.
func (s *SessionStore) restoredRole(claims *Claims, profile Profile, rawRoleID string, hasRoleID bool) Role {
	if hasRoleID {
		if code, err := strconv.Atoi(rawRoleID); err == nil {
			if code == unknownRoleCode {
				return RoleUnknown
			}
			if role, ok := RoleFromCode(code); ok && role.IsAuthenticatedRole() {
				return role
			}
		}
	}
	if profile.RoleID == unknownRoleCode {
		return RoleUnknown
	}
	if role, ok := RoleFromCode(profile.RoleID); ok && role.IsAuthenticatedRole() {
		return role
	}
	return s.resolver.Resolve(claims)
}

func (s *SessionStore) notifyLogout(ctx context.Context, prev Session, reason LogoutReason) {
	if !prev.IsAuthenticated() {
		return
	}

	event := LogoutEvent{Reason: reason, Previous: prev, OccurredAt: s.now()}

	s.logger.Info("session cleared", "user_id", prev.UserID(), "reason", string(reason))

	eventType := ActivityEventLogout
	if reason == LogoutReasonExpired {
		eventType = ActivityEventSessionExpired
	}
	recordActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType:  eventType,
		UserID:     prev.UserID(),
		Role:       prev.Role,
		OccurredAt: event.OccurredAt,
		Metadata:   map[string]any{"reason": string(reason)},
	})

	s.listenersMu.RLock()
	listeners := append([]LogoutListener(nil), s.listeners...)
	s.listenersMu.RUnlock()

	for _, listener := range listeners {
		listener(ctx, event)
	}
}

func (s *SessionStore) recordLoginFailure(ctx context.Context, userID string, err error) {
	recordActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType:  ActivityEventLoginFailure,
		UserID:     userID,
		OccurredAt: s.now(),
		Metadata: map[string]any{
			"error":     err.Error(),
			"text_code": ErrorTextCode(err),
		},
	})
}
