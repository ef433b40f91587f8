package authclient

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultLoginTimeout bounds the credential exchange and role lookup
const DefaultLoginTimeout = 10 * time.Second

// LoginMessage carries the credentials typed into the login form.
type LoginMessage struct {
	Identifier string `json:"identifier" example:"ada@example.com" doc:"Email or username."`
	Password   string `json:"password" doc:"Account password."`
	ReturnTo   string `json:"return_to,omitempty" example:"/student/requests" doc:"Path the guard preserved before redirecting to login."`
	OnResponse func(resp *LoginResponse)
}

func (m LoginMessage) Type() string { return "session.login" }

// Validate checks the message before any network call
func (m LoginMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Identifier, validation.Required, validation.Length(2, 254)),
		validation.Field(&m.Password, validation.Required),
	)
}

// LoginResponse is handed to LoginMessage.OnResponse.
type LoginResponse struct {
	Session  Session
	Redirect string
}

// LoginHandler exchanges credentials for a token and commits the session.
type LoginHandler struct {
	exchanger CredentialExchanger
	store     *SessionStore
	timeout   time.Duration
	logger    Logger
}

// LoginHandlerOption customizes a LoginHandler.
type LoginHandlerOption func(*LoginHandler)

// WithLoginTimeout overrides DefaultLoginTimeout
func WithLoginTimeout(timeout time.Duration) LoginHandlerOption {
	return func(h *LoginHandler) {
		if timeout > 0 {
			h.timeout = timeout
		}
	}
}

// WithLoginLogger overrides the logger
func WithLoginLogger(logger Logger) LoginHandlerOption {
	return func(h *LoginHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewLoginHandler returns a handler using exchanger and store.
func NewLoginHandler(exchanger CredentialExchanger, store *SessionStore, opts ...LoginHandlerOption) *LoginHandler {
	h := &LoginHandler{
		exchanger: exchanger,
		store:     store,
		timeout:   DefaultLoginTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.logger == nil {
		h.logger = store.loggerProvider.GetLogger("authclient.login")
	}
	return h
}

func (h *LoginHandler) Execute(ctx context.Context, msg LoginMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during login",
		)
	default:
		return h.execute(ctx, msg)
	}
}

func (h *LoginHandler) execute(ctx context.Context, msg LoginMessage) error {
	if err := msg.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid login payload").
			WithTextCode("INVALID_LOGIN_PAYLOAD").
			WithCode(goerrors.CodeBadRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	identifier := strings.TrimSpace(msg.Identifier)

	token, err := h.exchanger.Exchange(ctx, identifier, msg.Password)
	if err != nil {
		h.logger.Debug("credential exchange failed", "identifier", identifier, "error", err)
		return goerrors.Wrap(err, goerrors.CategoryAuth, "credential exchange failed").
			WithTextCode("CREDENTIAL_EXCHANGE_FAILED").
			WithCode(goerrors.CodeUnauthorized)
	}

	session, err := h.store.Login(ctx, token)
	if err != nil {
		return err
	}

	resp := &LoginResponse{
		Session:  session,
		Redirect: PostLoginRedirect(session, msg.ReturnTo),
	}

	if msg.OnResponse != nil {
		msg.OnResponse(resp)
	}

	return nil
}

// PostLoginRedirect is the preserved return path when it is safe, or the
// landing path of the session role.
func PostLoginRedirect(s Session, returnTo string) string {
	if path := SafeReturnPath(returnTo); path != "" && !isAuthEntryPath(path) {
		return path
	}
	return s.Role.LandingPath()
}

func isAuthEntryPath(path string) bool {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	switch path {
	case DefaultLoginPath, DefaultLogoutPath:
		return true
	}
	return false
}
