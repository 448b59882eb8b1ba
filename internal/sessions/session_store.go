package sessions

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bugreporter/bugreporter-gateway/internal/config"
	"github.com/bugreporter/bugreporter-gateway/internal/gwerrors"
	"github.com/bugreporter/bugreporter-gateway/internal/models"
	"github.com/bugreporter/bugreporter-gateway/internal/utils"
	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
)

type SessionStore struct {
	cookieTemplate func() http.Cookie
	cookieHandler  *securecookie.SecureCookie
	sessionMaker   SessionMaker
	sessionRepo    models.SessionRepository
	// credentials, when set, keeps signed in sessions that lost their credentials from being saved again
	credentials    models.CredentialsGetter
}

func ignorable(err error) bool {
	return errors.Is(err, gwerrors.ErrSessionNotFound) ||
		errors.Is(err, gwerrors.ErrSessionExpired) ||
		errors.Is(err, gwerrors.ErrMissingCredentials)
}

// Middleware loads the session of the request, if there is one, and saves it once the request is handled.
func (sessions *SessionStore) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session, loadErr := sessions.Get(c)
			if loadErr != nil && !ignorable(loadErr) {
				slog.Info(
					"SESSION MIDDLEWARE",
					"message",
					"could not load session",
					"error",
					loadErr,
					"requestID",
					utils.GetRequestID(c),
				)
			}
			slog.Debug(
				"SESSION MIDDLEWARE",
				"message",
				"session print (before)",
				"session",
				session.String(),
				"requestID",
				utils.GetRequestID(c),
			)
			err := next(c)
			saveErr := sessions.Save(c)
			if saveErr != nil && !ignorable(saveErr) {
				slog.Info(
					"SESSION MIDDLEWARE",
					"message",
					"could not save session",
					"error",
					saveErr,
					"requestID",
					utils.GetRequestID(c),
				)
			}
			return err
		}
	}
}

// getFromContext retrieves a session from the current context
func (sessions *SessionStore) getFromContext(c echo.Context) (*models.Session, error) {
	sessionRaw := c.Get(SessionCtxKey)
	if sessionRaw == nil {
		return &models.Session{}, gwerrors.ErrSessionNotFound
	}
	session, ok := sessionRaw.(*models.Session)
	if !ok {
		return &models.Session{}, gwerrors.ErrSessionParse
	}
	if session == nil || session.ID == "" {
		return &models.Session{}, gwerrors.ErrSessionNotFound
	}
	if session.Expired() {
		return &models.Session{}, gwerrors.ErrSessionExpired
	}
	return session, nil
}

// Get returns the session of the request, from the context or from the session cookie.
func (sessions *SessionStore) Get(c echo.Context) (*models.Session, error) {
	session, err := sessions.getFromContext(c)
	if err == nil {
		return session, nil
	}
	if c.Get(SessionCtxKey) != nil {
		// the session was removed or replaced during this request
		return &models.Session{}, err
	}
	sessionID, err := sessions.getSessionIDFromCookie(c)
	if err != nil {
		return &models.Session{}, err
	}
	if sessionID == "" {
		return &models.Session{}, gwerrors.ErrSessionNotFound
	}
	sessionFromStore, err := sessions.sessionRepo.GetSession(c.Request().Context(), sessionID)
	if err != nil {
		return &models.Session{}, err
	}
	session = &sessionFromStore
	if session.Expired() {
		return &models.Session{}, gwerrors.ErrSessionExpired
	}
	session.Touch()
	c.Set(SessionCtxKey, session)
	return session, nil
}

// Create starts a new session and sets its cookie, the session is saved by the middleware.
func (sessions *SessionStore) Create(c echo.Context) (*models.Session, error) {
	session, err := sessions.sessionMaker.NewSession()
	if err != nil {
		return &models.Session{}, err
	}
	cookie, err := sessions.cookie(session)
	if err != nil {
		return &models.Session{}, err
	}
	c.Set(SessionCtxKey, &session)
	c.SetCookie(&cookie)
	return &session, nil
}

// Save stores the session of the request. A signed in session whose credentials are gone was signed out
// by a concurrent request and is not stored again.
func (sessions *SessionStore) Save(c echo.Context) error {
	session, err := sessions.getFromContext(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if sessions.credentials != nil && session.Authenticated() {
		creds, err := sessions.credentials.GetCredentials(ctx, session.ID)
		if err != nil {
			return err
		}
		if creds.Empty() {
			return fmt.Errorf("not saving session %s: %w", session.ID, gwerrors.ErrMissingCredentials)
		}
	}
	return sessions.sessionRepo.SetSession(ctx, *session)
}

// Delete removes the session of the request and clears its cookie.
func (sessions *SessionStore) Delete(c echo.Context) error {
	sessionID := ""
	if session, err := sessions.getFromContext(c); err == nil {
		sessionID = session.ID
	} else {
		cookieSessionID, err := sessions.getSessionIDFromCookie(c)
		if err != nil {
			return err
		}
		sessionID = cookieSessionID
	}

	newCookie := sessions.cookieTemplate()
	newCookie.MaxAge = -1
	c.SetCookie(&newCookie)
	c.Set(SessionCtxKey, &models.Session{})

	if sessionID == "" {
		return nil
	}
	return sessions.sessionRepo.RemoveSession(c.Request().Context(), sessionID)
}

func (sessions *SessionStore) cookie(session models.Session) (http.Cookie, error) {
	cookie := sessions.cookieTemplate()
	if sessions.cookieHandler == nil {
		cookie.Value = session.ID
		return cookie, nil
	}
	encoded, err := sessions.cookieHandler.Encode(cookie.Name, session.ID)
	if err != nil {
		return http.Cookie{}, err
	}
	cookie.Value = encoded
	return cookie, nil
}

// getSessionIDFromCookie returns an empty ID when there is no cookie or when its signature is not valid
func (sessions *SessionStore) getSessionIDFromCookie(c echo.Context) (string, error) {
	name := sessions.cookieTemplate().Name
	cookie, err := c.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", nil
		}
		return "", err
	}
	if sessions.cookieHandler == nil {
		return cookie.Value, nil
	}
	sessionID := ""
	err = sessions.cookieHandler.Decode(name, cookie.Value, &sessionID)
	if err != nil {
		slog.Info(
			"SESSION MIDDLEWARE",
			"message",
			"ignoring a session cookie that cannot be decoded",
			"error",
			err,
			"requestID",
			utils.GetRequestID(c),
		)
		return "", nil
	}
	return sessionID, nil
}

type SessionStoreOption func(*SessionStore) error

func WithSessionRepository(repo models.SessionRepository) SessionStoreOption {
	return func(sessions *SessionStore) error {
		sessions.sessionRepo = repo
		return nil
	}
}

func WithCredentialsGetter(credentials models.CredentialsGetter) SessionStoreOption {
	return func(sessions *SessionStore) error {
		sessions.credentials = credentials
		return nil
	}
}

func WithSessionMaker(maker SessionMaker) SessionStoreOption {
	return func(sessions *SessionStore) error {
		sessions.sessionMaker = maker
		return nil
	}
}

func WithCookieTemplate(template func() http.Cookie) SessionStoreOption {
	return func(sessions *SessionStore) error {
		sessions.cookieTemplate = template
		return nil
	}
}

func WithCookieHandler(handler *securecookie.SecureCookie) SessionStoreOption {
	return func(sessions *SessionStore) error {
		sessions.cookieHandler = handler
		return nil
	}
}

// WithConfig sets the session lifetimes, the cookie flags and, when a hash key is configured,
// signs (and optionally encrypts) the session cookie.
func WithConfig(c config.SessionConfig) SessionStoreOption {
	return func(sessions *SessionStore) error {
		sessions.sessionMaker = NewSessionMaker(
			WithIdleSessionTTLSeconds(c.IdleSessionTTLSeconds),
			WithMaxSessionTTLSeconds(c.MaxSessionTTLSeconds),
		)
		secure := c.CookieSecure
		sessions.cookieTemplate = func() http.Cookie {
			return http.Cookie{
				Name:     SessionCookieName,
				Path:     "/",
				Secure:   secure,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode}
		}
		if len(c.CookieHashKey) == 0 {
			sessions.cookieHandler = nil
			return nil
		}
		var encodingKey []byte
		if len(c.CookieEncodingKey) > 0 {
			encodingKey = []byte(c.CookieEncodingKey)
		}
		handler := securecookie.New([]byte(c.CookieHashKey), encodingKey)
		if c.MaxSessionTTLSeconds > 0 {
			handler = handler.MaxAge(c.MaxSessionTTLSeconds)
		}
		sessions.cookieHandler = handler
		return nil
	}
}

func NewSessionStore(options ...SessionStoreOption) (*SessionStore, error) {
	sessions := SessionStore{
		cookieTemplate: func() http.Cookie {
			return http.Cookie{
				Name:     SessionCookieName,
				Path:     "/",
				Secure:   true,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode}
		},
	}
	for _, opt := range options {
		err := opt(&sessions)
		if err != nil {
			return &SessionStore{}, err
		}
	}
	if sessions.cookieTemplate == nil {
		return &SessionStore{}, fmt.Errorf("cookie template is not initialized")
	}
	if sessions.sessionMaker == nil {
		return &SessionStore{}, fmt.Errorf("session maker is not initialized")
	}
	if sessions.sessionRepo == nil {
		return &SessionStore{}, fmt.Errorf("session repository is not initialized")
	}
	return &sessions, nil
}
