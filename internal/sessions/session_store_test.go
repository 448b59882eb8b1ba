package sessions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bugreporter/bugreporter-gateway/internal/config"
	"github.com/bugreporter/bugreporter-gateway/internal/db"
	"github.com/bugreporter/bugreporter-gateway/internal/gwerrors"
	"github.com/bugreporter/bugreporter-gateway/internal/models"
	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSessionStore(t *testing.T, options ...SessionStoreOption) (*SessionStore, *db.RedisAdapter) {
	dbAdapter, err := db.NewRedisAdapter(db.WithRedisConfig(config.RedisConfig{
		Type: config.DBTypeRedisMock,
	}))
	require.NoError(t, err)
	sessionStoreOptions := []SessionStoreOption{
		WithSessionRepository(dbAdapter),
		WithConfig(config.SessionConfig{
			IdleSessionTTLSeconds: 3600,
			MaxSessionTTLSeconds:  7200,
		}),
	}
	sessionStore, err := NewSessionStore(append(sessionStoreOptions, options...)...)
	require.NoError(t, err)
	return sessionStore, dbAdapter
}

func setupEchoContext() echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c
}

func signingOptions() (SessionStoreOption, *securecookie.SecureCookie) {
	hashKey := securecookie.GenerateRandomKey(32)
	encodingKey := securecookie.GenerateRandomKey(32)
	return WithCookieHandler(securecookie.New(hashKey, encodingKey)), securecookie.New(hashKey, encodingKey)
}

func TestNewSessionStoreValidation(t *testing.T) {
	_, err := NewSessionStore(WithConfig(config.SessionConfig{IdleSessionTTLSeconds: 60}))
	assert.ErrorContains(t, err, "session repository is not initialized")

	adapter, err := db.NewMockRedisAdapter()
	require.NoError(t, err)
	_, err = NewSessionStore(WithSessionRepository(adapter))
	assert.ErrorContains(t, err, "session maker is not initialized")
}

func TestNewSession(t *testing.T) {
	sessionStore, _ := setupSessionStore(t)

	session, err := sessionStore.sessionMaker.NewSession()

	require.NoError(t, err)
	assert.Len(t, session.ID, 32)
	assert.Equal(t, models.SerializableInt(3600), session.IdleTTLSeconds)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 5*time.Second)
	assert.False(t, session.Expired())
}

func TestCookie(t *testing.T) {
	sessionStore, _ := setupSessionStore(t)
	session, err := sessionStore.sessionMaker.NewSession()
	require.NoError(t, err)

	cookie, err := sessionStore.cookie(session)
	require.NoError(t, err)
	assert.Equal(t, SessionCookieName, cookie.Name)
	assert.Equal(t, session.ID, cookie.Value)
	assert.True(t, cookie.HttpOnly)
}

func TestCookieWithSigning(t *testing.T) {
	option, cookieHandler := signingOptions()
	sessionStore, _ := setupSessionStore(t, option)
	assert.NotNil(t, sessionStore.cookieHandler)
	session, err := sessionStore.sessionMaker.NewSession()
	require.NoError(t, err)

	cookie, err := sessionStore.cookie(session)
	require.NoError(t, err)
	assert.Equal(t, SessionCookieName, cookie.Name)
	assert.NotEqual(t, session.ID, cookie.Value)

	// Decode the encrypted value
	var decoded string = ""
	err = cookieHandler.Decode(SessionCookieName, cookie.Value, &decoded)
	require.NoError(t, err)
	assert.Equal(t, session.ID, decoded)
}

func TestCookieSigningFromConfig(t *testing.T) {
	hashKey := string(securecookie.GenerateRandomKey(32))
	sessionStore, _ := setupSessionStore(t, WithConfig(config.SessionConfig{
		IdleSessionTTLSeconds: 60,
		CookieSecure:          true,
		CookieHashKey:         config.RedactedString(hashKey),
	}))
	session, err := sessionStore.sessionMaker.NewSession()
	require.NoError(t, err)

	cookie, err := sessionStore.cookie(session)

	require.NoError(t, err)
	assert.True(t, cookie.Secure)
	assert.NotEqual(t, session.ID, cookie.Value)
	c := setupEchoContext()
	c.Request().AddCookie(&cookie)
	sessionID, err := sessionStore.getSessionIDFromCookie(c)
	require.NoError(t, err)
	assert.Equal(t, session.ID, sessionID)
}

func TestGetSessionIDFromCookie(t *testing.T) {
	sessionStore, _ := setupSessionStore(t)
	session, err := sessionStore.sessionMaker.NewSession()
	require.NoError(t, err)
	cookie, err := sessionStore.cookie(session)
	require.NoError(t, err)

	c := setupEchoContext()
	c.Request().AddCookie(&cookie)

	sessionID, err := sessionStore.getSessionIDFromCookie(c)
	require.NoError(t, err)
	assert.Equal(t, session.ID, sessionID)
}

func TestGetSessionIDFromCookieCannotTamperWithSigning(t *testing.T) {
	option, _ := signingOptions()
	sessionStore, _ := setupSessionStore(t, option)
	session, err := sessionStore.sessionMaker.NewSession()
	require.NoError(t, err)
	cookie, err := sessionStore.cookie(session)
	require.NoError(t, err)
	cookie.Value = "fake-session-id"

	c := setupEchoContext()
	c.Request().AddCookie(&cookie)

	sessionID, err := sessionStore.getSessionIDFromCookie(c)
	require.NoError(t, err)
	assert.Equal(t, "", sessionID)
}

func TestGetSessionIDFromCookieNoCookie(t *testing.T) {
	sessionStore, _ := setupSessionStore(t)

	c := setupEchoContext()

	sessionID, err := sessionStore.getSessionIDFromCookie(c)
	require.NoError(t, err)
	assert.Equal(t, "", sessionID)
}

func TestGetWithoutSession(t *testing.T) {
	sessionStore, _ := setupSessionStore(t)

	_, err := sessionStore.Get(setupEchoContext())

	assert.ErrorIs(t, err, gwerrors.ErrSessionNotFound)
}

func TestCreateSaveGet(t *testing.T) {
	sessionStore, adapter := setupSessionStore(t)
	c := setupEchoContext()

	session, err := sessionStore.Create(c)
	require.NoError(t, err)
	require.NoError(t, sessionStore.Save(c))

	stored, err := adapter.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, stored.ID)
	setCookie := c.Response().Header().Get(echo.HeaderSetCookie)
	assert.Contains(t, setCookie, SessionCookieName+"="+session.ID)

	// a following request carries the cookie
	next := setupEchoContext()
	cookie, err := sessionStore.cookie(*session)
	require.NoError(t, err)
	next.Request().AddCookie(&cookie)
	loaded, err := sessionStore.Get(next)
	require.NoError(t, err)
	assert.Equal(t, session.ID, loaded.ID)
}

func TestGetExpiredSession(t *testing.T) {
	sessionStore, adapter := setupSessionStore(t)
	session, err := sessionStore.sessionMaker.NewSession()
	require.NoError(t, err)
	session.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, adapter.SetSession(context.Background(), session))
	c := setupEchoContext()
	cookie, err := sessionStore.cookie(session)
	require.NoError(t, err)
	c.Request().AddCookie(&cookie)

	_, err = sessionStore.Get(c)

	assert.ErrorIs(t, err, gwerrors.ErrSessionExpired)
}

func TestDelete(t *testing.T) {
	sessionStore, adapter := setupSessionStore(t)
	c := setupEchoContext()
	session, err := sessionStore.Create(c)
	require.NoError(t, err)
	require.NoError(t, sessionStore.Save(c))

	require.NoError(t, sessionStore.Delete(c))

	_, err = adapter.GetSession(context.Background(), session.ID)
	assert.ErrorIs(t, err, gwerrors.ErrSessionNotFound)
	_, err = sessionStore.Get(c)
	assert.ErrorIs(t, err, gwerrors.ErrSessionNotFound)
	assert.ErrorIs(t, sessionStore.Save(c), gwerrors.ErrSessionNotFound)
	cookies := c.Response().Header().Values(echo.HeaderSetCookie)
	assert.Contains(t, cookies[len(cookies)-1], "Max-Age=0")
}

func TestDeleteWithoutSession(t *testing.T) {
	sessionStore, _ := setupSessionStore(t)

	assert.NoError(t, sessionStore.Delete(setupEchoContext()))
}

func TestMiddlewareTouchesAndSaves(t *testing.T) {
	sessionStore, adapter := setupSessionStore(t)
	session, err := sessionStore.sessionMaker.NewSession()
	require.NoError(t, err)
	session.ExpiresAt = time.Now().UTC().Add(time.Minute)
	require.NoError(t, adapter.SetSession(context.Background(), session))
	c := setupEchoContext()
	cookie, err := sessionStore.cookie(session)
	require.NoError(t, err)
	c.Request().AddCookie(&cookie)

	var seen *models.Session
	handler := sessionStore.Middleware()(func(c echo.Context) error {
		seen, err = sessionStore.Get(c)
		return err
	})
	require.NoError(t, handler(c))

	require.NotNil(t, seen)
	assert.Equal(t, session.ID, seen.ID)
	stored, err := adapter.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.True(t, stored.ExpiresAt.After(time.Now().Add(30*time.Minute)))
}

func TestSaveSkipsSignedOutSession(t *testing.T) {
	ctx := context.Background()
	credentialsRepo, err := db.NewMockRedisAdapter()
	require.NoError(t, err)
	sessionStore, adapter := setupSessionStore(t, WithCredentialsGetter(credentialsRepo))
	session, err := sessionStore.sessionMaker.NewSession()
	require.NoError(t, err)
	session.UserID = "7"
	require.NoError(t, adapter.SetSession(ctx, session))
	require.NoError(t, credentialsRepo.SetCredentials(ctx, session.ID, models.CredentialPair{AccessToken: "a", RefreshToken: "r"}))
	c := setupEchoContext()
	cookie, err := sessionStore.cookie(session)
	require.NoError(t, err)
	c.Request().AddCookie(&cookie)

	handler := sessionStore.Middleware()(func(c echo.Context) error {
		if _, err := sessionStore.Get(c); err != nil {
			return err
		}
		// another request of the same session fails its refresh and signs out
		require.NoError(t, credentialsRepo.RemoveCredentials(ctx, session.ID))
		return adapter.RemoveSession(ctx, session.ID)
	})
	require.NoError(t, handler(c))

	_, err = adapter.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, gwerrors.ErrSessionNotFound)
	assert.ErrorIs(t, sessionStore.Save(c), gwerrors.ErrMissingCredentials)
}

func TestSaveKeepsSessionsWithoutUser(t *testing.T) {
	credentialsRepo, err := db.NewMockRedisAdapter()
	require.NoError(t, err)
	sessionStore, adapter := setupSessionStore(t, WithCredentialsGetter(credentialsRepo))
	c := setupEchoContext()
	session, err := sessionStore.Create(c)
	require.NoError(t, err)

	require.NoError(t, sessionStore.Save(c))

	_, err = adapter.GetSession(context.Background(), session.ID)
	assert.NoError(t, err)
}
