package tracker

import (
	"context"
	"net/http"
	"testing"

	"github.com/bugreporter/bugreporter-gateway/internal/gwerrors"
	"github.com/bugreporter/bugreporter-gateway/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginStoresCredentials(t *testing.T) {
	tr, store, requests := newTestTracker(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access": "access-1", "refresh": "refresh-1"})
	}, models.CredentialPair{AccessToken: "stale", RefreshToken: "stale-r"})

	err := tr.Login(context.Background(), "alice", "secret")

	require.NoError(t, err)
	req := <-requests
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/auth/login/", req.Path)
	assert.Empty(t, req.Auth)
	assert.JSONEq(t, `{"username":"alice","password":"secret"}`, req.Body)
	creds, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.CredentialPair{AccessToken: "access-1", RefreshToken: "refresh-1"}, creds)
}

func TestLoginWithWrongPassword(t *testing.T) {
	tr, store, _ := newTestTracker(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
	}, models.CredentialPair{})

	err := tr.Login(context.Background(), "alice", "wrong")

	var reqErr *gwerrors.RequestFailedError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusUnauthorized, reqErr.Status)
	creds, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, creds.Empty())
}

func TestLoginValidation(t *testing.T) {
	tr, _, requests := newTestTracker(t, func(w http.ResponseWriter, r *http.Request) {}, models.CredentialPair{})

	err := tr.Login(context.Background(), "alice", "")

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Len(t, requests, 0)
}

func TestLoginWithoutAccessToken(t *testing.T) {
	tr, _, _ := newTestTracker(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{})
	}, models.CredentialPair{})

	err := tr.Login(context.Background(), "alice", "secret")

	assert.ErrorContains(t, err, "did not return an access token")
}

func TestRegister(t *testing.T) {
	tr, store, requests := newTestTracker(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{
			"user":    map[string]any{"id": 3, "username": "bob", "email": "bob@example.com"},
			"access":  "access-3",
			"refresh": "refresh-3",
		})
	}, models.CredentialPair{})

	user, err := tr.Register(context.Background(), RegisterInput{Username: "bob", Email: "bob@example.com", Password: "pw"})

	require.NoError(t, err)
	assert.Equal(t, User{ID: 3, Username: "bob", Email: "bob@example.com"}, user)
	req := <-requests
	assert.Equal(t, "/auth/register/", req.Path)
	assert.JSONEq(t, `{"username":"bob","email":"bob@example.com","password":"pw"}`, req.Body)
	creds, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.CredentialPair{AccessToken: "access-3", RefreshToken: "refresh-3"}, creds)
}

func TestRegisterValidation(t *testing.T) {
	tr, _, requests := newTestTracker(t, func(w http.ResponseWriter, r *http.Request) {}, models.CredentialPair{})

	_, err := tr.Register(context.Background(), RegisterInput{Password: "pw"})

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Len(t, requests, 0)
}

func TestCurrentUserAndLogout(t *testing.T) {
	tr, store, requests := newTestTracker(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "username": "alice", "email": "alice@example.com"})
	}, validCreds())

	user, err := tr.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	req := <-requests
	assert.Equal(t, "/auth/user/", req.Path)
	assert.Equal(t, "Bearer access-1", req.Auth)

	require.NoError(t, tr.Logout(context.Background()))
	creds, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, creds.Empty())
}
