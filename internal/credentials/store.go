// Package credentials holds the credential pair of one authenticated party.
package credentials

import (
	"context"
	"fmt"
	"sync"

	"github.com/bugreporter/bugreporter-gateway/internal/gwerrors"
	"github.com/bugreporter/bugreporter-gateway/internal/models"
)

// Store keeps the two credential slots, the access token and the refresh token.
// Get returns an empty pair when nothing is stored. SetAccessToken stores a refreshed access token
// only while refreshToken is still stored and returns gwerrors.ErrCredentialsReplaced otherwise.
type Store interface {
	Get(ctx context.Context) (models.CredentialPair, error)
	Set(ctx context.Context, credentials models.CredentialPair) error
	SetAccessToken(ctx context.Context, refreshToken string, accessToken string) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the credentials in process memory.
type MemoryStore struct {
	lock        sync.RWMutex
	credentials models.CredentialPair
}

func NewMemoryStore(credentials models.CredentialPair) *MemoryStore {
	return &MemoryStore{credentials: credentials}
}

func (m *MemoryStore) Get(context.Context) (models.CredentialPair, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.credentials, nil
}

func (m *MemoryStore) Set(_ context.Context, credentials models.CredentialPair) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.credentials = credentials
	return nil
}

func (m *MemoryStore) SetAccessToken(_ context.Context, refreshToken string, accessToken string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if !m.credentials.HasRefreshToken() || m.credentials.RefreshToken != refreshToken {
		return gwerrors.ErrCredentialsReplaced
	}
	m.credentials.AccessToken = accessToken
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.credentials = models.CredentialPair{}
	return nil
}

// SessionStore binds the credentials of one browser session to a repository.
type SessionStore struct {
	repo      models.CredentialsRepository
	sessionID string
}

func NewSessionStore(repo models.CredentialsRepository, sessionID string) (*SessionStore, error) {
	if repo == nil {
		return nil, fmt.Errorf("credentials repository not initialized")
	}
	if sessionID == "" {
		return nil, fmt.Errorf("session ID not initialized")
	}
	return &SessionStore{repo: repo, sessionID: sessionID}, nil
}

func (s *SessionStore) SessionID() string {
	return s.sessionID
}

func (s *SessionStore) Get(ctx context.Context) (models.CredentialPair, error) {
	return s.repo.GetCredentials(ctx, s.sessionID)
}

func (s *SessionStore) Set(ctx context.Context, credentials models.CredentialPair) error {
	return s.repo.SetCredentials(ctx, s.sessionID, credentials)
}

func (s *SessionStore) SetAccessToken(ctx context.Context, refreshToken string, accessToken string) error {
	return s.repo.SetAccessToken(ctx, s.sessionID, refreshToken, accessToken)
}

func (s *SessionStore) Clear(ctx context.Context) error {
	return s.repo.RemoveCredentials(ctx, s.sessionID)
}
