package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bugreporter/bugreporter-gateway/internal/apiclient"
	"github.com/bugreporter/bugreporter-gateway/internal/credentials"
	"github.com/bugreporter/bugreporter-gateway/internal/models"
	"github.com/go-co-op/gocron"
)

type cachedClient struct {
	client   *apiclient.Client
	lastUsed time.Time
}

// ClientCache keeps one API client per session so that the concurrent requests of a session share
// a single token refresh.
type ClientCache struct {
	lock          sync.Mutex
	clients       map[string]*cachedClient
	credsRepo     models.CredentialsRepository
	sessionRepo   models.SessionRemover
	clientOptions []apiclient.ClientOption
	idleTTL       time.Duration
	now           func() time.Time
}

// ClientFor returns the client bound to the credentials of the session.
func (cc *ClientCache) ClientFor(session *models.Session) (*apiclient.Client, error) {
	if session == nil || session.ID == "" {
		return nil, fmt.Errorf("cannot create an API client without a session")
	}
	cc.lock.Lock()
	defer cc.lock.Unlock()
	if cached, found := cc.clients[session.ID]; found {
		cached.lastUsed = cc.now()
		return cached.client, nil
	}
	client, err := cc.newClient(session.ID)
	if err != nil {
		return nil, err
	}
	cc.clients[session.ID] = &cachedClient{client: client, lastUsed: cc.now()}
	return client, nil
}

func (cc *ClientCache) newClient(sessionID string) (*apiclient.Client, error) {
	store, err := credentials.NewSessionStore(cc.credsRepo, sessionID)
	if err != nil {
		return nil, err
	}
	options := append([]apiclient.ClientOption{}, cc.clientOptions...)
	options = append(
		options,
		apiclient.WithCredentialStore(store),
		apiclient.WithSessionExpiredHandler(func(ctx context.Context) {
			cc.expire(ctx, sessionID)
		}),
	)
	return apiclient.NewClient(options...)
}

// expire forgets the client and the session whose credentials could not be refreshed.
func (cc *ClientCache) expire(ctx context.Context, sessionID string) {
	cc.Remove(sessionID)
	if cc.sessionRepo == nil {
		return
	}
	err := cc.sessionRepo.RemoveSession(ctx, sessionID)
	if err != nil {
		slog.Error("CLIENT CACHE", "message", "could not remove the expired session", "error", err)
	}
}

func (cc *ClientCache) Remove(sessionID string) {
	cc.lock.Lock()
	defer cc.lock.Unlock()
	delete(cc.clients, sessionID)
}

func (cc *ClientCache) Len() int {
	cc.lock.Lock()
	defer cc.lock.Unlock()
	return len(cc.clients)
}

// EvictIdle removes the clients that were not used for longer than the idle TTL.
func (cc *ClientCache) EvictIdle() int {
	cc.lock.Lock()
	defer cc.lock.Unlock()
	cutoff := cc.now().Add(-cc.idleTTL)
	evicted := 0
	for sessionID, cached := range cc.clients {
		if cached.lastUsed.Before(cutoff) {
			delete(cc.clients, sessionID)
			evicted++
		}
	}
	return evicted
}

// GetScheduler returns a scheduler that evicts idle clients every minute, it has to be started by the caller.
func (cc *ClientCache) GetScheduler() (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(1).Minutes().Do(func() {
		evicted := cc.EvictIdle()
		if evicted > 0 {
			slog.Info("CLIENT CACHE", "message", fmt.Sprintf("evicted %d idle API clients", evicted))
		}
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

type ClientCacheOption func(*ClientCache) error

func WithCredentialsRepository(repo models.CredentialsRepository) ClientCacheOption {
	return func(cc *ClientCache) error {
		cc.credsRepo = repo
		return nil
	}
}

// WithExpiredSessionRemover removes the session records whose credentials expired.
func WithExpiredSessionRemover(repo models.SessionRemover) ClientCacheOption {
	return func(cc *ClientCache) error {
		cc.sessionRepo = repo
		return nil
	}
}

// WithClientOptions sets the options of every client, the credential store and the expiry handler
// are set by the cache.
func WithClientOptions(options ...apiclient.ClientOption) ClientCacheOption {
	return func(cc *ClientCache) error {
		cc.clientOptions = options
		return nil
	}
}

func WithIdleTTL(idleTTL time.Duration) ClientCacheOption {
	return func(cc *ClientCache) error {
		if idleTTL <= 0 {
			return fmt.Errorf("the idle TTL of API clients has to be positive, got %s", idleTTL)
		}
		cc.idleTTL = idleTTL
		return nil
	}
}

func withClock(now func() time.Time) ClientCacheOption {
	return func(cc *ClientCache) error {
		cc.now = now
		return nil
	}
}

func NewClientCache(options ...ClientCacheOption) (*ClientCache, error) {
	cc := ClientCache{
		clients: map[string]*cachedClient{},
		idleTTL: 8 * time.Hour,
		now:     time.Now,
	}
	for _, opt := range options {
		err := opt(&cc)
		if err != nil {
			return nil, err
		}
	}
	if cc.credsRepo == nil {
		return nil, fmt.Errorf("credentials repository is not initialized")
	}
	return &cc, nil
}
