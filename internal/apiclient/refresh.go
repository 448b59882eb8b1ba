package apiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/bugreporter/bugreporter-gateway/internal/gwerrors"
	"github.com/bugreporter/bugreporter-gateway/internal/metrics"
	"github.com/bugreporter/bugreporter-gateway/internal/utils"
)

// continuation resumes a call waiting on a refresh. It runs while the refresh state is locked and
// must not block.
type continuation func(accessToken string, err error)

// refreshState allows at most one refresh at a time. The calls that hit a 401 while a refresh runs
// are queued and settled in the order they arrived.
type refreshState struct {
	lock       sync.Mutex
	refreshing bool
	pending    []continuation
}

// enqueue adds a waiting call and reports whether the caller has to start the refresh.
func (s *refreshState) enqueue(cont continuation) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.pending = append(s.pending, cont)
	if s.refreshing {
		return false
	}
	s.refreshing = true
	return true
}

// settle resolves every waiting call and marks the refresh as finished in the same critical section.
func (s *refreshState) settle(accessToken string, err error) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	pending := s.pending
	s.pending = nil
	s.refreshing = false
	for _, cont := range pending {
		cont(accessToken, err)
	}
	return len(pending)
}

func (s *refreshState) pendingLen() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.pending)
}

type refreshResult struct {
	accessToken string
	err         error
}

type refreshResponse struct {
	Access string `json:"access"`
}

// recoverAuth returns the access token a call rejected with 401 should be resent with.
func (c *Client) recoverAuth(ctx context.Context, usedToken string) (string, error) {
	creds, err := c.store.Get(ctx)
	if err != nil {
		return "", err
	}
	if !creds.HasRefreshToken() {
		slog.Info(
			"API CLIENT",
			"message",
			"the access token was rejected and there is no refresh token",
			"requestID",
			utils.RequestIDFromContext(ctx),
		)
		c.expire(ctx)
		return "", gwerrors.ErrAuthExpired
	}
	if creds.AccessToken != "" && creds.AccessToken != usedToken {
		// a refresh finished while this call was in flight
		return creds.AccessToken, nil
	}
	return c.awaitRefresh(ctx, creds.RefreshToken)
}

func (c *Client) awaitRefresh(ctx context.Context, refreshToken string) (string, error) {
	done := make(chan refreshResult, 1)
	leader := c.refresh.enqueue(func(accessToken string, err error) {
		done <- refreshResult{accessToken: accessToken, err: err}
	})
	if leader {
		go c.runRefresh(context.WithoutCancel(ctx), refreshToken)
	}
	select {
	case res := <-done:
		return res.accessToken, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// runRefresh exchanges the refresh token for a new access token and settles all the waiting calls.
func (c *Client) runRefresh(ctx context.Context, refreshToken string) {
	refreshID, err := c.ids.ID()
	if err != nil {
		refreshID = "unknown"
	}
	slog.Info("API CLIENT", "message", "refreshing the access token", "refreshID", refreshID)
	accessToken, err := c.requestRefresh(ctx, refreshToken)
	if err == nil {
		err = c.store.SetAccessToken(ctx, refreshToken, accessToken)
	}
	if errors.Is(err, gwerrors.ErrCredentialsReplaced) {
		// signed out or signed in again while the refresh ran, the other credentials are kept
		slog.Info("API CLIENT", "message", "the credentials changed during the refresh", "refreshID", refreshID)
		waiters := c.refresh.settle("", fmt.Errorf("%w: %w", gwerrors.ErrAuthExpired, err))
		c.metrics.RefreshFinished(metrics.OutcomeFailure, waiters)
		return
	}
	if err != nil {
		slog.Info("API CLIENT", "message", "the access token could not be refreshed", "refreshID", refreshID, "error", err)
		c.expire(ctx)
		waiters := c.refresh.settle("", fmt.Errorf("%w: %w", gwerrors.ErrAuthExpired, err))
		c.metrics.RefreshFinished(metrics.OutcomeFailure, waiters)
		return
	}
	waiters := c.refresh.settle(accessToken, nil)
	slog.Info("API CLIENT", "message", "refreshed the access token", "refreshID", refreshID, "waiters", waiters)
	c.metrics.RefreshFinished(metrics.OutcomeSuccess, waiters)
}

// requestRefresh calls the refresh endpoint. The call carries no access token and is never retried.
func (c *Client) requestRefresh(ctx context.Context, refreshToken string) (string, error) {
	target, err := c.resolve(refreshPath)
	if err != nil {
		return "", err
	}
	payload, err := encodeBody(map[string]string{"refresh": refreshToken})
	if err != nil {
		return "", err
	}
	res, err := c.send(ctx, http.MethodPost, target, payload, nil, "")
	if err != nil {
		return "", err
	}
	res, err = res.result()
	if err != nil {
		return "", err
	}
	output := refreshResponse{}
	err = res.Decode(&output)
	if err != nil {
		return "", fmt.Errorf("cannot parse the refresh response: %w", err)
	}
	if output.Access == "" {
		return "", errors.New("the refresh response does not contain an access token")
	}
	return output.Access, nil
}

// expire removes the stored credentials and signals that the user has to sign in again.
func (c *Client) expire(ctx context.Context) {
	err := c.store.Clear(ctx)
	if err != nil {
		slog.Error("API CLIENT", "message", "could not clear the credentials", "error", err)
	}
	c.metrics.SessionExpired()
	c.onExpired(ctx)
}
