// Package apiclient sends authenticated requests to the issue tracker API. When the API rejects the
// access token the client refreshes it once, with a single refresh request shared by every concurrent
// call of the same client, and resends the rejected calls with the new token.
package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bugreporter/bugreporter-gateway/internal/config"
	"github.com/bugreporter/bugreporter-gateway/internal/credentials"
	"github.com/bugreporter/bugreporter-gateway/internal/metrics"
	"github.com/bugreporter/bugreporter-gateway/internal/models"
)

const refreshPath string = "/auth/refresh/"

// SessionExpiredHandler is called when the credentials are gone for good and the user has to sign in again.
type SessionExpiredHandler func(ctx context.Context)

// Client is bound to one credential store. All the calls made through one client share its refresh state.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	store          credentials.Store
	onExpired      SessionExpiredHandler
	defaultHeaders http.Header
	metrics        *metrics.Collectors
	ids            models.IDGenerator
	refresh        refreshState
}

type ClientOption func(*Client) error

func WithBaseURL(baseURL *url.URL) ClientOption {
	return func(c *Client) error {
		if baseURL == nil || !baseURL.IsAbs() {
			return fmt.Errorf("the API base URL has to be absolute, got %v", baseURL)
		}
		c.baseURL = baseURL
		return nil
	}
}

// WithConfig sets the base URL and the request timeout from the API configuration.
func WithConfig(apiConfig config.APIConfig) ClientOption {
	return func(c *Client) error {
		baseURL, err := apiConfig.ResolvedBaseURL()
		if err != nil {
			return err
		}
		c.baseURL = baseURL
		c.httpClient = &http.Client{Timeout: apiConfig.Timeout}
		return nil
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) error {
		c.httpClient = httpClient
		return nil
	}
}

func WithCredentialStore(store credentials.Store) ClientOption {
	return func(c *Client) error {
		c.store = store
		return nil
	}
}

func WithSessionExpiredHandler(handler SessionExpiredHandler) ClientOption {
	return func(c *Client) error {
		c.onExpired = handler
		return nil
	}
}

// WithDefaultHeaders sets headers sent with every request, per call headers take precedence.
func WithDefaultHeaders(headers http.Header) ClientOption {
	return func(c *Client) error {
		c.defaultHeaders = headers.Clone()
		return nil
	}
}

func WithMetrics(collectors *metrics.Collectors) ClientOption {
	return func(c *Client) error {
		c.metrics = collectors
		return nil
	}
}

func WithIDGenerator(ids models.IDGenerator) ClientOption {
	return func(c *Client) error {
		c.ids = ids
		return nil
	}
}

func NewClient(options ...ClientOption) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{},
		ids:        models.ULIDGenerator{},
	}
	for _, opt := range options {
		err := opt(c)
		if err != nil {
			return nil, err
		}
	}
	if c.baseURL == nil {
		return nil, fmt.Errorf("API base URL not initialized")
	}
	if c.store == nil {
		return nil, fmt.Errorf("credential store not initialized")
	}
	if c.httpClient == nil {
		return nil, fmt.Errorf("http client not initialized")
	}
	if c.onExpired == nil {
		c.onExpired = func(context.Context) {}
	}
	return c, nil
}

// Store returns the credential store the client reads its tokens from.
func (c *Client) Store() credentials.Store {
	return c.store
}

func (c *Client) BaseURL() *url.URL {
	output := *c.baseURL
	return &output
}
