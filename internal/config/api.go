package config

import (
	"fmt"
	"net/url"
	"time"
)

// APIConfig describes how the gateway reaches the issue tracker REST API.
type APIConfig struct {
	// BaseURL is the base address every API path is relative to. A relative value such as
	// the default "/api" is resolved against Upstream.
	BaseURL  string
	Upstream string
	// Timeout bounds a single outbound request, zero means no timeout.
	Timeout time.Duration
	// SignInPath is where the browser is sent when the session credentials cannot be refreshed.
	SignInPath string
	// PageSize is the number of items per page of the paginated API lists.
	PageSize int
}

// ResolvedBaseURL returns the absolute base address of the API.
func (c APIConfig) ResolvedBaseURL() (*url.URL, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("cannot parse the API base URL: %w", err)
	}
	if base.IsAbs() {
		return base, nil
	}
	upstream, err := url.Parse(c.Upstream)
	if err != nil {
		return nil, fmt.Errorf("cannot parse the API upstream URL: %w", err)
	}
	if !upstream.IsAbs() {
		return nil, fmt.Errorf("the API base URL %q is relative and the upstream %q is not absolute", c.BaseURL, c.Upstream)
	}
	return upstream.ResolveReference(base), nil
}

func (c APIConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("the API base URL cannot be empty")
	}
	if _, err := c.ResolvedBaseURL(); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("the API timeout cannot be negative, got %s", c.Timeout)
	}
	if c.SignInPath == "" {
		return fmt.Errorf("the sign in path cannot be empty")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("the API page size has to be positive, got %d", c.PageSize)
	}
	return nil
}
