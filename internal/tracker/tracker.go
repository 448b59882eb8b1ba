// Package tracker exposes the issue tracker REST API as typed operations. Every call goes through an
// authenticated apiclient.Client, so expired access tokens are refreshed transparently.
package tracker

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bugreporter/bugreporter-gateway/internal/apiclient"
	"github.com/bugreporter/bugreporter-gateway/internal/credentials"
)

// ErrInvalidInput is returned before any request is sent when the input cannot be accepted by the API.
var ErrInvalidInput = fmt.Errorf("invalid input")

// Gateway is the part of apiclient.Client used by the tracker.
type Gateway interface {
	Request(ctx context.Context, method, path string, body any, headers http.Header) (*apiclient.Response, error)
	RequestWithoutAuth(ctx context.Context, method, path string, body any, headers http.Header) (*apiclient.Response, error)
	Store() credentials.Store
}

type Tracker struct {
	gateway Gateway
}

func New(gateway Gateway) (*Tracker, error) {
	if gateway == nil {
		return nil, fmt.Errorf("API gateway not initialized")
	}
	return &Tracker{gateway: gateway}, nil
}

func (t *Tracker) call(ctx context.Context, method, path string, body any, output any) error {
	res, err := t.gateway.Request(ctx, method, path, body, nil)
	if err != nil {
		return err
	}
	if output == nil {
		return nil
	}
	err = res.Decode(output)
	if err != nil {
		return fmt.Errorf("cannot parse the response of %s %s: %w", method, path, err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
