package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/bugreporter/bugreporter-gateway/internal/gwerrors"
	"github.com/bugreporter/bugreporter-gateway/internal/models"
	"github.com/bugreporter/bugreporter-gateway/internal/utils"
)

func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Request(ctx, http.MethodGet, path, nil, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPost, path, body, nil)
}

func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPut, path, body, nil)
}

func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPatch, path, body, nil)
}

func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, path, nil, nil)
}

// Request sends an authenticated request to path, relative to the base URL. The body is sent as JSON,
// byte slices are sent as they are. When the API answers 401 the access token is refreshed and the
// request is sent one more time. Non-2xx responses are returned as *gwerrors.RequestFailedError,
// transport failures as *gwerrors.NetworkError and unrecoverable authentication failures wrap
// gwerrors.ErrAuthExpired.
func (c *Client) Request(ctx context.Context, method, path string, body any, headers http.Header) (*Response, error) {
	payload, target, err := c.prepare(path, body)
	if err != nil {
		return nil, err
	}
	creds, err := c.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	res, err := c.send(ctx, method, target, payload, headers, creds.AccessToken)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusUnauthorized {
		return res.result()
	}

	token, err := c.recoverAuth(ctx, creds.AccessToken)
	if err != nil {
		return nil, err
	}
	slog.Debug(
		"API CLIENT",
		"message",
		"resending the request with a new access token",
		"method",
		method,
		"path",
		target.Path,
		"requestID",
		utils.RequestIDFromContext(ctx),
	)
	c.metrics.RequestRetried()
	res, err = c.send(ctx, method, target, payload, headers, token)
	if err != nil {
		return nil, err
	}
	// a second 401 is surfaced as it is, there is never a second refresh for one call
	return res.result()
}

// RequestWithoutAuth sends a request without credentials and without any handling of 401 responses.
// It is used for the calls that create credentials, such as signing in.
func (c *Client) RequestWithoutAuth(ctx context.Context, method, path string, body any, headers http.Header) (*Response, error) {
	payload, target, err := c.prepare(path, body)
	if err != nil {
		return nil, err
	}
	res, err := c.send(ctx, method, target, payload, headers, "")
	if err != nil {
		return nil, err
	}
	return res.result()
}

func (c *Client) prepare(path string, body any) ([]byte, *url.URL, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, nil, err
	}
	target, err := c.resolve(path)
	if err != nil {
		return nil, nil, err
	}
	return payload, target, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("cannot serialize the request body: %w", err)
		}
		return payload, nil
	}
}

// resolve joins path to the base URL. Absolute URLs are accepted when they point at the API host,
// the API returns such links for pagination.
func (c *Client) resolve(path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("cannot parse the request path %q: %w", path, err)
	}
	if ref.IsAbs() {
		if ref.Scheme != c.baseURL.Scheme || ref.Host != c.baseURL.Host {
			return nil, fmt.Errorf("the URL %q does not belong to the API at %s", path, c.baseURL.Host)
		}
		return ref, nil
	}
	target := c.baseURL.JoinPath(ref.Path)
	target.RawQuery = ref.RawQuery
	return target, nil
}

func (c *Client) send(
	ctx context.Context,
	method string,
	target *url.URL,
	payload []byte,
	headers http.Header,
	accessToken string,
) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for key, values := range c.defaultHeaders {
		req.Header[http.CanonicalHeaderKey(key)] = append([]string{}, values...)
	}
	for key, values := range headers {
		req.Header[http.CanonicalHeaderKey(key)] = append([]string{}, values...)
	}
	if requestID := utils.RequestIDFromContext(ctx); requestID != "" && req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	if accessToken != "" {
		models.CredentialPair{AccessToken: accessToken}.Token().SetAuthHeader(req)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &gwerrors.NetworkError{Err: err}
	}
	defer resp.Body.Close()
	resBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &gwerrors.NetworkError{Err: err}
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: resBody}, nil
}
