package apiclient

import (
	"encoding/json"
	"net/http"

	"github.com/bugreporter/bugreporter-gateway/internal/gwerrors"
)

// Response is a successful API response, the body is read completely.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

func (r *Response) successful() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) result() (*Response, error) {
	if !r.successful() {
		return nil, &gwerrors.RequestFailedError{Status: r.StatusCode, Body: r.Body}
	}
	return r, nil
}
