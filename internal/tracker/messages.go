package tracker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bugreporter/bugreporter-gateway/internal/gwerrors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	DefaultFallbackMessage string = "An unexpected error occurred"
	SessionExpiredMessage  string = "Session expired. Please login again."
	ForbiddenMessage       string = "You do not have permission to perform this action."
	NotFoundMessage        string = "The requested resource was not found."
	ServerErrorMessage     string = "Server error. Please try again later."
	NetworkErrorMessage    string = "Network error. Please check your connection and try again."
	LoginFailedMessage     string = "Invalid username or password."
)

// Message turns an error into a message that can be shown to the user.
func Message(err error, fallback string) string {
	if fallback == "" {
		fallback = DefaultFallbackMessage
	}
	if err == nil {
		return fallback
	}
	if errors.Is(err, gwerrors.ErrAuthExpired) {
		return SessionExpiredMessage
	}
	var reqErr *gwerrors.RequestFailedError
	if errors.As(err, &reqErr) {
		return responseMessage(reqErr, fallback)
	}
	var netErr *gwerrors.NetworkError
	if errors.As(err, &netErr) {
		return NetworkErrorMessage
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// LoginMessage is Message for the errors of Login and Register, where a rejected request means wrong
// credentials and its body explains why.
func LoginMessage(err error) string {
	var reqErr *gwerrors.RequestFailedError
	if errors.As(err, &reqErr) && reqErr.Status < http.StatusInternalServerError {
		if msg := bodyMessage(reqErr.Body); msg != "" {
			return msg
		}
		return LoginFailedMessage
	}
	return Message(err, "")
}

func responseMessage(reqErr *gwerrors.RequestFailedError, fallback string) string {
	switch reqErr.Status {
	case http.StatusUnauthorized:
		return SessionExpiredMessage
	case http.StatusForbidden:
		return ForbiddenMessage
	case http.StatusNotFound:
		return NotFoundMessage
	case http.StatusInternalServerError:
		return ServerErrorMessage
	}
	if msg := bodyMessage(reqErr.Body); msg != "" {
		return msg
	}
	return fmt.Sprintf("Error %d: %s", reqErr.Status, fallback)
}

// bodyMessage reads the error payloads of the API: a plain string, one of the detail, message or
// error fields, non_field_errors or per field errors in the order of the payload.
func bodyMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	if !json.Valid(trimmed) {
		return string(trimmed)
	}
	var text string
	if json.Unmarshal(trimmed, &text) == nil {
		return text
	}
	fields := orderedmap.New[string, any]()
	if err := json.Unmarshal(trimmed, fields); err != nil {
		return ""
	}
	for _, key := range []string{"detail", "message", "error"} {
		if value, ok := fields.Get(key); ok {
			if msg, ok := value.(string); ok && msg != "" {
				return msg
			}
		}
	}
	if value, ok := fields.Get("non_field_errors"); ok {
		if msgs := stringList(value); len(msgs) > 0 {
			return strings.Join(msgs, ", ")
		}
	}
	fieldErrors := []string{}
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		switch value := pair.Value.(type) {
		case string:
			fieldErrors = append(fieldErrors, pair.Key+": "+value)
		case []any:
			fieldErrors = append(fieldErrors, pair.Key+": "+strings.Join(stringList(value), ", "))
		}
	}
	return strings.Join(fieldErrors, "; ")
}

func stringList(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	output := make([]string, 0, len(items))
	for _, item := range items {
		output = append(output, fmt.Sprint(item))
	}
	return output
}
