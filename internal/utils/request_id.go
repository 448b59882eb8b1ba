package utils

import (
	"context"

	"github.com/labstack/echo/v4"
)

type requestIDKey struct{}

func GetRequestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// ContextWithRequestID stores the request ID so that it can follow the request to the API.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey{}).(string)
	return requestID
}

// RequestContext returns the context of the echo request carrying its request ID.
func RequestContext(c echo.Context) context.Context {
	return ContextWithRequestID(c.Request().Context(), GetRequestID(c))
}
