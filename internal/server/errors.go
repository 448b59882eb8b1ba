package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bugreporter/bugreporter-gateway/internal/gwerrors"
	"github.com/bugreporter/bugreporter-gateway/internal/tracker"
	"github.com/bugreporter/bugreporter-gateway/internal/utils"
	"github.com/labstack/echo/v4"
)

const SignInRequiredMessage string = "Please login to continue."

var errNotSignedIn = fmt.Errorf("the session is not signed in")

// ErrorResponse is the body of every error returned to the browser. Redirect is set when the user has
// to sign in again, Details carries the response of the API verbatim.
type ErrorResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
	Details  any    `json:"details,omitempty"`
}

// mapErrors turns the errors of the handlers into JSON responses.
func (s *Server) mapErrors(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err == nil || c.Response().Committed {
			return err
		}
		return s.writeError(c, err)
	}
}

func (s *Server) writeError(c echo.Context, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}
	var reqErr *gwerrors.RequestFailedError
	var netErr *gwerrors.NetworkError
	switch {
	case errors.Is(err, gwerrors.ErrAuthExpired):
		s.signOut(c)
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message:  tracker.SessionExpiredMessage,
			Redirect: s.signInPath,
		})
	case errors.Is(err, errNotSignedIn):
		s.signOut(c)
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message:  SignInRequiredMessage,
			Redirect: s.signInPath,
		})
	case errors.Is(err, tracker.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	case errors.As(err, &reqErr):
		message := tracker.Message(err, "")
		var loginErr *loginError
		if errors.As(err, &loginErr) {
			message = tracker.LoginMessage(err)
		}
		return c.JSON(reqErr.Status, ErrorResponse{
			Message: message,
			Details: details(reqErr.Body),
		})
	case errors.As(err, &netErr):
		slog.Error(
			"SERVER",
			"message",
			"the API cannot be reached",
			"error",
			err,
			"requestID",
			utils.GetRequestID(c),
			"traceID",
			utils.GetTraceID(c),
		)
		return c.JSON(http.StatusBadGateway, ErrorResponse{Message: tracker.NetworkErrorMessage})
	}
	slog.Error(
		"SERVER",
		"message",
		"request failed",
		"error",
		err,
		"requestID",
		utils.GetRequestID(c),
		"traceID",
		utils.GetTraceID(c),
	)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: tracker.DefaultFallbackMessage})
}

// signOut forgets the client of the session and removes the session with its cookie.
func (s *Server) signOut(c echo.Context) {
	if session, err := s.sessions.Get(c); err == nil {
		s.clients.Remove(session.ID)
	}
	err := s.sessions.Delete(c)
	if err != nil {
		slog.Error("SERVER", "message", "could not remove the session", "error", err, "requestID", utils.GetRequestID(c))
	}
}

func details(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return string(body)
}
