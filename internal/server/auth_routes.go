package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bugreporter/bugreporter-gateway/internal/models"
	"github.com/bugreporter/bugreporter-gateway/internal/tracker"
	"github.com/bugreporter/bugreporter-gateway/internal/utils"
	"github.com/labstack/echo/v4"
)

// loginError is a failed sign in, the API explains the failure in the body of its response.
type loginError struct {
	err error
}

func (e *loginError) Error() string {
	return e.err.Error()
}

func (e *loginError) Unwrap() error {
	return e.err
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges the username and password for credentials kept in a new session.
func (s *Server) Login(c echo.Context) error {
	input := loginRequest{}
	if err := c.Bind(&input); err != nil {
		return err
	}
	session, t, err := s.startSession(c)
	if err != nil {
		return err
	}
	ctx := utils.RequestContext(c)
	if err = t.Login(ctx, input.Username, input.Password); err != nil {
		s.abortSession(c, session, t)
		return &loginError{err: err}
	}
	user, err := t.CurrentUser(ctx)
	if err != nil {
		s.abortSession(c, session, t)
		return err
	}
	s.signedIn(c, session, user)
	return c.JSON(http.StatusOK, user)
}

// Register creates a user and signs it in.
func (s *Server) Register(c echo.Context) error {
	input := tracker.RegisterInput{}
	if err := c.Bind(&input); err != nil {
		return err
	}
	if err := input.Validate(); err != nil {
		return err
	}
	session, t, err := s.startSession(c)
	if err != nil {
		return err
	}
	user, err := t.Register(utils.RequestContext(c), input)
	if err != nil {
		s.abortSession(c, session, t)
		return &loginError{err: err}
	}
	s.signedIn(c, session, user)
	return c.JSON(http.StatusCreated, user)
}

// Logout removes the credentials and the session, it succeeds when there is no session.
func (s *Server) Logout(c echo.Context) error {
	session, err := s.sessions.Get(c)
	if err == nil {
		t, err := s.tracker(session)
		if err != nil {
			return err
		}
		if err = t.Logout(utils.RequestContext(c)); err != nil {
			return err
		}
		s.clients.Remove(session.ID)
	}
	if err = s.sessions.Delete(c); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) GetUser(c echo.Context) error {
	t, err := s.signedInTracker(c)
	if err != nil {
		return err
	}
	user, err := t.CurrentUser(utils.RequestContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// startSession replaces the session of the request with a new one so that a session ID is never
// reused across logins.
func (s *Server) startSession(c echo.Context) (*models.Session, *tracker.Tracker, error) {
	if previous, err := s.sessions.Get(c); err == nil {
		previousTracker, err := s.tracker(previous)
		if err != nil {
			return nil, nil, err
		}
		if err = previousTracker.Logout(utils.RequestContext(c)); err != nil {
			return nil, nil, err
		}
		s.clients.Remove(previous.ID)
		if err = s.sessions.Delete(c); err != nil {
			return nil, nil, err
		}
	}
	session, err := s.sessions.Create(c)
	if err != nil {
		return nil, nil, err
	}
	t, err := s.tracker(session)
	if err != nil {
		return nil, nil, err
	}
	return session, t, nil
}

// abortSession removes the session of a failed sign in with whatever credentials were already stored.
func (s *Server) abortSession(c echo.Context, session *models.Session, t *tracker.Tracker) {
	if err := t.Logout(utils.RequestContext(c)); err != nil {
		slog.Error("SERVER", "message", "could not remove the credentials of a failed login", "error", err, "requestID", utils.GetRequestID(c))
	}
	s.clients.Remove(session.ID)
	err := s.sessions.Delete(c)
	if err != nil {
		slog.Error("SERVER", "message", "could not remove the session of a failed login", "error", err, "requestID", utils.GetRequestID(c))
	}
}

func (s *Server) signedIn(c echo.Context, session *models.Session, user tracker.User) {
	session.UserID = strconv.Itoa(user.ID)
	session.Username = user.Username
	s.metrics.UserLoggedIn()
	slog.Info("SERVER", "message", fmt.Sprintf("user %s signed in", user.Username), "requestID", utils.GetRequestID(c))
}

// signedInTracker returns the tracker of the signed in session of the request.
func (s *Server) signedInTracker(c echo.Context) (*tracker.Tracker, error) {
	session, err := s.sessions.Get(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errNotSignedIn, err)
	}
	if !session.Authenticated() {
		return nil, errNotSignedIn
	}
	return s.tracker(session)
}
