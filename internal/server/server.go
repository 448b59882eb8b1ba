// Package server exposes the issue tracker to the browser. The credentials of a signed in user never
// leave the gateway, every call is forwarded through the API client of the browser session.
package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/bugreporter/bugreporter-gateway/internal/config"
	"github.com/bugreporter/bugreporter-gateway/internal/metrics"
	"github.com/bugreporter/bugreporter-gateway/internal/models"
	"github.com/bugreporter/bugreporter-gateway/internal/sessions"
	"github.com/bugreporter/bugreporter-gateway/internal/tracker"
	"github.com/labstack/echo/v4"
)

const defaultPageSize int = 10

type Server struct {
	// basePath has no trailing slash, the empty path serves the routes at the root
	basePath   string
	signInPath string
	// pageSize is the page size of the API, used to count the pages of a list
	pageSize   int
	sessions   *sessions.SessionStore
	clients    *sessions.ClientCache
	metrics    *metrics.Collectors
}

func (s *Server) RegisterHandlers(server *echo.Echo, commonMiddlewares ...echo.MiddlewareFunc) {
	e := server.Group(s.basePath)
	e.Use(commonMiddlewares...)
	e.Use(s.mapErrors)

	e.POST("/auth/login", s.Login, NoCaching)
	e.POST("/auth/register", s.Register, NoCaching)
	e.POST("/auth/logout", s.Logout, NoCaching)
	e.GET("/auth/user", s.GetUser, NoCaching)

	e.GET("/projects", s.ListProjects)
	e.POST("/projects", s.CreateProject)
	e.GET("/projects/:id", s.GetProject)
	e.PUT("/projects/:id", s.UpdateProject)
	e.DELETE("/projects/:id", s.DeleteProject)
	e.GET("/projects/:id/issues", s.ListProjectIssues)
	e.POST("/projects/:id/issues", s.CreateIssue)
	e.GET("/projects/:id/users", s.ListProjectUsers)

	e.GET("/issues/:id", s.GetIssue)
	e.PATCH("/issues/:id", s.UpdateIssue)
	e.GET("/issues/:id/comments", s.ListComments)
	e.POST("/issues/:id/comments", s.AddComment)

	e.GET("/users", s.ListUsers)
}

// NoCaching sets headers in responses that prevent caching by the browser.
func NoCaching(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		var noCacheHeaders = map[string]string{
			"Expires":         time.Unix(0, 0).Format(time.RFC1123),
			"Cache-Control":   "no-cache, no-store, must-revalidate, max-age=0",
			"X-Accel-Expires": "0",
		}
		for k, v := range noCacheHeaders {
			c.Response().Header().Set(k, v)
		}
		return next(c)
	}
}

// tracker returns the tracker bound to the API client of the session.
func (s *Server) tracker(session *models.Session) (*tracker.Tracker, error) {
	client, err := s.clients.ClientFor(session)
	if err != nil {
		return nil, err
	}
	return tracker.New(client)
}

type ServerOption func(*Server) error

// WithConfig sets the path the routes are served under and the sign in path sent to the browser
// when it has to log in again.
func WithConfig(c config.Config) ServerOption {
	return func(s *Server) error {
		s.basePath = strings.TrimSuffix(c.Server.BasePath, "/")
		s.signInPath = c.API.SignInPath
		if c.API.PageSize > 0 {
			s.pageSize = c.API.PageSize
		}
		return nil
	}
}

func WithSessionStore(store *sessions.SessionStore) ServerOption {
	return func(s *Server) error {
		s.sessions = store
		return nil
	}
}

func WithClientCache(cache *sessions.ClientCache) ServerOption {
	return func(s *Server) error {
		s.clients = cache
		return nil
	}
}

func WithMetrics(collectors *metrics.Collectors) ServerOption {
	return func(s *Server) error {
		s.metrics = collectors
		return nil
	}
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := Server{signInPath: "/", pageSize: defaultPageSize}
	for _, opt := range options {
		err := opt(&server)
		if err != nil {
			return &Server{}, err
		}
	}
	if server.sessions == nil {
		return &Server{}, fmt.Errorf("session store is not initialized")
	}
	if server.clients == nil {
		return &Server{}, fmt.Errorf("client cache is not initialized")
	}
	if server.signInPath == "" {
		return &Server{}, fmt.Errorf("sign in path is not initialized")
	}
	return &server, nil
}
