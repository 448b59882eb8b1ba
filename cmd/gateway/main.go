package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"time"

	"github.com/bugreporter/bugreporter-gateway/internal/apiclient"
	"github.com/bugreporter/bugreporter-gateway/internal/config"
	"github.com/bugreporter/bugreporter-gateway/internal/db"
	"github.com/bugreporter/bugreporter-gateway/internal/metrics"
	"github.com/bugreporter/bugreporter-gateway/internal/server"
	"github.com/bugreporter/bugreporter-gateway/internal/sessions"
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

func main() {
	// Logging setup
	slog.SetDefault(jsonLogger)
	// Load configuration
	ch := config.NewConfigHandler()
	gwConfig, err := ch.Config()
	if err != nil {
		slog.Error("loading the configuration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("loaded config", "config", gwConfig)
	// Set log level to "debug" if activated
	setLogLevel(gwConfig.DebugMode)
	ch.HandleChanges(func(newConfig config.Config, err error) {
		if err != nil {
			slog.Error("CONFIG", "message", "the changed configuration is not valid, keeping the previous one", "error", err)
			return
		}
		// only the log level can change without a restart
		setLogLevel(newConfig.DebugMode)
	})
	ch.Watch()
	// Setup
	e := echo.New()
	e.Pre(
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}),
		middleware.RemoveTrailingSlash(),
	)
	e.Use(middleware.Recover())
	// The banner and the port do not respect the logger formatting we set below so we remove them
	// the port will be logged further down when the server starts.
	e.HideBanner = true
	e.HidePort = true
	// Initialize the db adapters
	dbOptions := []db.RedisAdapterOption{db.WithRedisConfig(gwConfig.Redis)}
	if gwConfig.Sessions.TokenEncryption.Enabled && gwConfig.Sessions.TokenEncryption.SecretKey != "" {
		slog.Info("redis encryption is enabled")
		dbOptions = append(dbOptions, db.WithEncryption(string(gwConfig.Sessions.TokenEncryption.SecretKey)))
	}
	dbAdapter, err := db.NewRedisAdapter(dbOptions...)
	if err != nil {
		slog.Error("DB adapter initialization failed", "error", err)
		os.Exit(1)
	}
	// Health check
	e.GET("/health", func(c echo.Context) error {
		if err := dbAdapter.Ping(c.Request().Context()); err != nil {
			slog.Error("HEALTH", "message", "redis cannot be reached", "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
	// Version endpoint
	buildInfo, ok := debug.ReadBuildInfo()
	version := ""
	if ok && buildInfo != nil {
		version = buildInfo.Main.Version
	}
	e.GET("/version", func(c echo.Context) error {
		return c.String(http.StatusOK, version)
	})
	// Gateway metrics, served with the echo metrics when prometheus is enabled
	collectors, err := metrics.NewCollectors(prometheus.DefaultRegisterer)
	if err != nil {
		slog.Error("metrics initialization failed", "error", err)
		os.Exit(1)
	}
	// Create session store
	sessionStore, err := sessions.NewSessionStore(
		sessions.WithSessionRepository(dbAdapter),
		sessions.WithCredentialsGetter(dbAdapter),
		sessions.WithConfig(gwConfig.Sessions),
	)
	if err != nil {
		slog.Error("failed to initialize sessions", "error", err)
		os.Exit(1)
	}
	// One API client per session, idle clients are evicted by the scheduler
	clientCache, err := sessions.NewClientCache(
		sessions.WithCredentialsRepository(dbAdapter),
		sessions.WithExpiredSessionRemover(dbAdapter),
		sessions.WithIdleTTL(time.Duration(gwConfig.Sessions.IdleSessionTTLSeconds)*time.Second),
		sessions.WithClientOptions(
			apiclient.WithConfig(gwConfig.API),
			apiclient.WithMetrics(collectors),
		),
	)
	if err != nil {
		slog.Error("failed to initialize the API clients", "error", err)
		os.Exit(1)
	}
	scheduler, err := clientCache.GetScheduler()
	if err != nil {
		slog.Error("failed to initialize the API client eviction", "error", err)
		os.Exit(1)
	}
	scheduler.StartAsync()
	defer scheduler.Stop()
	// Add the session store to the common middlewares
	gwMiddlewares := append(commonMiddlewares, sessionStore.Middleware())
	// Initialize the gateway server
	gwServer, err := server.NewServer(
		server.WithConfig(gwConfig),
		server.WithSessionStore(sessionStore),
		server.WithClientCache(clientCache),
		server.WithMetrics(collectors),
	)
	if err != nil {
		slog.Error("gateway handlers initialization failed", "error", err)
		os.Exit(1)
	}
	gwServer.RegisterHandlers(e, gwMiddlewares...)
	// Rate limiting
	if gwConfig.Server.RateLimits.Enabled {
		e.Use(middleware.RateLimiter(
			middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{
					Rate:      rate.Limit(gwConfig.Server.RateLimits.Rate),
					Burst:     gwConfig.Server.RateLimits.Burst,
					ExpiresIn: 3 * time.Minute,
				}),
		),
		)
	}
	// CORS
	if len(gwConfig.Server.AllowOrigin) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     gwConfig.Server.AllowOrigin,
			AllowCredentials: true,
		}))
	}
	// Sentry
	if gwConfig.Monitoring.Sentry.Enabled {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              string(gwConfig.Monitoring.Sentry.Dsn),
			TracesSampleRate: gwConfig.Monitoring.Sentry.SampleRate,
			Environment:      gwConfig.Monitoring.Sentry.Environment,
		})
		if err != nil {
			slog.Error("sentry initialization failed", "error", err)
		}
		e.Use(sentryecho.New(sentryecho.Options{}))
	}
	// Prometheus
	if gwConfig.Monitoring.Prometheus.Enabled {
		e.Use(echoprometheus.NewMiddleware("gateway"))
		go func() {
			metricsServer := echo.New()
			metricsServer.HideBanner = true
			metricsServer.HidePort = true
			metricsServer.GET("/metrics", echoprometheus.NewHandler())
			err := metricsServer.Start(fmt.Sprintf(":%d", gwConfig.Monitoring.Prometheus.Port))
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("prometheus server failed to start", "error", err)
				os.Exit(1)
			}
		}()
	}
	// Start server
	address := fmt.Sprintf("%s:%d", gwConfig.Server.Host, gwConfig.Server.Port)
	slog.Info("starting the server on address " + address)
	go func() {
		err := e.Start(address)
		if err != nil && err != http.ErrServerClosed {
			slog.Error("shutting down the server gracefuly failed", "error", err)
			os.Exit(1)
		}
	}()
	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("received signal to shut down the server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		slog.Error("shutting down the server gracefully failed", "error", err)
		os.Exit(1)
	}
}
