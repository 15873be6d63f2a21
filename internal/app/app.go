// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/law-makers/guc/internal/browser"
	"github.com/law-makers/guc/internal/client"
	"github.com/law-makers/guc/internal/config"
	"github.com/law-makers/guc/internal/portal"
	"github.com/law-makers/guc/internal/ratelimit"
	"github.com/law-makers/guc/internal/retry"
	"github.com/law-makers/guc/internal/store"
	"github.com/law-makers/guc/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config      *config.Config
	Logger      *zerolog.Logger
	URLs        portal.URLs
	RateLimiter ratelimit.Limiter

	// Engine, when set, is used instead of launching Chrome.
	Engine browser.Engine

	mu        sync.Mutex
	clients   []*client.Client
	store     *store.Store
	startTime time.Time
}

// logOutput is where logs go; swapped in tests.
var logOutput io.Writer = os.Stderr

// New creates and initializes a new Application with all dependencies.
//
// It configures logging, resolves the portal URLs and creates the per-host
// navigation rate limiter. No browser is started until Connect.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	// Initialize logger based on config
	logLevel := zerolog.ErrorLevel // default: suppress non-verbose info logs
	switch cfg.LogLevel {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	// Treat "info" as non-verbose (don't display info logs unless -v is used)
	default:
		logLevel = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	var logWriter io.Writer
	if cfg.JSONLog {
		logWriter = logOutput
	} else {
		logWriter = zerolog.ConsoleWriter{Out: logOutput}
	}

	logger := zerolog.New(logWriter).With().Timestamp().Logger()
	log.Logger = logger

	logger.Debug().
		Str("level", cfg.LogLevel).
		Bool("json", cfg.JSONLog).
		Str("config", cfg.Source).
		Msg("Logger initialized")

	urls, err := portal.NewURLs(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.NewHostLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	logger.Debug().
		Float64("rps", cfg.RateLimitRPS).
		Int("burst", cfg.RateLimitBurst).
		Msg("Rate limiter initialized")

	a := &Application{
		Config:      cfg,
		Logger:      &logger,
		URLs:        urls,
		RateLimiter: limiter,
		startTime:   time.Now(),
	}

	logger.Debug().Str("portal", urls.Home).Msg("Application initialized successfully")
	return a, nil
}

// BrowserOptions maps the configuration onto browser launch options.
func (a *Application) BrowserOptions() browser.Options {
	cfg := a.Config
	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.LaunchAttempts

	return browser.Options{
		ExecPath:  cfg.ChromePath,
		Headless:  cfg.Headless,
		UserAgent: cfg.UserAgent,
		Proxy:     cfg.Proxy,
		Timeout:   cfg.NavigationTimeout,
		Limiter:   a.RateLimiter,
		Retry:     rc,
	}
}

// Connect logs in and returns a client. The client is terminated by Close
// if the caller has not done so.
func (a *Application) Connect(ctx context.Context, creds models.Credentials, progress func(item string)) (*client.Client, error) {
	c, err := client.Create(ctx, creds, client.Options{
		Engine:      a.Engine,
		Launch:      a.BrowserOptions(),
		URLs:        a.URLs,
		MaxParallel: a.Config.MaxParallel,
		Progress:    progress,
	})
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.clients = append(a.clients, c)
	a.mu.Unlock()

	a.Logger.Info().Str("username", creds.Username).Msg("Connected to portal")
	return c, nil
}

// Store opens the snapshot store on first use.
func (a *Application) Store() (*store.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.store != nil {
		return a.store, nil
	}
	s, err := store.Open(store.Options{
		Dir:      a.Config.SnapshotDir,
		TTL:      a.Config.SnapshotTTL,
		FileOnly: a.Config.SnapshotFileOnly,
	})
	if err != nil {
		return nil, err
	}
	a.store = s
	return s, nil
}

// Close gracefully shuts down the application and all its resources.
//
// Every client returned by Connect is terminated, which closes its browser.
// Errors are logged and the first one is returned after all clients are
// closed.
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Debug().Msg("Shutting down application")

	a.mu.Lock()
	clients := a.clients
	a.clients = nil
	a.mu.Unlock()

	var first error
	for _, c := range clients {
		if err := c.Terminate(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing browser")
			if first == nil {
				first = err
			}
		}
	}

	a.Logger.Debug().Dur("uptime", a.Uptime()).Msg("Application shutdown complete")
	return first
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
