// Package auth logs a student into the portal and hands out the Session
// that every later fetch runs under.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/law-makers/guc/internal/browser"
	"github.com/law-makers/guc/internal/portal"
	"github.com/law-makers/guc/pkg/models"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("guc/auth")

// State is the authenticator's position in the login state machine.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
	Failed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "Unauthenticated"
	case Authenticating:
		return "Authenticating"
	case Authenticated:
		return "Authenticated"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

var (
	// ErrMissingCredentials is returned before any page is opened.
	ErrMissingCredentials = errors.New("username and password are required")
	// ErrAlreadyUsed is returned when Login is called on an authenticator
	// that has already left Unauthenticated.
	ErrAlreadyUsed = errors.New("authenticator already used")
)

// Session is proof of a successful login: the credentials the portal
// accepted and the browser they are used with. It only exists for the
// LoginAuthenticated outcome.
type Session struct {
	credentials     models.Credentials
	engine          browser.Engine
	authenticatedAt time.Time
}

// Credentials returns a copy of the accepted credentials.
func (s *Session) Credentials() models.Credentials { return s.credentials }

// Engine returns the browser the session runs in.
func (s *Session) Engine() browser.Engine { return s.engine }

// Username returns the logged in student.
func (s *Session) Username() string { return s.credentials.Username }

// AuthenticatedAt returns when the login succeeded.
func (s *Session) AuthenticatedAt() time.Time { return s.authenticatedAt }

// Authenticator runs a single login attempt.
type Authenticator struct {
	urls portal.URLs

	mu     sync.Mutex
	state  State
	result *portal.LoginResult
}

// NewAuthenticator creates an authenticator for the portal at urls.
func NewAuthenticator(urls portal.URLs) *Authenticator {
	return &Authenticator{urls: urls}
}

// State returns the current state.
func (a *Authenticator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Result returns the classified landing page once Login got that far.
func (a *Authenticator) Result() (portal.LoginResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.result == nil {
		return portal.LoginResult{}, false
	}
	return *a.result, true
}

func (a *Authenticator) transition(to State, result *portal.LoginResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	log.Debug().Stringer("from", a.state).Stringer("to", to).Msg("Authenticator state")
	a.state = to
	if result != nil {
		a.result = result
	}
}

// Login authenticates creds against the portal home page using engine.
//
// A Session is returned only when the landing page classifies as
// authenticated. Portal rejections return the matching *portal.Error;
// browser failures are returned wrapped and leave no classification.
// The login page is always closed.
func (a *Authenticator) Login(ctx context.Context, engine browser.Engine, creds models.Credentials) (*Session, error) {
	if !creds.Valid() {
		return nil, ErrMissingCredentials
	}

	a.mu.Lock()
	if a.state != Unauthenticated {
		a.mu.Unlock()
		return nil, ErrAlreadyUsed
	}
	a.state = Authenticating
	a.mu.Unlock()

	ctx, span := tracer.Start(ctx, "auth.Login")
	defer span.End()

	result, err := a.classify(ctx, engine, creds)
	if err != nil {
		a.transition(Failed, nil)
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("outcome", result.Outcome.String()))

	if !result.Authenticated() {
		a.transition(Failed, &result)
		return nil, result.Err()
	}

	a.transition(Authenticated, &result)
	log.Info().Str("user", creds.Username).Msg("Logged in")

	return &Session{
		credentials:     creds,
		engine:          engine,
		authenticatedAt: time.Now(),
	}, nil
}

func (a *Authenticator) classify(ctx context.Context, target browser.Target, creds models.Credentials) (portal.LoginResult, error) {
	page, err := OpenPage(ctx, target, creds, a.urls.Home)
	if err != nil {
		return portal.LoginResult{}, err
	}
	defer ClosePage(page)

	html, err := page.HTML(ctx)
	if err != nil {
		return portal.LoginResult{}, err
	}

	lp, err := portal.ParseLoginPage(html)
	if err != nil {
		return portal.LoginResult{}, err
	}
	return portal.ClassifyLogin(lp), nil
}

// OpenPage opens a page on target, authenticates it with creds and loads
// url. The page is closed again if any step fails.
func OpenPage(ctx context.Context, target browser.Target, creds models.Credentials, url string) (browser.Page, error) {
	page, err := target.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if err := page.Authenticate(ctx, creds); err != nil {
		ClosePage(page)
		return nil, fmt.Errorf("failed to authenticate page: %w", err)
	}
	if err := page.Navigate(ctx, url); err != nil {
		ClosePage(page)
		return nil, err
	}
	return page, nil
}

// ClosePage closes page, logging rather than returning a failure.
func ClosePage(page browser.Page) {
	if err := page.Close(); err != nil {
		log.Debug().Err(err).Msg("Failed to close page")
	}
}

// CloseContext closes an isolated browser context, logging any failure.
func CloseContext(c browser.Context) {
	if err := c.Close(); err != nil {
		log.Debug().Err(err).Msg("Failed to close browser context")
	}
}
