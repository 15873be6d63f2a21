// Package client is the entry point for fetching a student's records: it
// logs in once and runs every fetch under that session.
//
// A Client is not safe for overlapping Transcript and Grades calls; callers
// that need both should run them one after the other.
package client

import (
	"context"
	"errors"
	"sync"

	"github.com/law-makers/guc/internal/auth"
	"github.com/law-makers/guc/internal/browser"
	"github.com/law-makers/guc/internal/grades"
	"github.com/law-makers/guc/internal/portal"
	"github.com/law-makers/guc/internal/transcript"
	"github.com/law-makers/guc/pkg/models"
	"github.com/rs/zerolog/log"
)

// ErrTerminated is returned by operations on a terminated client.
var ErrTerminated = errors.New("client terminated")

// Options configures Create.
type Options struct {
	// Engine is an already running browser. When nil, Create launches one
	// with Launch and the client owns it.
	Engine browser.Engine
	Launch browser.Options
	// URLs of the portal; the production portal when zero.
	URLs portal.URLs
	// MaxParallel bounds the per-year and per-course fan-out; 0 means no bound.
	MaxParallel int
	// Progress is called once per finished year or course.
	Progress func(item string)
}

// Client holds an authenticated session.
type Client struct {
	session    *auth.Session
	transcript *transcript.Extractor
	grades     *grades.Extractor

	mu         sync.Mutex
	terminated bool
}

// Create launches (or adopts) a browser and logs in. It returns either an
// authenticated client or an error, never a client that failed to log in.
// On failure a browser launched here is closed; a supplied one is left to
// the caller.
func Create(ctx context.Context, creds models.Credentials, opts Options) (*Client, error) {
	if opts.URLs == (portal.URLs{}) {
		opts.URLs = portal.DefaultURLs()
	}

	engine := opts.Engine
	owned := engine == nil
	if owned {
		b, err := browser.Launch(ctx, opts.Launch)
		if err != nil {
			return nil, err
		}
		engine = b
	}

	authenticator := auth.NewAuthenticator(opts.URLs)
	sess, err := authenticator.Login(ctx, engine, creds)
	if err != nil {
		// No result means the browser failed before the portal answered.
		if result, ok := authenticator.Result(); ok {
			log.Warn().
				Str("user", creds.Username).
				Stringer("outcome", result.Outcome).
				Str("message", result.Message).
				Msg("Portal refused the login")
		}
		if owned {
			if cerr := engine.Close(); cerr != nil {
				log.Debug().Err(cerr).Msg("Failed to close browser after failed login")
			}
		}
		return nil, err
	}

	return &Client{
		session: sess,
		transcript: transcript.New(transcript.Options{
			URLs:        opts.URLs,
			MaxParallel: opts.MaxParallel,
			Progress:    opts.Progress,
		}),
		grades: grades.New(grades.Options{
			URLs:        opts.URLs,
			MaxParallel: opts.MaxParallel,
			Progress:    opts.Progress,
		}),
	}, nil
}

// Username returns the logged in student.
func (c *Client) Username() string {
	return c.session.Username()
}

func (c *Client) live() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminated {
		return ErrTerminated
	}
	return nil
}

// Transcript fetches every year with recorded semesters.
func (c *Client) Transcript(ctx context.Context) ([]models.TranscriptYear, error) {
	if err := c.live(); err != nil {
		return nil, err
	}
	return c.transcript.Fetch(ctx, c.session)
}

// Grades fetches midterms and course work.
func (c *Client) Grades(ctx context.Context) (models.Grades, error) {
	if err := c.live(); err != nil {
		return models.Grades{}, err
	}
	return c.grades.Fetch(ctx, c.session)
}

// Terminate closes the browser, including one supplied through
// Options.Engine. Further calls are no-ops.
func (c *Client) Terminate() error {
	c.mu.Lock()
	if c.terminated {
		c.mu.Unlock()
		return nil
	}
	c.terminated = true
	c.mu.Unlock()

	return c.session.Engine().Close()
}
