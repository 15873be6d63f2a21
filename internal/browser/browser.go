// Package browser drives a headless Chrome through chromedp.
//
// One Browser process is shared by every operation. Callers open pages on
// it directly or inside an isolated Context (a fresh incognito browser
// context) so that parallel fetches do not share cookies or portal view
// state. Every page blocks images, stylesheets, fonts and media and answers
// HTTP authentication challenges with the credentials it was given.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/law-makers/guc/internal/ratelimit"
	"github.com/law-makers/guc/internal/retry"
	"github.com/law-makers/guc/pkg/models"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a single page operation (navigation, select, wait).
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is sent by every page unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"

// ErrClosed is returned when opening pages on a closed browser or context.
var ErrClosed = errors.New("browser is closed")

// Page is a single tab.
type Page interface {
	// Authenticate sets the credentials used to answer HTTP auth challenges
	// on subsequent navigations.
	Authenticate(ctx context.Context, creds models.Credentials) error
	Navigate(ctx context.Context, url string) error
	// Location returns the URL currently shown.
	Location(ctx context.Context) (string, error)
	// HTML returns the serialized document.
	HTML(ctx context.Context) (string, error)
	// Select picks value in the <select> matched by selector and fires its
	// change handlers.
	Select(ctx context.Context, selector, value string) error
	// WaitFor blocks until an element matching selector is present.
	WaitFor(ctx context.Context, selector string) error
	Close() error
}

// Target opens pages.
type Target interface {
	NewPage(ctx context.Context) (Page, error)
}

// Context is an isolated browser context. Closing it closes its pages.
type Context interface {
	Target
	Close() error
}

// Engine is a running browser.
type Engine interface {
	Target
	NewContext(ctx context.Context) (Context, error)
	Close() error
}

// Options configures Launch.
type Options struct {
	ExecPath  string        // Chrome binary; found automatically when empty
	Headless  bool          // run without a window
	UserAgent string        // defaults to DefaultUserAgent
	Proxy     string        // proxy server URL, optional
	Timeout   time.Duration // per page operation; defaults to DefaultTimeout
	Limiter   ratelimit.Limiter
	Retry     retry.Config
	ExtraArgs []chromedp.ExecAllocatorOption
}

// DefaultOptions returns headless options with default timeout and retry.
func DefaultOptions() Options {
	return Options{
		Headless: true,
		Timeout:  DefaultTimeout,
		Retry:    retry.DefaultConfig(),
	}
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Limiter == nil {
		o.Limiter = ratelimit.Unlimited{}
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry = retry.DefaultConfig()
	}
	return o
}

// Browser is a launched Chrome process. It implements Engine.
type Browser struct {
	opts        Options
	allocCancel context.CancelFunc
	ctx         context.Context // first chromedp context; owns the process
	cancel      context.CancelFunc

	mu     sync.Mutex
	closed bool
}

var _ Engine = (*Browser)(nil)

// Launch starts Chrome, retrying transient start failures. A missing
// executable is not retried.
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	opts = opts.withDefaults()
	execPath := FindChrome(opts.ExecPath)

	var b *Browser
	err := retry.Do(ctx, opts.Retry, func(ctx context.Context, attempt int) error {
		log.Debug().Int("attempt", attempt).Str("chrome", execPath).Msg("Launching browser")

		launched, err := launchOnce(ctx, opts, execPath)
		if err != nil {
			if errors.Is(err, exec.ErrNotFound) {
				return retry.Permanent(err)
			}
			return err
		}
		b = launched
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	log.Debug().
		Bool("headless", opts.Headless).
		Str("version", ChromeVersion(execPath)).
		Msg("Browser ready")
	return b, nil
}

func launchOnce(ctx context.Context, opts Options, execPath string) (*Browser, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(opts, execPath)...)
	bctx, bcancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) { log.Debug().Msgf(format, args...) }),
		chromedp.WithErrorf(func(format string, args ...any) { log.Debug().Msgf(format, args...) }),
	)

	// The first Run on bctx allocates the process and ties it to bctx.
	if err := start(ctx, bctx, bcancel, opts.Timeout); err != nil {
		allocCancel()
		return nil, err
	}

	return &Browser{
		opts:        opts,
		allocCancel: allocCancel,
		ctx:         bctx,
		cancel:      bcancel,
	}, nil
}

func allocatorOptions(opts Options, execPath string) []chromedp.ExecAllocatorOption {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-client-side-phishing-detection", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("safebrowsing-disable-auto-update", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("window-size", "1280,800"),
		chromedp.Flag("disk-cache-size", "0"),
		chromedp.Flag("log-level", "3"),
		chromedp.UserAgent(opts.UserAgent),
	}

	if execPath != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(execPath)}, allocOpts...)
	}

	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}

	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}

	return append(allocOpts, opts.ExtraArgs...)
}

// NewPage opens a tab in the browser's default context.
func (b *Browser) NewPage(ctx context.Context) (Page, error) {
	if b.isClosed() {
		return nil, ErrClosed
	}
	return openPage(ctx, b.ctx, b.opts)
}

// NewContext creates an incognito browser context.
func (b *Browser) NewContext(ctx context.Context) (Context, error) {
	if b.isClosed() {
		return nil, ErrClosed
	}

	cctx, cancel := chromedp.NewContext(b.ctx, chromedp.WithNewBrowserContext())
	if err := start(ctx, cctx, cancel, b.opts.Timeout); err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &isolatedContext{ctx: cctx, opts: b.opts}, nil
}

// Close shuts Chrome down. Calling it again is a no-op.
func (b *Browser) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	err := chromedp.Cancel(b.ctx)
	b.cancel()
	b.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	log.Debug().Msg("Browser closed")
	return nil
}

func (b *Browser) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// isolatedContext is an incognito browser context; the context's own first
// tab stays open as a placeholder until Close disposes the whole context.
type isolatedContext struct {
	ctx  context.Context
	opts Options

	mu     sync.Mutex
	closed bool
}

func (c *isolatedContext) NewPage(ctx context.Context) (Page, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return openPage(ctx, c.ctx, c.opts)
}

func (c *isolatedContext) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if err := chromedp.Cancel(c.ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser context: %w", err)
	}
	return nil
}

// start creates the target behind a fresh chromedp context. The first Run
// must use cctx itself because the tab's event loop lives as long as the
// context given to that Run; ctx and timeout only bound the creation.
func start(ctx, cctx context.Context, cancel context.CancelFunc, timeout time.Duration, actions ...chromedp.Action) error {
	startCtx, startCancel := context.WithTimeout(ctx, timeout)
	defer startCancel()
	stop := context.AfterFunc(startCtx, cancel)
	defer stop()

	if err := chromedp.Run(cctx, actions...); err != nil {
		cancel()
		if ctxErr := startCtx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	if !stop() {
		// startCtx ended just as Run returned and the tab is being torn down.
		return startCtx.Err()
	}
	return nil
}
