package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/law-makers/guc/internal/ratelimit"
	"github.com/law-makers/guc/pkg/models"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("guc/browser")

// ErrElementNotFound is returned by Select when nothing matches.
var ErrElementNotFound = errors.New("element not found")

type page struct {
	ctx     context.Context // chromedp tab context
	cancel  context.CancelFunc
	timeout time.Duration
	limiter ratelimit.Limiter
	auth    *authenticator

	closeOnce sync.Once
	closeErr  error
}

var _ Page = (*page)(nil)

// openPage creates a tab under parent with request interception enabled.
func openPage(ctx context.Context, parent context.Context, opts Options) (*page, error) {
	tabCtx, cancel := chromedp.NewContext(parent)
	p := &page{
		ctx:     tabCtx,
		cancel:  cancel,
		timeout: opts.Timeout,
		limiter: opts.Limiter,
		auth:    newAuthenticator(),
	}

	chromedp.ListenTarget(tabCtx, p.onEvent)

	enable := fetch.Enable().
		WithHandleAuthRequests(true).
		WithPatterns(interceptPatterns())
	if err := start(ctx, tabCtx, cancel, opts.Timeout, enable); err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return p, nil
}

// onEvent runs on the tab's event loop and must not block, so CDP replies
// are sent from their own goroutines.
func (p *page) onEvent(ev any) {
	switch ev := ev.(type) {
	case *fetch.EventRequestPaused:
		go p.handlePaused(ev)
	case *fetch.EventAuthRequired:
		go p.handleAuth(ev)
	}
}

func (p *page) executor() context.Context {
	c := chromedp.FromContext(p.ctx)
	return cdp.WithExecutor(p.ctx, c.Target)
}

func (p *page) handlePaused(ev *fetch.EventRequestPaused) {
	var err error
	if isBlocked(ev.ResourceType) {
		err = fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient).Do(p.executor())
	} else {
		err = fetch.ContinueRequest(ev.RequestID).Do(p.executor())
	}
	if err != nil && p.ctx.Err() == nil {
		log.Debug().Err(err).Str("url", ev.Request.URL).Msg("Failed to resolve paused request")
	}
}

func (p *page) handleAuth(ev *fetch.EventAuthRequired) {
	resp := p.auth.respond(ev.RequestID)
	if resp.Response == fetch.AuthChallengeResponseResponseCancelAuth {
		log.Debug().Str("url", ev.Request.URL).Msg("Cancelling HTTP auth challenge")
	}
	if err := fetch.ContinueWithAuth(ev.RequestID, resp).Do(p.executor()); err != nil && p.ctx.Err() == nil {
		log.Debug().Err(err).Str("url", ev.Request.URL).Msg("Failed to answer auth challenge")
	}
}

// run executes actions on the tab bounded by the page timeout and ctx.
// Cancelling a context derived from the tab context stops the actions
// without closing the tab.
func (p *page) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timed out after %s: %w", p.timeout, context.DeadlineExceeded)
	}
	return err
}

func (p *page) Authenticate(ctx context.Context, creds models.Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.auth.set(creds)
	return nil
}

func (p *page) Navigate(ctx context.Context, url string) error {
	ctx, span := tracer.Start(ctx, "browser.Navigate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("url", url)),
	)
	defer span.End()

	if err := p.limiter.Wait(ctx, url); err != nil {
		return err
	}
	p.auth.forget()

	start := time.Now()
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("navigate to %s: %w", url, err)
	}

	log.Debug().
		Str("url", url).
		Dur("elapsed", time.Since(start)).
		Msg("Navigated")
	return nil
}

func (p *page) Location(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

func (p *page) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return html, nil
}

// selectScript sets a select's value and dispatches the events its inline
// handlers listen for. ASP.NET auto-postback selects submit on change.
const selectScript = `(function(sel, value) {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.value = value;
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})(%s, %s)`

func selectExpression(selector, value string) (string, error) {
	s, err := json.Marshal(selector)
	if err != nil {
		return "", err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(selectScript, s, v), nil
}

func (p *page) Select(ctx context.Context, selector, value string) error {
	expr, err := selectExpression(selector, value)
	if err != nil {
		return err
	}

	var found bool
	if err := p.run(ctx, chromedp.Evaluate(expr, &found)); err != nil {
		return fmt.Errorf("select %s=%q: %w", selector, value, err)
	}
	if !found {
		return fmt.Errorf("select %s: %w", selector, ErrElementNotFound)
	}
	return nil
}

func (p *page) WaitFor(ctx context.Context, selector string) error {
	if err := p.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}

// Close closes the tab. It is safe to call more than once.
func (p *page) Close() error {
	p.closeOnce.Do(func() {
		err := chromedp.Cancel(p.ctx)
		p.cancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			p.closeErr = fmt.Errorf("failed to close page: %w", err)
		}
	})
	return p.closeErr
}
