// Package browsertest provides an in-memory browser.Engine for tests.
//
// Pages are rendered by a Handler from the URL, the credentials the page
// authenticated with and the values selected so far, which is enough to
// model the portal's postback forms without Chrome.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/guc/internal/browser"
	"github.com/law-makers/guc/pkg/models"
)

// Request is what a Handler renders.
type Request struct {
	URL         string
	Credentials models.Credentials
	// Selected maps a select's CSS selector to the value picked on this page.
	Selected map[string]string
}

// Handler returns the HTML for a request.
type Handler func(Request) string

// Call describes a page operation passed to Engine.Hook.
type Call struct {
	Op       string // "navigate", "select" or "wait"
	URL      string
	Selector string
	Value    string
}

// Engine is a fake browser.Engine.
type Engine struct {
	Handler Handler
	// Hook, when set, runs before every navigate, select and wait. A non-nil
	// error fails the operation. It may block on ctx to simulate a slow page.
	Hook func(ctx context.Context, call Call) error

	mu       sync.Mutex
	closed   bool
	closes   int
	contexts []*Context
	pages    []*Page
	calls    []Call
}

var _ browser.Engine = (*Engine)(nil)

// New returns an Engine rendering with h.
func New(h Handler) *Engine {
	return &Engine{Handler: h}
}

func (e *Engine) NewPage(ctx context.Context) (browser.Page, error) {
	return e.newPage(ctx, nil)
}

func (e *Engine) NewContext(ctx context.Context) (browser.Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, browser.ErrClosed
	}
	c := &Context{engine: e}
	e.contexts = append(e.contexts, c)
	return c, nil
}

// Close marks the engine closed. It counts every call.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.closes++
	return nil
}

func (e *Engine) newPage(ctx context.Context, owner *Context) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || (owner != nil && owner.closed) {
		return nil, browser.ErrClosed
	}
	p := &Page{engine: e, owner: owner, selected: map[string]string{}}
	e.pages = append(e.pages, p)
	return p, nil
}

func (e *Engine) hook(ctx context.Context, call Call) error {
	e.mu.Lock()
	e.calls = append(e.calls, call)
	hook := e.Hook
	e.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, call); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// Closed reports whether Close was called, and how many times.
func (e *Engine) Closed() (bool, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed, e.closes
}

// Contexts returns the number of contexts created and how many are still open.
func (e *Engine) Contexts() (created, open int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.contexts {
		if !c.closed {
			open++
		}
	}
	return len(e.contexts), open
}

// Pages returns the number of pages opened and how many are still open.
func (e *Engine) Pages() (created, open int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.pages {
		if !p.closed && (p.owner == nil || !p.owner.closed) {
			open++
		}
	}
	return len(e.pages), open
}

// Calls returns the operations seen so far, in order.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// Context is a fake isolated context.
type Context struct {
	engine *Engine
	closed bool
}

func (c *Context) NewPage(ctx context.Context) (browser.Page, error) {
	return c.engine.newPage(ctx, c)
}

func (c *Context) Close() error {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	c.closed = true
	return nil
}

// Page is a fake tab.
type Page struct {
	engine *Engine
	owner  *Context

	// guarded by engine.mu
	closed   bool
	creds    models.Credentials
	url      string
	selected map[string]string
}

// ErrPageClosed is returned by operations on a closed page.
var ErrPageClosed = errors.New("page is closed")

func (p *Page) usable() error {
	p.engine.mu.Lock()
	defer p.engine.mu.Unlock()
	if p.closed || p.engine.closed || (p.owner != nil && p.owner.closed) {
		return ErrPageClosed
	}
	return nil
}

func (p *Page) request() Request {
	p.engine.mu.Lock()
	defer p.engine.mu.Unlock()
	sel := make(map[string]string, len(p.selected))
	for k, v := range p.selected {
		sel[k] = v
	}
	return Request{URL: p.url, Credentials: p.creds, Selected: sel}
}

func (p *Page) render() string {
	if p.engine.Handler == nil {
		return "<html><head></head><body></body></html>"
	}
	return p.engine.Handler(p.request())
}

func (p *Page) Authenticate(ctx context.Context, creds models.Credentials) error {
	if err := p.usable(); err != nil {
		return err
	}
	p.engine.mu.Lock()
	p.creds = creds
	p.engine.mu.Unlock()
	return ctx.Err()
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := p.usable(); err != nil {
		return err
	}
	if err := p.engine.hook(ctx, Call{Op: "navigate", URL: url}); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	p.engine.mu.Lock()
	p.url = url
	p.selected = map[string]string{}
	p.engine.mu.Unlock()
	return nil
}

func (p *Page) Location(ctx context.Context) (string, error) {
	if err := p.usable(); err != nil {
		return "", err
	}
	return p.request().URL, ctx.Err()
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	if err := p.usable(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.render(), nil
}

func (p *Page) Select(ctx context.Context, selector, value string) error {
	if err := p.usable(); err != nil {
		return err
	}
	if err := p.engine.hook(ctx, Call{Op: "select", URL: p.request().URL, Selector: selector, Value: value}); err != nil {
		return fmt.Errorf("select %s=%q: %w", selector, value, err)
	}
	if !p.has(selector) {
		return fmt.Errorf("select %s: %w", selector, browser.ErrElementNotFound)
	}
	p.engine.mu.Lock()
	p.selected[selector] = value
	p.engine.mu.Unlock()
	return nil
}

// WaitFor fails at once when the element is absent; the fake has no
// asynchronous rendering to wait for.
func (p *Page) WaitFor(ctx context.Context, selector string) error {
	if err := p.usable(); err != nil {
		return err
	}
	if err := p.engine.hook(ctx, Call{Op: "wait", URL: p.request().URL, Selector: selector}); err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	if !p.has(selector) {
		return fmt.Errorf("wait for %s: %w", selector, context.DeadlineExceeded)
	}
	return nil
}

func (p *Page) has(selector string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.render()))
	if err != nil {
		return false
	}
	return doc.Find(selector).Length() > 0
}

func (p *Page) Close() error {
	p.engine.mu.Lock()
	defer p.engine.mu.Unlock()
	p.closed = true
	return nil
}
