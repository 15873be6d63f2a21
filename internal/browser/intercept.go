package browser

import (
	"sync"

	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/law-makers/guc/pkg/models"
)

// blockedResources are never loaded; the portal pages are parsed from the
// DOM alone.
var blockedResources = map[network.ResourceType]bool{
	network.ResourceTypeImage:      true,
	network.ResourceTypeStylesheet: true,
	network.ResourceTypeFont:       true,
	network.ResourceTypeMedia:      true,
}

func isBlocked(rt network.ResourceType) bool {
	return blockedResources[rt]
}

// interceptPatterns pauses every request at the request stage.
func interceptPatterns() []*fetch.RequestPattern {
	return []*fetch.RequestPattern{{
		URLPattern:   "*",
		RequestStage: fetch.RequestStageRequest,
	}}
}

// authenticator answers HTTP auth challenges. Credentials are offered once
// per request; a second challenge for the same request means they were
// rejected, so it is cancelled and the browser shows the server's 401 page.
type authenticator struct {
	mu       sync.Mutex
	creds    *models.Credentials
	attempts map[fetch.RequestID]int
}

func newAuthenticator() *authenticator {
	return &authenticator{attempts: make(map[fetch.RequestID]int)}
}

func (a *authenticator) set(creds models.Credentials) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.creds = &creds
	a.attempts = make(map[fetch.RequestID]int)
}

func (a *authenticator) respond(id fetch.RequestID) *fetch.AuthChallengeResponse {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.attempts[id]++
	if a.creds == nil || a.attempts[id] > 1 {
		// Cancelling ends the request, so its count is no longer needed.
		delete(a.attempts, id)
		return &fetch.AuthChallengeResponse{Response: fetch.AuthChallengeResponseResponseCancelAuth}
	}
	return &fetch.AuthChallengeResponse{
		Response: fetch.AuthChallengeResponseResponseProvideCredentials,
		Username: a.creds.Username,
		Password: a.creds.Password,
	}
}

// forget drops the counts of earlier requests. A request whose credentials
// were accepted is never challenged again, so once a new navigation starts
// the old entries are dead.
func (a *authenticator) forget() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.attempts)
}
