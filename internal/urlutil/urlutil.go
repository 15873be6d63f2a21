// Package urlutil validates and resolves portal URLs.
package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL checks that urlStr is an absolute http(s) URL with a host.
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: must be http or https, got %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	return nil
}

// ResolveURL resolves a possibly-relative href against a base URL.
// Unparseable input is returned unchanged.
func ResolveURL(base, href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return u.String()
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(u).String()
}

// Join resolves path against base after validating base.
func Join(base, path string) (string, error) {
	if err := ValidateURL(base); err != nil {
		return "", err
	}
	return ResolveURL(strings.TrimRight(base, "/")+"/", strings.TrimLeft(path, "/")), nil
}

// Host returns the host of urlStr, or "" when it cannot be parsed.
func Host(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Host
}
