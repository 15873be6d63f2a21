package config

import (
	"fmt"
	"strings"

	"github.com/law-makers/guc/internal/urlutil"
)

func validate(c *Config) error {
	if err := urlutil.ValidateURL(c.BaseURL); err != nil {
		return fmt.Errorf("base url: %w", err)
	}
	if c.Proxy != "" {
		if err := urlutil.ValidateURL(c.Proxy); err != nil && !strings.HasPrefix(c.Proxy, "socks5://") {
			return fmt.Errorf("proxy: %w", err)
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be > 0")
	}
	if c.LaunchAttempts <= 0 {
		return fmt.Errorf("launch attempts must be > 0")
	}
	if c.MaxParallel <= 0 || c.MaxParallel > MaxParallelLimit {
		return fmt.Errorf("max parallel must be between 1 and %d", MaxParallelLimit)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("rate limit must be >= 0")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be > 0")
	}
	return nil
}
