package config

import (
	"time"

	"github.com/law-makers/guc/internal/portal"
)

// Default constants for application configuration
const (
	DefaultLogLevel          = "info"
	DefaultJSONLog           = false
	DefaultBaseURL           = portal.DefaultBaseURL
	DefaultNavigationTimeout = 30 * time.Second
	DefaultHeadless          = true
	DefaultMaxParallel       = 4
	MaxParallelLimit         = 16
	DefaultRateLimitRPS      = 2.0
	DefaultRateLimitBurst    = 4
	DefaultLaunchAttempts    = 3
	DefaultSnapshotTTL       = 24 * time.Hour
	DefaultConfigFile        = ".guc/config.yaml" // relative to the home directory
)
