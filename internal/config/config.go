package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration values.
//
// It never holds the password, which comes from GUC_PASSWORD or the
// interactive prompt only.
type Config struct {
	// Logging
	LogLevel string `yaml:"log_level"`
	JSONLog  bool   `yaml:"json_log"`

	// Portal
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`

	// Browser
	Headless          bool          `yaml:"headless"`
	ChromePath        string        `yaml:"chrome_path"`
	Proxy             string        `yaml:"proxy"`
	UserAgent         string        `yaml:"user_agent"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	LaunchAttempts    int           `yaml:"launch_attempts"`

	// Fan-out and rate limiting
	MaxParallel    int     `yaml:"max_parallel"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	// Snapshots
	SnapshotTTL      time.Duration `yaml:"snapshot_ttl"`
	SnapshotDir      string        `yaml:"snapshot_dir"`
	SnapshotFileOnly bool          `yaml:"snapshot_file_only"`

	// Path of the file the values were read from, empty when none
	Source string `yaml:"-"`
}

// Default returns a Config holding only the built-in defaults.
func Default() *Config {
	return &Config{
		LogLevel:          DefaultLogLevel,
		JSONLog:           DefaultJSONLog,
		BaseURL:           DefaultBaseURL,
		Headless:          DefaultHeadless,
		NavigationTimeout: DefaultNavigationTimeout,
		LaunchAttempts:    DefaultLaunchAttempts,
		MaxParallel:       DefaultMaxParallel,
		RateLimitRPS:      DefaultRateLimitRPS,
		RateLimitBurst:    DefaultRateLimitBurst,
		SnapshotTTL:       DefaultSnapshotTTL,
	}
}

// Load builds a Config by combining defaults, an optional config file, environment variables, and CLI flags.
// Caller should pass the root *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := Default()

	path, explicit := configPath(cmd)
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		} else {
			cfg.Source = path
		}
	}

	applyEnv(cfg)

	if cmd != nil {
		if err := applyFlags(cfg, cmd); err != nil {
			return nil, err
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// configPath returns the file to read and whether the user named it.
func configPath(cmd *cobra.Command) (string, bool) {
	if cmd != nil {
		if f := cmd.Flags().Lookup("config"); f != nil && f.Value.String() != "" {
			return f.Value.String(), true
		}
	}
	if v := os.Getenv("GUC_CONFIG"); v != "" {
		return v, true
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(home, DefaultConfigFile), false
}

// loadFile overlays the YAML file at path onto cfg. Unknown keys are
// rejected so a misplaced "password:" entry is reported instead of ignored.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GUC_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("GUC_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("GUC_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("GUC_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	// GUC_CHROME_PATH and CHROME_PATH are also honoured by browser.FindChrome;
	// reading them here makes them visible in the logged config.
	if v := os.Getenv("GUC_CHROME_PATH"); v != "" {
		cfg.ChromePath = v
	} else if v := os.Getenv("CHROME_PATH"); v != "" && cfg.ChromePath == "" {
		cfg.ChromePath = v
	}
}

func applyFlags(cfg *Config, cmd *cobra.Command) error {
	flags := cmd.Flags()
	changed := func(name string) (string, bool) {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			return "", false
		}
		return f.Value.String(), true
	}

	if s, ok := changed("username"); ok {
		cfg.Username = s
	}
	if s, ok := changed("base-url"); ok {
		cfg.BaseURL = s
	}
	if s, ok := changed("proxy"); ok {
		cfg.Proxy = s
	}
	if s, ok := changed("user-agent"); ok {
		cfg.UserAgent = s
	}
	if s, ok := changed("chrome-path"); ok {
		cfg.ChromePath = s
	}
	if s, ok := changed("timeout"); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid --timeout %q: %w", s, err)
		}
		cfg.NavigationTimeout = d
	}
	if s, ok := changed("parallel"); ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid --parallel %q: %w", s, err)
		}
		cfg.MaxParallel = n
	}
	if s, ok := changed("rate"); ok {
		r, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid --rate %q: %w", s, err)
		}
		cfg.RateLimitRPS = r
	}
	if s, ok := changed("headed"); ok && s == "true" {
		cfg.Headless = false
	}
	if s, ok := changed("json"); ok && s == "true" {
		cfg.JSONLog = true
	}
	if s, ok := changed("quiet"); ok && s == "true" {
		cfg.LogLevel = "error"
	}
	if s, ok := changed("verbose"); ok && s == "true" {
		cfg.LogLevel = "debug"
	}
	return nil
}
