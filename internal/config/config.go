// Package config handles the configuration directory, environment overrides
// and backend address resolution.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// AppName is the application directory name.
	AppName = "taskmgr"

	// SessionFile is the file-backed session store filename.
	SessionFile = "session.json"

	// SessionDBFile is the sqlite-backed session store filename.
	SessionDBFile = "session.db"

	// DefaultPageSize is the number of tasks per page.
	DefaultPageSize = 5

	// DefaultBaseURL is used when no override or proxy origin applies.
	DefaultBaseURL = "http://localhost:8080/api"

	// ProxyPath is the path the backend is mounted at behind the reverse proxy.
	ProxyPath = "/api"
)

// Environment variable names.
const (
	EnvAPIURL       = "TASKMGR_API_URL"
	EnvOrigin       = "TASKMGR_ORIGIN"
	EnvPageSize     = "TASKMGR_PAGE_SIZE"
	EnvSessionStore = "TASKMGR_SESSION_STORE"
	EnvTimeout      = "TASKMGR_TIMEOUT"
	EnvDebug        = "TASKMGR_DEBUG"
)

// Session store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// proxiedOrigins are host:port pairs where the client is served behind the
// reverse proxy that forwards ProxyPath to the backend.
var proxiedOrigins = map[string]bool{
	"localhost:3000": true,
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// APIURL is an explicit backend base address. Empty means resolve.
	APIURL string

	// Origin is the address the client is served from, if any.
	Origin string

	// PageSize is the number of tasks requested per page.
	PageSize int

	// SessionStore names the session backend ("file" or "sqlite").
	SessionStore string

	// Timeout bounds each API call. Zero means no timeout.
	Timeout time.Duration

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool
}

// New creates a new Config with the default or specified config directory and
// applies environment overrides.
// If configDir is empty, uses XDG_CONFIG_HOME/taskmgr or $HOME/.config/taskmgr.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{
		Dir:          dir,
		PageSize:     DefaultPageSize,
		SessionStore: StoreFile,
	}
	if err := cfg.LoadFromEnvironment(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnvironment overrides fields from TASKMGR_* variables.
func (c *Config) LoadFromEnvironment() error {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(EnvOrigin); v != "" {
		c.Origin = v
	}
	if v := os.Getenv(EnvPageSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", EnvPageSize, v)
		}
		c.PageSize = n
	}
	if v := os.Getenv(EnvSessionStore); v != "" {
		c.SessionStore = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", EnvTimeout, v)
		}
		c.Timeout = d
	}
	if v := os.Getenv(EnvDebug); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", EnvDebug, v)
		}
		c.Debug = b
	}
	return nil
}

// Validate checks the configuration for values the client cannot work with.
func (c *Config) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive: %d", c.PageSize)
	}
	switch c.SessionStore {
	case StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("unknown session store: %s", c.SessionStore)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %s", c.Timeout)
	}
	if _, err := url.Parse(c.BaseURL()); err != nil {
		return fmt.Errorf("invalid api url: %w", err)
	}
	return nil
}

// BaseURL resolves the backend base address:
// explicit APIURL, else the proxy path on a known proxied origin, else DefaultBaseURL.
func (c *Config) BaseURL() string {
	if c.APIURL != "" {
		return strings.TrimRight(c.APIURL, "/")
	}
	if c.Origin != "" {
		if u, err := url.Parse(c.Origin); err == nil && u.Host != "" {
			if proxiedOrigins[net.JoinHostPort(u.Hostname(), u.Port())] {
				return strings.TrimRight(u.Scheme+"://"+u.Host, "/") + ProxyPath
			}
		}
	}
	return DefaultBaseURL
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// SessionPath returns the path of the file-backed session store.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionFile)
}

// SessionDBPath returns the path of the sqlite-backed session store.
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.Dir, SessionDBFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}
