package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "spider"

	// DefaultDepth fetches the seed and the pages it links to.
	DefaultDepth = 1

	// DefaultConcurrency is the number of fetches allowed in flight at once.
	DefaultConcurrency = 5

	// DefaultTimeout applies to each HTTP request, not to the whole crawl.
	DefaultTimeout = 30 * time.Second

	// DefaultCatchLimit is the number of entries listed by the catch command.
	DefaultCatchLimit = 10

	// DefaultDBType is the storage backend used when none is configured.
	DefaultDBType = "sqlite"

	// DefaultUserAgent identifies the spider in HTTP requests.
	DefaultUserAgent = "spider/1.0 (+https://github.com/nao1215/spider)"

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// proxySchemes lists the proxy URL schemes the fetcher can dial.
var proxySchemes = []string{"http", "https", "socks5", "socks5h"}

// networkedTypes lists database types that need a host, a user and a
// database name. Redis only needs a host.
var networkedTypes = []string{"postgresql", "mysql"}

// Database holds the credentials of the storage backend.
// The same struct is used for the `database:` section of the config file.
type Database struct {
	// Type selects the backend: sqlite, postgresql, mysql or redis.
	Type string `yaml:"type,omitempty"`

	// Username is the login of networked backends.
	Username string `yaml:"username,omitempty"`

	// Password is the password of networked backends.
	Password string `yaml:"password,omitempty"`

	// Host is "host" or "host:port".
	Host string `yaml:"host,omitempty"`

	// Name is the database name. For redis it is the logical DB number.
	Name string `yaml:"name,omitempty"`
}

// IsZero reports whether no database field is set.
func (d Database) IsZero() bool {
	return d == Database{}
}

// Config holds all options of a spider run.
// It is populated from defaults, the config file, the environment and CLI
// flags, then passed down explicitly.
type Config struct {
	// Seed is the URL the crawl starts from.
	Seed string

	// Depth is the maximum link depth. The seed has depth 0.
	Depth int

	// Concurrency bounds the number of in-flight fetches.
	Concurrency int

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// UseCache enables the per-run visited set.
	// Disabling it makes the spider reprocess every discovered URL.
	UseCache bool

	// Overwrite replaces the stored HTML of an already known URL.
	Overwrite bool

	// LogTime logs the elapsed time of every page load.
	LogTime bool

	// Silent hides informational output and shows a spinner instead.
	Silent bool

	// Verbose enables debug logging.
	Verbose bool

	// ProxyHost is the proxy configured in the file or the environment.
	// It is only used when UseProxy is set.
	ProxyHost string

	// UseProxy routes requests through ProxyHost.
	UseProxy bool

	// Proxy is an explicit proxy URL given on the command line.
	Proxy string

	// Tor starts an embedded Tor daemon and routes requests through it.
	Tor bool

	// TorStartupTimeout bounds the Tor bootstrap.
	TorStartupTimeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// DataDir holds the sqlite database and the stored HTML files.
	DataDir string

	// ConfigFilePath is the explicit --config path, if any.
	ConfigFilePath string

	// UpdateCredentials persists the database credentials to the config file.
	UpdateCredentials bool

	// Database holds the storage backend credentials.
	Database Database
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Depth:             DefaultDepth,
		Concurrency:       DefaultConcurrency,
		Timeout:           DefaultTimeout,
		UseCache:          true,
		Overwrite:         true,
		LogTime:           true,
		TorStartupTimeout: DefaultTorStartupTimeout,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		DataDir:           XDGDataDir(),
		Database:          Database{Type: DefaultDBType},
	}
}

// XDGDataDir returns the XDG data directory for the spider.
// On Linux: ~/.local/share/spider
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for the spider.
// On Linux: ~/.config/spider
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// FilesDir returns the directory where page HTML is stored.
func (c *Config) FilesDir() string {
	return filepath.Join(c.DataDir, "files")
}

// ProxyURL returns the proxy the fetcher should use, or "" for a direct
// connection. An explicit --proxy wins over --use-proxy.
func (c *Config) ProxyURL() string {
	if c.Proxy != "" {
		return c.Proxy
	}
	if c.UseProxy {
		return c.ProxyHost
	}
	return ""
}

// ApplyFile copies every value set in f over the current configuration.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.mergeDatabase(f.Database)

	infra := f.Infrastructure
	if infra.ConcurrencyLimit != 0 {
		c.Concurrency = infra.ConcurrencyLimit
	}
	if infra.ProxyHost != "" {
		c.ProxyHost = infra.ProxyHost
	}
	if infra.Timeout != 0 {
		c.Timeout = infra.Timeout
	}
	if infra.UserAgent != "" {
		c.UserAgent = infra.UserAgent
	}
}

func (c *Config) mergeDatabase(d Database) {
	if d.Type != "" {
		c.Database.Type = d.Type
	}
	if d.Username != "" {
		c.Database.Username = d.Username
	}
	if d.Password != "" {
		c.Database.Password = d.Password
	}
	if d.Host != "" {
		c.Database.Host = d.Host
	}
	if d.Name != "" {
		c.Database.Name = d.Name
	}
}

// Validate checks the configuration of a crawl.
// It returns the first problem found as one of the sentinel errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Seed) == "" {
		return ErrNoSeed
	}
	if c.Depth < 0 {
		return ErrInvalidDepth
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.UseProxy && c.Proxy == "" && c.ProxyHost == "" {
		return fmt.Errorf("%w: --use-proxy needs infrastructure.proxy_host or %s", ErrInvalidProxy, EnvProxy)
	}
	if proxy := c.ProxyURL(); proxy != "" {
		if c.Tor {
			return ErrConflictingProxy
		}
		if err := ValidateProxy(proxy); err != nil {
			return err
		}
	}
	return c.ValidateDatabase()
}

// ValidateDatabase checks that the selected backend has the credentials it
// needs. It is enough for commands that never fetch, such as catch and cobweb.
func (c *Config) ValidateDatabase() error {
	db := c.Database
	switch {
	case slices.Contains(networkedTypes, db.Type):
		if db.Username == "" || db.Host == "" || db.Name == "" {
			return fmt.Errorf("%w: %s needs a user, a host and a database name", ErrMissingCredentials, db.Type)
		}
	case db.Type == "redis":
		if db.Host == "" {
			return fmt.Errorf("%w: redis needs a host", ErrMissingCredentials)
		}
	}
	return nil
}

// ValidateProxy checks that raw is an absolute proxy URL with a supported
// scheme and a host.
func ValidateProxy(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	if !slices.Contains(proxySchemes, strings.ToLower(u.Scheme)) || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidProxy, raw)
	}
	return nil
}
