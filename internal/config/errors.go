package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and Config.ValidateDatabase()
// so callers can use errors.Is() to react to a specific problem.
var (
	// ErrNoSeed is returned when no seed URL is given to the crawl command.
	ErrNoSeed = errors.New("no seed url specified")

	// ErrInvalidDepth is returned when the crawl depth is negative.
	// Depth 0 fetches the seed page only.
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")

	// ErrInvalidConcurrency is returned when the concurrency limit is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency limit: must be positive")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidProxy is returned when the proxy is not an absolute
	// http, https, socks5 or socks5h URL, or when --use-proxy is given
	// and no proxy host is configured.
	ErrInvalidProxy = errors.New("invalid proxy: expected scheme://host:port with scheme http, https, socks5 or socks5h")

	// ErrConflictingProxy is returned when --tor is combined with a proxy.
	ErrConflictingProxy = errors.New("conflicting proxy settings: --tor cannot be combined with --proxy or --use-proxy")

	// ErrMissingCredentials is returned when a networked database backend
	// is selected without the credentials it needs to connect.
	ErrMissingCredentials = errors.New("missing database credentials")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
