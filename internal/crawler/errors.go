package crawler

import (
	"errors"
	"fmt"
)

// Fetch error kinds. A FetchError wraps exactly one of them, so callers can
// use errors.Is() to tell why a page was not loaded.
var (
	// ErrMalformedURL is returned for URLs that cannot be fetched: parse
	// errors, schemes other than http and https, or an empty host.
	ErrMalformedURL = errors.New("malformed url")

	// ErrTransport is returned when the request fails: DNS, refused
	// connection, TLS or timeout.
	ErrTransport = errors.New("transport error")

	// ErrNotHTML is returned when the response declares a Content-Type
	// that is not HTML.
	ErrNotHTML = errors.New("response is not html")

	// ErrUnreadableBody is returned when the body cannot be read, decoded
	// or parsed.
	ErrUnreadableBody = errors.New("unreadable response body")

	// ErrInvalidProxy is returned by NewFetcher for proxy URLs it cannot dial.
	ErrInvalidProxy = errors.New("invalid proxy format: expected http, https, socks5 or socks5h url")
)

// FetchError describes why a page could not be loaded.
type FetchError struct {
	// URL is the requested URL.
	URL string

	// Err wraps one of the kinds above and the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the wrapped error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

func newFetchError(rawURL string, kind, cause error) *FetchError {
	err := kind
	if cause != nil {
		err = fmt.Errorf("%w: %w", kind, cause)
	}
	return &FetchError{URL: rawURL, Err: err}
}
