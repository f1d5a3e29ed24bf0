package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// defaultPorts maps schemes to the port that is dropped by NormalizeURL.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// NormalizeURL returns a copy of u suitable as a deduplication key:
// lowercase scheme and host, default port removed, empty path replaced by
// "/" and fragment removed.
func NormalizeURL(u *url.URL) *url.URL {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)

	host := strings.ToLower(n.Host)
	if port := n.Port(); port != "" && defaultPorts[n.Scheme] == port {
		host = strings.TrimSuffix(host, ":"+port)
	}
	n.Host = host

	if n.Path == "" && n.Opaque == "" {
		n.Path = "/"
		n.RawPath = ""
	}
	n.Fragment = ""
	n.RawFragment = ""
	return &n
}

// URLKey returns the normalized string form of u.
func URLKey(u *url.URL) string {
	return NormalizeURL(u).String()
}

// ParseSeed parses the crawl start address. An address without a scheme
// gets "https://"; otherwise the address is kept as given. The result is
// the parent of every page of the crawl.
func ParseSeed(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty seed", ErrMalformedURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedURL, err)
	}
	if err := checkFetchable(u); err != nil {
		return nil, err
	}
	return u, nil
}

// checkFetchable reports whether u is an absolute http(s) URL with a host.
func checkFetchable(u *url.URL) error {
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrMalformedURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrMalformedURL)
	}
	return nil
}
