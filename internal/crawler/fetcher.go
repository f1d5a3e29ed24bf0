package crawler

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html"
	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"
)

// Fetcher defaults.
const (
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize caps the bytes read from a response body.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultUserAgent identifies the spider in HTTP requests.
	DefaultUserAgent = "spider/1.0 (+https://github.com/nao1215/spider)"

	// maxRedirects stops redirect loops.
	maxRedirects = 10
)

// Fetcher retrieves and parses a single page.
type Fetcher interface {
	Fetch(ctx context.Context, u *url.URL) (*Page, error)
}

// Page is a fetched and parsed HTML page.
type Page struct {
	// URL is the requested URL.
	URL *url.URL

	// FinalURL is the URL after redirects. Relative links resolve against it.
	FinalURL *url.URL

	// Title is the cleaned <title> text. Empty means absent.
	Title string

	// HTML is the body decoded to UTF-8.
	HTML string

	// Document is the parsed body.
	Document *html.Node

	// StatusCode is the HTTP status. Non-2xx pages are still pages.
	StatusCode int

	// ContentType is the Content-Type header value.
	ContentType string
}

// HTTPFetcher implements Fetcher with net/http.
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	timeout     time.Duration
	proxyURL    string
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize caps the bytes read from a response. Longer bodies are
// truncated.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *HTTPFetcher) {
		f.maxBodySize = size
	}
}

// WithProxy routes requests through an http, https, socks5 or socks5h proxy.
func WithProxy(proxyURL string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.proxyURL = proxyURL
	}
}

// WithHTTPClient replaces the HTTP client. Timeout and proxy options are
// then ignored.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// NewFetcher creates an HTTPFetcher. It fails only when the proxy URL is invalid.
func NewFetcher(opts ...FetcherOption) (*HTTPFetcher, error) {
	f := &HTTPFetcher{
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.maxBodySize <= 0 {
		f.maxBodySize = DefaultMaxBodySize
	}

	if f.client == nil {
		transport, err := newTransport(f.proxyURL)
		if err != nil {
			return nil, err
		}
		jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}) //nolint:errcheck // cookiejar.New never fails

		f.client = &http.Client{
			Transport: transport,
			Timeout:   f.timeout,
			Jar:       jar,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}
	return f, nil
}

// newTransport builds the transport, dialing through proxyURL when set.
func newTransport(proxyURL string) (*http.Transport, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		// Accept-Encoding is set and decoded by readBody
		DisableCompression: true,
	}

	if strings.TrimSpace(proxyURL) == "" {
		return transport, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProxy, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidProxy)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if u.User != nil {
			password, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: password}
		}
		socks, err := proxy.SOCKS5("tcp", u.Host, auth, dialer)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidProxy, err)
		}
		contextDialer, ok := socks.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("%w: socks5 dialer does not support contexts", ErrInvalidProxy)
		}
		transport.DialContext = contextDialer.DialContext
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
	}
	return transport, nil
}

// Fetch downloads u and parses it as HTML. Every error is a *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, u *url.URL) (*Page, error) {
	if u == nil {
		return nil, newFetchError("", ErrMalformedURL, nil)
	}
	rawURL := u.String()
	if err := checkFetchable(u); err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, newFetchError(rawURL, ErrMalformedURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, newFetchError(rawURL, ErrTransport, err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !isHTML(contentType) {
		return nil, newFetchError(rawURL, ErrNotHTML, fmt.Errorf("content-type %q", contentType))
	}

	body, err := f.readBody(resp)
	if err != nil {
		return nil, newFetchError(rawURL, ErrUnreadableBody, err)
	}
	content, err := decodeBody(body, contentType)
	if err != nil {
		return nil, newFetchError(rawURL, ErrUnreadableBody, err)
	}
	doc, err := parseDocument(content)
	if err != nil {
		return nil, newFetchError(rawURL, ErrUnreadableBody, err)
	}

	finalURL := u
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}

	return &Page{
		URL:         u,
		FinalURL:    finalURL,
		Title:       extractTitle(doc),
		HTML:        content,
		Document:    doc,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
	}, nil
}

// readBody decodes the Content-Encoding and reads at most maxBodySize bytes.
func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)
	var closer io.Closer

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		reader, closer = gz, gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader, closer = fl, fl
	}
	if closer != nil {
		defer closer.Close()
	}

	body, err := io.ReadAll(io.LimitReader(reader, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// CloseIdleConnections closes idle keep-alive connections.
func (f *HTTPFetcher) CloseIdleConnections() {
	f.client.CloseIdleConnections()
}
