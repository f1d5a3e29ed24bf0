package database

import (
	"context"
	"encoding/hex"
	"log/slog"
	"net/url"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/spider/internal/log"
)

// TableName is the name of the page table in SQL backends.
const TableName = "url"

// Record is a crawled page handed to Store.Save.
type Record struct {
	// URL is the absolute page URL and the upsert key.
	URL string

	// Title is the page title. Empty means the page has none.
	Title string

	// HTML is the decoded page body.
	HTML string

	// Parent is the seed URL of the crawl that found the page.
	Parent string
}

// Entry is a stored page as returned by Store.Get.
type Entry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Hash  string `json:"content_hash"`
}

// Store is the persistence contract shared by every backend.
// Implementations are safe for concurrent use once connected.
type Store interface {
	// Name returns the backend name, e.g. "sqlite".
	Name() string

	// Connect opens the connection. Calling it twice is a no-op.
	Connect(ctx context.Context) error

	// Disconnect closes the connection. Calling it twice is a no-op.
	Disconnect(ctx context.Context) error

	// CreateTable creates the page table. With checkFirst an existing table
	// is not an error, otherwise ErrTableAlreadyExists is returned.
	CreateTable(ctx context.Context, checkFirst bool) error

	// DropTable drops the page table. With checkFirst a missing table is
	// not an error, otherwise ErrTableNotFound is returned.
	DropTable(ctx context.Context, checkFirst bool) error

	// Save upserts rec by URL.
	Save(ctx context.Context, rec Record) error

	// Get returns at most limit entries whose parent is parent, in
	// insertion order. A non-positive limit returns no entries.
	Get(ctx context.Context, parent string, limit int) ([]Entry, error)

	// Count returns the number of stored pages.
	Count(ctx context.Context) (int64, error)
}

// ContentStore keeps page HTML outside the database and hands back a
// locator that the database stores instead.
type ContentStore interface {
	Write(ctx context.Context, u *url.URL, content string) (string, error)
	Delete(locator string) error
	DropAll() error
}

// Credentials identify a backend and how to log in to it.
type Credentials struct {
	// Type is the registered backend name.
	Type string

	Username string
	Password string

	// Host is "host" or "host:port".
	Host string

	// Name is the database name, or the DB number for redis.
	Name string
}

// Options configures a Store.
type Options struct {
	// Content receives page HTML. When nil, HTML is not kept and only its
	// hash is stored.
	Content ContentStore

	// Overwrite replaces the stored HTML of a URL that is saved again.
	Overwrite bool

	// DataDir is the directory of file based backends (sqlite).
	DataDir string

	// Logger receives debug output. When nil, output is discarded.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Content == nil {
		o.Content = noContent{}
	}
	if o.Logger == nil {
		o.Logger = log.Discard()
	}
	return o
}

// ContentHash returns the hex encoded sha3-256 hash of html.
func ContentHash(html string) string {
	sum := sha3.Sum256([]byte(html))
	return hex.EncodeToString(sum[:])
}

// noContent is the ContentStore used when none is configured.
type noContent struct{}

func (noContent) Write(context.Context, *url.URL, string) (string, error) { return "", nil }
func (noContent) Delete(string) error                                    { return nil }
func (noContent) DropAll() error                                         { return nil }
