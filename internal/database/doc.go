// Package database persists crawled pages.
//
// A Store keeps one row per page URL with the page title, the parent URL
// (the seed of the crawl that found it), a locator pointing at the raw HTML
// kept by a ContentStore, and the sha3-256 hash of that HTML.
//
// Four backends are available through the Registry returned by
// DefaultRegistry:
//   - sqlite: a single file in the data directory (modernc.org/sqlite, CGO-free)
//   - postgresql: a pgx connection pool
//   - mysql: go-sql-driver/mysql through database/sql
//   - redis: hashes and sorted sets, no tables
//
// Saving a URL that is already stored is an upsert. With overwrite enabled
// the new HTML is written and the old file deleted once the row is updated.
// With overwrite disabled the old file and hash are kept.
package database
