// Package crawler implements the spider: a depth-bounded, concurrency-limited
// web crawler that persists every page it visits.
//
// # Architecture
//
// The Spider coordinates the crawl. Every page is a Task with a depth; the
// seed has depth 0. Loading a task runs through a chain of LoadFuncs:
//
//	Deduplicated -> LogElapsed -> load
//
// Deduplicated admits the seed into the run's VisitedSet. load waits for a
// Limiter slot, fetches and parses the page with a Fetcher, releases the
// slot, hands the page to the database.Store in the background, and, when
// the task is above the maximum depth, starts a goroutine for every link
// returned by ExtractLinks that the VisitedSet admits and waits for them.
//
// Pages are saved under the URL they were loaded from and the seed is
// their parent. Normalized URLs are only used as VisitedSet keys.
//
// # Components
//
//   - Spider: the traversal engine
//   - HTTPFetcher: HTTP GET with proxy, cookie, compression and charset handling
//   - ExtractLinks: lazy iterator over the followable links of a page
//   - VisitedSet: per-run set of normalized URLs
//   - Limiter: bound on in-flight fetches
//
// # Usage
//
//	fetcher, err := crawler.NewFetcher(crawler.WithTimeout(30 * time.Second))
//	spider := crawler.NewSpider(fetcher, store, crawler.WithMaxDepth(2))
//	stats, err := spider.Crawl(ctx, "https://example.com")
//
// Fetch and save failures never stop a crawl. They are logged and the page
// becomes a dead leaf. Only failing to connect to the store, or
// cancellation of ctx, makes Crawl return an error.
package crawler
