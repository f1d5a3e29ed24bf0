package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/spider/internal/database"
	"github.com/nao1215/spider/internal/log"
)

// DefaultMaxDepth fetches the seed and the pages it links to.
const DefaultMaxDepth = 1

// Spider crawls pages from a seed URL and saves them to a store.
// A Spider may run several crawls; each Crawl call gets its own visited
// set and statistics.
type Spider struct {
	// fetcher loads pages.
	fetcher Fetcher

	// store receives every loaded page.
	store database.Store

	// maxDepth is the depth whose pages are saved but not expanded.
	maxDepth int

	// concurrency bounds in-flight fetches of one crawl.
	concurrency int

	// useCache enables the visited set.
	useCache bool

	// logTime logs the elapsed time of each page load.
	logTime bool

	// logger receives crawl progress.
	logger *slog.Logger

	// progress is called after every fetch attempt.
	progress func(Stats)
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seed page, 1 = the seed plus linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithConcurrency sets the number of fetches allowed in flight.
func WithConcurrency(n int) SpiderOption {
	return func(s *Spider) {
		s.concurrency = n
	}
}

// WithCache enables or disables URL deduplication. With the cache off,
// a page linked from several pages is fetched and saved each time.
func WithCache(enabled bool) SpiderOption {
	return func(s *Spider) {
		s.useCache = enabled
	}
}

// WithLogTime enables elapsed time logging for every page.
func WithLogTime(enabled bool) SpiderOption {
	return func(s *Spider) {
		s.logTime = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithProgress registers a callback invoked after every fetch attempt.
// It may be called from several goroutines at once.
func WithProgress(fn func(Stats)) SpiderOption {
	return func(s *Spider) {
		s.progress = fn
	}
}

// NewSpider creates a Spider that loads pages with fetcher and saves them to store.
func NewSpider(fetcher Fetcher, store database.Store, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:     fetcher,
		store:       store,
		maxDepth:    DefaultMaxDepth,
		concurrency: DefaultConcurrency,
		useCache:    true,
		logTime:     true,
		logger:      log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxDepth < 0 {
		s.maxDepth = 0
	}
	return s
}

// Crawl loads seed and every page reachable from it within the maximum
// depth, saving each one with the seed as parent.
//
// Crawl returns an error when the store cannot be prepared, in which case
// nothing is fetched, or when ctx is canceled. On cancellation no new
// fetch starts, loads in flight finish, and pending saves complete before
// Crawl returns. The returned Stats are valid in every case.
func (s *Spider) Crawl(ctx context.Context, seed string) (Stats, error) {
	seedURL, err := ParseSeed(seed)
	if err != nil {
		return Stats{}, err
	}

	if err := s.store.Connect(ctx); err != nil {
		return Stats{}, fmt.Errorf("connect to %s: %w", s.store.Name(), err)
	}
	defer func() {
		if err := s.store.Disconnect(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to disconnect from database", "error", err)
		}
	}()
	if err := s.store.CreateTable(ctx, true); err != nil {
		return Stats{}, fmt.Errorf("prepare %s: %w", s.store.Name(), err)
	}

	run := &crawlRun{
		spider:  s,
		parent:  seedURL.String(),
		visited: NewVisitedSet(s.useCache),
		limiter: NewLimiter(s.concurrency),
		saveCtx: context.WithoutCancel(ctx),
	}

	run.next = LoadFunc(run.load)
	if s.logTime {
		run.next = LogElapsed(run.next, s.logger)
	}

	s.logger.Info("start crawl", "seed", run.parent, "depth", s.maxDepth, "concurrency", run.limiter.Limit())
	crawlErr := Deduplicated(run.next, run.visited, s.logger)(ctx, Task{URL: seedURL, Depth: 0})

	run.saves.Wait()
	if closer, ok := s.fetcher.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}

	stats := run.stats.snapshot()
	s.logger.Info("done", "crawled", stats.Successful, "total_calls", stats.Attempts)

	if crawlErr != nil {
		return stats, fmt.Errorf("crawl %s: %w", run.parent, crawlErr)
	}
	return stats, nil
}

// crawlRun is the state of one Crawl call.
type crawlRun struct {
	spider  *Spider
	parent  string
	visited *VisitedSet
	limiter *Limiter
	stats   counters

	// next loads a task already admitted by visited.
	next LoadFunc

	// saveCtx outlives cancellation so that a started save is never torn down.
	saveCtx context.Context
	saves   sync.WaitGroup
}

// load fetches one page, saves it and loads its children.
func (r *crawlRun) load(ctx context.Context, task Task) error {
	logger := r.spider.logger

	// no new fetch once the crawl is canceled
	if err := ctx.Err(); err != nil {
		return err
	}

	ticket, err := r.limiter.Acquire(ctx)
	if err != nil {
		return err
	}
	page, err := r.spider.fetcher.Fetch(ctx, task.URL)
	r.limiter.Release(ticket)

	r.stats.attempts.Add(1)
	if err != nil {
		r.report()
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return ctxErr
		}
		logger.Info("failed to load page", "url", task.URL.String(), "depth", task.Depth, "error", err)
		return nil
	}
	r.stats.successful.Add(1)
	r.report()

	r.save(database.Record{
		URL:    task.URL.String(),
		Title:  page.Title,
		HTML:   page.HTML,
		Parent: r.parent,
	})

	if task.Depth >= r.spider.maxDepth {
		return nil
	}

	base := page.FinalURL
	if base == nil {
		base = page.URL
	}

	var g errgroup.Group
	for link := range ExtractLinks(page.Document, base) {
		child := Task{URL: link, Depth: task.Depth + 1}
		if !r.visited.TestAndInsert(link) {
			logger.Debug("skip visited url", "url", link.String(), "depth", child.Depth)
			continue
		}
		g.Go(func() error {
			return r.next(ctx, child)
		})
	}
	return g.Wait()
}

// save hands rec to the store without blocking the traversal.
func (r *crawlRun) save(rec database.Record) {
	logger := r.spider.logger

	r.saves.Go(func() {
		if err := r.spider.store.Save(r.saveCtx, rec); err != nil {
			r.stats.saveErrors.Add(1)
			logger.Warn("failed to save page", "url", rec.URL, "error", err)
			return
		}
		r.stats.saved.Add(1)
		logger.Info("save url", "url", rec.URL)
	})
}

func (r *crawlRun) report() {
	if r.spider.progress != nil {
		r.spider.progress(r.stats.snapshot())
	}
}
