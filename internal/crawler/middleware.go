package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"time"
)

// Task is a page to load at a given depth. The seed has depth 0.
type Task struct {
	URL   *url.URL
	Depth int
}

// LoadFunc loads one task and, when allowed, its children. It returns an
// error only when ctx is done.
type LoadFunc func(ctx context.Context, task Task) error

// Deduplicated admits each URL at most once per set: a task whose URL is
// already in set is dropped.
func Deduplicated(next LoadFunc, set *VisitedSet, logger *slog.Logger) LoadFunc {
	return func(ctx context.Context, task Task) error {
		if !set.TestAndInsert(task.URL) {
			logger.Debug("skip visited url", "url", task.URL.String(), "depth", task.Depth)
			return nil
		}
		return next(ctx, task)
	}
}

// LogElapsed logs how long next took for each task, children included.
func LogElapsed(next LoadFunc, logger *slog.Logger) LoadFunc {
	return func(ctx context.Context, task Task) error {
		start := time.Now()
		err := next(ctx, task)
		logger.Info("loaded", "url", task.URL.String(), "depth", task.Depth, "elapsed", time.Since(start).Round(time.Millisecond))
		return err
	}
}
