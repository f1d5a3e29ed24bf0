package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
)

// storedBlob is the content state of a row before a save.
type storedBlob struct {
	exists  bool
	locator string
	hash    string
}

// blobSwap is the content change decided for one save.
type blobSwap struct {
	// locator and hash are written to the row.
	locator string
	hash    string

	// fresh is the blob written by this save. It is deleted when the row
	// update fails.
	fresh string

	// stale is the blob replaced by this save. It is deleted once the row
	// update succeeds.
	stale string
}

// supersede decides which blob a saved row points at.
//   - new URL: write rec.HTML
//   - known URL, overwrite: write rec.HTML, drop the old blob after the row is updated
//   - known URL, no overwrite: keep the old locator and hash
func supersede(ctx context.Context, cs ContentStore, overwrite bool, rec Record, old storedBlob) (blobSwap, error) {
	if old.exists && !overwrite {
		return blobSwap{locator: old.locator, hash: old.hash}, nil
	}

	u, err := url.Parse(rec.URL)
	if err != nil {
		u = nil
	}
	locator, err := cs.Write(ctx, u, rec.HTML)
	if err != nil {
		return blobSwap{}, fmt.Errorf("write content of %s: %w", rec.URL, err)
	}

	swap := blobSwap{
		locator: locator,
		hash:    ContentHash(rec.HTML),
		fresh:   locator,
	}
	if old.exists && old.locator != locator {
		swap.stale = old.locator
	}
	return swap, nil
}

// commit removes the replaced blob.
func (s blobSwap) commit(cs ContentStore, logger *slog.Logger) error {
	if s.stale == "" {
		return nil
	}
	if err := cs.Delete(s.stale); err != nil {
		return err
	}
	logger.Debug("overwrite file", "old", s.stale, "new", s.locator)
	return nil
}

// rollback removes the blob written by a save whose row update failed.
func (s blobSwap) rollback(cs ContentStore) error {
	if s.fresh == "" {
		return nil
	}
	return cs.Delete(s.fresh)
}

// saveWith runs the read, supersede and write steps shared by every backend.
// load reads the current row state. write updates the row and must be
// atomic: either it commits or it leaves the row untouched.
func saveWith(
	ctx context.Context,
	opts Options,
	rec Record,
	load func() (storedBlob, error),
	write func(blobSwap) error,
) error {
	old, err := load()
	if err != nil {
		return err
	}

	swap, err := supersede(ctx, opts.Content, opts.Overwrite, rec, old)
	if err != nil {
		return err
	}

	if err := write(swap); err != nil {
		return errors.Join(err, swap.rollback(opts.Content))
	}

	if err := swap.commit(opts.Content, opts.Logger); err != nil {
		// the row already points at the new blob
		opts.Logger.Warn("failed to delete replaced file", "locator", swap.stale, "error", err)
	}
	return nil
}
