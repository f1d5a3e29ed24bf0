package crawler

import "sync/atomic"

// Stats summarizes a crawl run.
type Stats struct {
	// Successful is the number of pages fetched and parsed.
	Successful int64

	// Attempts is the number of fetches tried, successful or not.
	Attempts int64

	// Saved is the number of pages the store accepted.
	Saved int64

	// SaveErrors is the number of pages the store rejected.
	SaveErrors int64
}

// counters holds the live Stats of one run.
type counters struct {
	successful atomic.Int64
	attempts   atomic.Int64
	saved      atomic.Int64
	saveErrors atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Successful: c.successful.Load(),
		Attempts:   c.attempts.Load(),
		Saved:      c.saved.Load(),
		SaveErrors: c.saveErrors.Load(),
	}
}
