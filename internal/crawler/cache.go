package crawler

import (
	"net/url"
	"sync"
)

// VisitedSet records the URLs a crawl run has already admitted.
// It is safe for concurrent use and lives for one run only.
type VisitedSet struct {
	enabled bool

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewVisitedSet creates an empty set. A disabled set admits every URL,
// which makes the spider reprocess pages it has already seen.
func NewVisitedSet(enabled bool) *VisitedSet {
	return &VisitedSet{
		enabled: enabled,
		seen:    make(map[string]struct{}),
	}
}

// TestAndInsert adds the normalized form of u and reports whether it was
// absent. The check and the insert happen under one lock.
func (v *VisitedSet) TestAndInsert(u *url.URL) bool {
	if !v.enabled {
		return true
	}
	key := URLKey(u)

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.seen[key]; ok {
		return false
	}
	v.seen[key] = struct{}{}
	return true
}

// Len returns the number of URLs in the set.
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}
