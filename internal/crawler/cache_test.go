package crawler

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestVisitedSet(t *testing.T) {
	t.Parallel()

	t.Run("normalized urls are the same entry", func(t *testing.T) {
		t.Parallel()

		set := NewVisitedSet(true)
		if !set.TestAndInsert(mustParse(t, "https://example.com")) {
			t.Error("expected first insert to succeed")
		}
		for _, raw := range []string{"https://example.com/", "HTTPS://EXAMPLE.COM:443/", "https://example.com/#top"} {
			if set.TestAndInsert(mustParse(t, raw)) {
				t.Errorf("expected %q to be already visited", raw)
			}
		}
		if !set.TestAndInsert(mustParse(t, "https://example.com/other")) {
			t.Error("expected a new url to be admitted")
		}
		if set.Len() != 2 {
			t.Errorf("expected 2 entries, got %d", set.Len())
		}
	})

	t.Run("disabled set admits everything", func(t *testing.T) {
		t.Parallel()

		set := NewVisitedSet(false)
		u := mustParse(t, "https://example.com/")
		for range 3 {
			if !set.TestAndInsert(u) {
				t.Error("expected disabled set to admit the url")
			}
		}
		if set.Len() != 0 {
			t.Errorf("expected disabled set to stay empty, got %d", set.Len())
		}
	})

	t.Run("concurrent inserts admit each url once", func(t *testing.T) {
		t.Parallel()

		set := NewVisitedSet(true)
		var admitted atomic.Int64
		var wg sync.WaitGroup
		for i := range 100 {
			u := mustParse(t, fmt.Sprintf("https://example.com/%d", i%10))
			wg.Go(func() {
				if set.TestAndInsert(u) {
					admitted.Add(1)
				}
			})
		}
		wg.Wait()

		if admitted.Load() != 10 {
			t.Errorf("expected 10 admissions, got %d", admitted.Load())
		}
	})
}
