package crawler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestDeduplicated(t *testing.T) {
	t.Parallel()

	var calls int
	next := func(context.Context, Task) error {
		calls++
		return nil
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	load := Deduplicated(next, NewVisitedSet(true), logger)

	for _, raw := range []string{"https://example.com/a", "https://example.com/a#x", "https://example.com/b"} {
		if err := load(context.Background(), Task{URL: mustParse(t, raw), Depth: 1}); err != nil {
			t.Fatal(err)
		}
	}

	if calls != 2 {
		t.Errorf("expected 2 loads, got %d", calls)
	}
	if !strings.Contains(buf.String(), "skip visited url") {
		t.Errorf("expected skip to be logged, got %q", buf.String())
	}
}

func TestLogElapsed(t *testing.T) {
	t.Parallel()

	want := errors.New("boom")
	next := func(context.Context, Task) error { return want }

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	err := LogElapsed(next, logger)(context.Background(), Task{URL: mustParse(t, "https://example.com/"), Depth: 2})
	if !errors.Is(err, want) {
		t.Errorf("expected the wrapped error, got %v", err)
	}

	out := buf.String()
	for _, s := range []string{"msg=loaded", "url=https://example.com/", "depth=2", "elapsed="} {
		if !strings.Contains(out, s) {
			t.Errorf("expected %q in %q", s, out)
		}
	}
}
