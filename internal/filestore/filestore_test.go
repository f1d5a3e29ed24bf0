package filestore

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

var fileNamePattern = regexp.MustCompile(`^www_example_com_[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\.html$`)

func TestFileName(t *testing.T) {
	t.Parallel()

	u, _ := url.Parse("https://www.example.com:8443/path?q=1")

	first := FileName(u)
	if !fileNamePattern.MatchString(first) {
		t.Errorf("unexpected file name %q", first)
	}
	if second := FileName(u); second == first {
		t.Errorf("expected unique names, got %q twice", first)
	}
}

func TestFileStore_WriteAndDelete(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "files")
	store := New(dir)
	u, _ := url.Parse("https://www.example.com/")

	locator, err := store.Write(context.Background(), u, "<html>hello</html>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Dir(locator) != dir {
		t.Errorf("expected file inside %q, got %q", dir, locator)
	}

	data, err := os.ReadFile(locator) //nolint:gosec // test file
	if err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
	if string(data) != "<html>hello</html>" {
		t.Errorf("unexpected content %q", data)
	}

	if err := store.Delete(locator); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(locator); !os.IsNotExist(err) {
		t.Errorf("expected file to be removed, got %v", err)
	}

	t.Run("deleting a missing file is not an error", func(t *testing.T) {
		if err := store.Delete(locator); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
		if err := store.Delete(""); err != nil {
			t.Errorf("expected nil for empty locator, got %v", err)
		}
	})
}

func TestFileStore_WriteCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := New(t.TempDir())
	u, _ := url.Parse("https://example.com/")
	if _, err := store.Write(ctx, u, "x"); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestFileStore_DropAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := New(dir)
	u, _ := url.Parse("https://example.com/")

	for range 3 {
		if _, err := store.Write(context.Background(), u, "page"); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.DropAll(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("expected directory to survive: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty directory, got %d entries", len(entries))
	}

	t.Run("missing directory", func(t *testing.T) {
		if err := New(filepath.Join(dir, "missing")).DropAll(); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})
}
