package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// fileExt is the extension of every stored page.
const fileExt = ".html"

// FileStore writes page HTML into a single directory.
// The directory is created on the first write.
type FileStore struct {
	dir string
}

// New creates a FileStore rooted at dir.
func New(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the directory the store writes to.
func (s *FileStore) Dir() string {
	return s.dir
}

// Write stores content in a new file and returns its path.
// Two writes for the same URL never share a file.
func (s *FileStore) Write(ctx context.Context, u *url.URL, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", fmt.Errorf("create files directory: %w", err)
	}

	path := filepath.Join(s.dir, FileName(u))
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("write page file: %w", err)
	}
	return path, nil
}

// Delete removes the file behind locator. A bare file name is resolved
// inside the store directory. A file that no longer exists is not an error.
func (s *FileStore) Delete(locator string) error {
	if locator == "" {
		return nil
	}
	path := locator
	if !filepath.IsAbs(path) && filepath.Base(path) == path {
		path = filepath.Join(s.dir, path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete page file: %w", err)
	}
	return nil
}

// DropAll removes every stored file but keeps the directory itself.
func (s *FileStore) DropAll() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("list files directory: %w", err)
	}

	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := s.Delete(entry.Name()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FileName returns "<host with dots replaced by _>_<uuid4>.html".
func FileName(u *url.URL) string {
	host := "unknown"
	if u != nil && u.Hostname() != "" {
		host = strings.ReplaceAll(u.Hostname(), ".", "_")
	}
	return host + "_" + uuid.NewString() + fileExt
}
