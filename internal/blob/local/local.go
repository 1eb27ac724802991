package local

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"news-api/internal/blob"
)

// Store writes uploads below Dir and serves them from BaseURL.
type Store struct {
	Dir     string
	BaseURL string
	Folder  string

	now func() time.Time
}

func New(dir, baseURL, folder string) *Store {
	return &Store{
		Dir:     dir,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Folder:  folder,
		now:     time.Now,
	}
}

func (s *Store) Upload(ctx context.Context, f blob.File) (string, error) {
	const op = "blob.local.Upload"

	key := blob.Key(s.Folder, f, s.now())
	dst := filepath.Join(s.Dir, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if _, err := io.Copy(out, f.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return s.BaseURL + "/" + (&url.URL{Path: key}).EscapedPath(), nil
}
