package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
)

// FileCache keeps one file per key inside a directory.
type FileCache struct {
	dir    string
	logger *slog.Logger
}

// NewFileCache creates dir if needed and returns a cache rooted there.
func NewFileCache(dir string, logger *slog.Logger) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileCache{dir: dir, logger: logger}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string {
	return c.dir
}

// path validates key and resolves it inside the cache directory.
func (c *FileCache) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", domainerrors.Validationf("invalid cache key %q", key)
	}
	return filepath.Join(c.dir, key), nil
}

// Get reads the file named key.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	path, err := c.path(key)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path) //#nosec G304 -- key is validated above
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Put writes data to the file named key. The write goes to a temporary file
// that is renamed into place, so readers never see a partial document.
func (c *FileCache) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := c.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, "."+key+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}

	if c.logger != nil {
		c.logger.Debug("cache document written", "path", path, "bytes", len(data))
	}
	return nil
}

// Delete removes the file named key.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := c.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Close is a no-op.
func (c *FileCache) Close() error {
	return nil
}
