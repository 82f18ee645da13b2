// Package cache provides the persistent store for expensive introspection
// results.
//
// Each entry lives in a single flat directory (by default ~/.cache/irscan)
// as a file named by the SHA-1 hex digest of its key. The key is the
// absolute path of the source the value was derived from, and an entry is
// only trusted while its file is at least as new as that source:
//
//  1. Store never overwrites a fresh entry
//  2. Load treats a stale entry as absent but leaves it on disk
//  3. Load purges entries whose payload is truncated or fails its checksum
//
// The cache is best-effort. When the directory cannot be created because of
// permissions, or the path is occupied by a regular file, the cache disables
// itself and every operation becomes a no-op.
package cache

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/Norgate-AV/irscan/internal/logging"
)

const (
	// ToolName is the directory name used under ~/.cache.
	ToolName = "irscan"

	// tempPrefix marks in-flight writes inside the cache directory.
	tempPrefix = ".tmp-"
)

// Cache is a keyed, mtime-validated disk store.
// A Cache with an empty directory is disabled.
type Cache struct {
	fs  afero.Fs
	dir string
}

// Option configures a Cache.
type Option func(*Cache)

// WithFs sets the filesystem used for the cache directory and for
// inspecting source files.
func WithFs(fs afero.Fs) Option {
	return func(c *Cache) {
		c.fs = fs
	}
}

// Stats summarizes the contents of the cache directory.
type Stats struct {
	Entries int
	Bytes   int64
}

// DefaultDir returns ~/.cache/irscan for the current user.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}

	return filepath.Join(home, ".cache", ToolName), nil
}

// Open prepares the cache directory, creating it if needed.
//
// Permission failures and a non-directory at dir do not fail Open; they
// yield a disabled cache instead. Any other error is returned.
func Open(dir string, options ...Option) (*Cache, error) {
	c := &Cache{fs: afero.NewOsFs()}

	for _, option := range options {
		option(c)
	}

	usable, err := c.prepare(dir)
	if err != nil {
		return nil, err
	}

	if usable {
		c.dir = dir
	}

	return c, nil
}

// Disabled returns a cache on which every operation is a no-op.
func Disabled() *Cache {
	return &Cache{fs: afero.NewOsFs()}
}

// Enabled reports whether the cache has a usable directory.
func (c *Cache) Enabled() bool {
	return c.dir != ""
}

// Dir returns the cache directory, or "" when disabled.
func (c *Cache) Dir() string {
	return c.dir
}

// prepare ensures dir exists as a directory. It reports false when caching
// has to be disabled for this process.
func (c *Cache) prepare(dir string) (bool, error) {
	if dir == "" {
		return false, nil
	}

	info, err := c.fs.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			logging.Debug().
				Add(logging.Component("cache")).
				Add(logging.Path(dir)).
				Msg("cache path is not a directory, caching disabled")
			return false, nil
		}

		return true, nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		if isUnusableDir(err) {
			c.logDisabled(dir, err)
			return false, nil
		}

		return false, fmt.Errorf("failed to inspect cache directory: %w", err)
	}

	if err := c.fs.MkdirAll(dir, 0o755); err != nil {
		if isUnusableDir(err) {
			c.logDisabled(dir, err)
			return false, nil
		}

		return false, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return true, nil
}

func (c *Cache) logDisabled(dir string, err error) {
	logging.Debug().
		Add(logging.Component("cache")).
		Add(logging.Path(dir)).
		Add(logging.ErrorField(err)).
		Msg("cache directory unusable, caching disabled")
}

// entryPath maps a key to its store file. It reports false when the cache
// is disabled.
func (c *Cache) entryPath(key string) (string, bool) {
	if !c.Enabled() {
		return "", false
	}

	return filepath.Join(c.dir, Digest(key)), true
}

// isFresh reports whether an entry modified at storeInfo is still derived
// from the current content of the source named by key.
func (c *Cache) isFresh(storeInfo fs.FileInfo, key string) (bool, error) {
	sourceInfo, err := c.fs.Stat(key)
	if err != nil {
		return false, fmt.Errorf("failed to stat cache source %s: %w", key, err)
	}

	return !storeInfo.ModTime().Before(sourceInfo.ModTime()), nil
}

// Store serializes value under key.
//
// It is a no-op when the cache is disabled or when a fresh entry already
// exists, so repeated stores for an unchanged source keep the first value.
// Running out of space while writing is not an error.
func (c *Cache) Store(key string, value any) error {
	path, ok := c.entryPath(key)
	if !ok {
		return nil
	}

	info, err := c.fs.Stat(path)
	switch {
	case err == nil:
		fresh, err := c.isFresh(info, key)
		if err != nil {
			return err
		}

		if fresh {
			logging.Trace().
				Add(logging.Component("cache")).
				Add(logging.Key(key)).
				Msg("fresh entry exists, skipping store")
			return nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("failed to stat cache entry: %w", err)
	}

	data, err := encode(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := c.write(path, data); err != nil {
		if isOutOfSpace(err) {
			logging.Warn().
				Add(logging.Component("cache")).
				Add(logging.Key(key)).
				Add(logging.ErrorField(err)).
				Msg("no space left for cache entry, skipping")
			return nil
		}

		return err
	}

	logging.Debug().
		Add(logging.Component("cache")).
		Add(logging.Operation("store")).
		Add(logging.Key(key)).
		Add(logging.Path(path)).
		Msg("stored cache entry")

	return nil
}

// write replaces path with data via a temp file in the same directory.
func (c *Cache) write(path string, data []byte) (err error) {
	tmp, err := afero.TempFile(c.fs, c.dir, tempPrefix+filepath.Base(path)+"-")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}

	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = c.fs.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache file: %w", err)
	}

	if err = c.fs.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move cache file into place: %w", err)
	}

	return nil
}

// Load decodes the entry for key into value, which must be a pointer.
//
// It reports false when the cache is disabled, the entry does not exist or
// is stale. A truncated or corrupted entry is purged and reported as absent.
// Other read failures are returned.
func (c *Cache) Load(key string, value any) (bool, error) {
	path, ok := c.entryPath(key)
	if !ok {
		return false, nil
	}

	data, info, err := c.read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, err
	}

	fresh, err := c.isFresh(info, key)
	if err != nil {
		return false, err
	}

	if !fresh {
		logging.Debug().
			Add(logging.Component("cache")).
			Add(logging.Key(key)).
			Msg("stale cache entry")
		return false, nil
	}

	if err := decode(data, value); err != nil {
		if errors.Is(err, ErrCorrupt) {
			logging.Warn().
				Add(logging.Component("cache")).
				Add(logging.Key(key)).
				Add(logging.Path(path)).
				Add(logging.ErrorField(err)).
				Msg("broken cache entry, removing it")

			if err := c.purge(path); err != nil {
				return false, err
			}

			return false, nil
		}

		return false, fmt.Errorf("failed to decode cache entry for %s: %w", key, err)
	}

	logging.Debug().
		Add(logging.Component("cache")).
		Add(logging.Operation("load")).
		Add(logging.Key(key)).
		Add(logging.Cached(true)).
		Msg("cache hit")

	return true, nil
}

// read returns the content and file info of path. The file is closed
// before returning so a caller may remove it afterwards.
func (c *Cache) read(path string) ([]byte, fs.FileInfo, error) {
	f, err := c.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, err
		}

		return nil, nil, fmt.Errorf("failed to open cache entry: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat cache entry: %w", err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	return data, info, nil
}

// purge removes path. A missing file or a denied permission is not an error.
func (c *Cache) purge(path string) error {
	err := c.fs.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) || isAccessDenied(err) {
		return nil
	}

	return fmt.Errorf("failed to remove cache entry: %w", err)
}

// Stats counts the entries in the cache directory and their total size.
func (c *Cache) Stats() (Stats, error) {
	var stats Stats

	if !c.Enabled() {
		return stats, nil
	}

	entries, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		return stats, fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, entry := range entries {
		if !isEntry(entry) {
			continue
		}

		stats.Entries++
		stats.Bytes += entry.Size()
	}

	return stats, nil
}

// Clear removes every entry from the cache directory and returns how many
// were removed.
func (c *Cache) Clear() (int, error) {
	if !c.Enabled() {
		return 0, nil
	}

	entries, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(c.dir, entry.Name())
		if err := c.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}

		if isEntry(entry) {
			removed++
		}
	}

	return removed, nil
}

func isEntry(info fs.FileInfo) bool {
	return info.Mode().IsRegular() && !strings.HasPrefix(info.Name(), tempPrefix)
}
