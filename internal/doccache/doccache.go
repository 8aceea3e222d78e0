// Package doccache is a content-addressed disk cache for parsed
// documents. Entries are keyed by the document's SHA-256 hash, written
// atomically, and verified on read: a corrupt or mismatched entry is
// deleted and reported as a miss rather than served.
package doccache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arborfin/extractd/internal/document"
)

const entrySuffix = ".json"

// ErrDisabled is returned by Put when the cache has no directory.
var ErrDisabled = errors.New("document cache disabled")

// entry is the on-disk envelope around a parsed document.
type entry struct {
	Hash      string           `json:"hash"`
	CreatedAt time.Time        `json:"created_at"`
	Document  *document.Parsed `json:"document"`
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries int   `json:"entries"`
	Bytes   int64 `json:"bytes"`
}

// Cache stores parsed documents under a single directory. Safe for
// concurrent readers; concurrent writers of the same hash converge on
// identical content, so the last rename winning is harmless.
type Cache struct {
	dir    string
	logger *zap.Logger
}

// New creates the cache directory if needed. An empty dir yields a
// disabled cache where every Get misses.
func New(dir string, logger *zap.Logger) (*Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		return &Cache{logger: logger}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir, logger: logger}, nil
}

// Enabled reports whether the cache is backed by a directory.
func (c *Cache) Enabled() bool { return c.dir != "" }

// Get returns the cached document for a hash. Any defect in the entry
// (unreadable, wrong hash, content drift) invalidates it.
func (c *Cache) Get(hash string) (*document.Parsed, bool) {
	if !c.Enabled() || hash == "" {
		return nil, false
	}

	path := c.entryPath(hash)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Document == nil {
		c.invalidate(path, "corrupt entry")
		return nil, false
	}
	if e.Hash != hash || e.Document.Hash() != hash {
		c.invalidate(path, "hash mismatch")
		return nil, false
	}
	return e.Document, true
}

// Put stores a document under its own content hash. The write goes to a
// temp file in the same directory and is renamed into place, so readers
// never observe a partial entry.
func (c *Cache) Put(doc *document.Parsed) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	if doc == nil {
		return fmt.Errorf("nil document")
	}

	hash := doc.Hash()
	data, err := json.Marshal(entry{
		Hash:      hash,
		CreatedAt: time.Now().UTC(),
		Document:  doc,
	})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, hash+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp entry: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp entry: %w", err)
	}
	if err := os.Rename(tmpName, c.entryPath(hash)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}

// Stats walks the cache directory and counts entries.
func (c *Cache) Stats() Stats {
	var s Stats
	if !c.Enabled() {
		return s
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return s
	}
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), entrySuffix) {
			continue
		}
		s.Entries++
		if info, err := de.Info(); err == nil {
			s.Bytes += info.Size()
		}
	}
	return s
}

// Clear removes every cache entry, leaving the directory in place.
func (c *Cache) Clear() error {
	if !c.Enabled() {
		return nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), entrySuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, de.Name())); err != nil {
			return fmt.Errorf("remove cache entry: %w", err)
		}
	}
	return nil
}

func (c *Cache) entryPath(hash string) string {
	return filepath.Join(c.dir, hash+entrySuffix)
}

func (c *Cache) invalidate(path, reason string) {
	c.logger.Warn("invalidating cache entry",
		zap.String("path", filepath.Base(path)),
		zap.String("reason", reason))
	os.Remove(path)
}
