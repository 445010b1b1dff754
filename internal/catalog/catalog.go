// Package catalog persists the attributes computed for every picture so
// later runs can skip expensive transformers for files that did not change.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kilupskalvis/mosgal/internal/models"
)

// Meta keys written by WriteCatalog.
const (
	MetaLastRunID = "last_run_id"
	MetaLastRunAt = "last_run_at"
)

// Catalog is the in-memory picture catalog. Records are stored as copies
// and handed out as copies.
type Catalog struct {
	mu      sync.RWMutex
	root    string
	records map[string]*models.FileRecord
	order   []string
	seen    map[string]bool
	meta    map[string]string

	// records dropped on load because their picture is gone
	missing []*models.FileRecord
}

// New returns an empty catalog for pictures under root.
func New(root string) *Catalog {
	return &Catalog{
		root:    root,
		records: make(map[string]*models.FileRecord),
		seen:    make(map[string]bool),
		meta:    make(map[string]string),
	}
}

// Open loads a catalog from the backend. Records whose path no longer
// exists are rebased onto root; records that cannot be found there either
// are dropped.
func Open(b Backend, root string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := New(root)
	if err := b.Load(c); err != nil {
		return nil, fmt.Errorf("load catalog from %s: %w", b.Describe(), err)
	}

	rebased, dropped := c.reconcile()
	logger.Debug("catalog loaded", "backend", b.Describe(), "records", c.Len(),
		"rebased", rebased, "dropped", dropped)
	return c, nil
}

// Root returns the picture root directory.
func (c *Catalog) Root() string { return c.root }

// Len returns the number of records.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Has reports whether source is cataloged.
func (c *Catalog) Has(source string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.records[source]
	return ok
}

// Get returns a copy of the record for source.
func (c *Catalog) Get(source string) (*models.FileRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.records[source]
	if !ok {
		return nil, false
	}
	return f.Clone(), true
}

// Put stores a copy of f and marks it as seen in this run.
func (c *Catalog) Put(f *models.FileRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(f.Clone())
	c.seen[f.Source] = true
}

// restore adds a record read from a backend without marking it seen.
func (c *Catalog) restore(f *models.FileRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(f)
}

func (c *Catalog) store(f *models.FileRecord) {
	if f.Attributes == nil {
		f.Attributes = make(models.Attributes)
	}
	if _, ok := c.records[f.Source]; !ok {
		c.order = append(c.order, f.Source)
	}
	c.records[f.Source] = f
}

// Records returns copies of every record in insertion order.
func (c *Catalog) Records() []*models.FileRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*models.FileRecord, 0, len(c.order))
	for _, s := range c.order {
		out = append(out, c.records[s].Clone())
	}
	return out
}

// Sources returns every cataloged source, sorted.
func (c *Catalog) Sources() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.records))
	for s := range c.records {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Prune removes records that were not Put since the catalog was opened and
// returns them, along with the records dropped on load.
func (c *Catalog) Prune() []*models.FileRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := c.missing
	c.missing = nil
	kept := c.order[:0]
	for _, s := range c.order {
		if c.seen[s] {
			kept = append(kept, s)
			continue
		}
		removed = append(removed, c.records[s])
		delete(c.records, s)
	}
	c.order = kept
	return removed
}

// Meta returns a metadata value, or "" if unset.
func (c *Catalog) Meta(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.meta[key]
}

// SetMeta sets a metadata value.
func (c *Catalog) SetMeta(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meta[key] = value
}

// MetaKeys returns the metadata keys, sorted.
func (c *Catalog) MetaKeys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.meta))
	for k := range c.meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Catalog) reconcile() (rebased, dropped int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.order[:0]
	for _, s := range c.order {
		f := c.records[s]
		if exists(f.Path) {
			kept = append(kept, s)
			continue
		}

		if c.root != "" {
			candidate := filepath.Join(c.root, filepath.FromSlash(s))
			if exists(candidate) {
				f.Path = candidate
				rebased++
				kept = append(kept, s)
				continue
			}
		}

		c.missing = append(c.missing, f)
		delete(c.records, s)
		dropped++
	}
	c.order = kept
	return rebased, dropped
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
