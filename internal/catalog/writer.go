package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kilupskalvis/mosgal/internal/models"
)

// WriteCatalog saves the catalog through its backend. It stamps the run
// metadata and, when Prune is set, drops records not seen in this run
// together with the files they reference inside CacheDir.
type WriteCatalog struct {
	Catalog  *Catalog
	Backend  Backend
	RunID    string
	Prune    bool
	CacheDir string
	Logger   *slog.Logger
	Now      func() time.Time
}

// Write ignores the collections and destination.
func (w *WriteCatalog) Write(ctx context.Context, _ models.Collections, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	log := w.Logger
	if log == nil {
		log = slog.Default()
	}

	if w.Prune {
		if removed := w.Catalog.Prune(); len(removed) > 0 {
			deleted := 0
			for _, f := range removed {
				n, err := w.removeCached(f)
				if err != nil {
					return err
				}
				deleted += n
				log.Debug("pruned", "source", f.Source, "cached_files", n)
			}
			log.Info("pruned catalog", "removed", len(removed), "cached_files", deleted)
		}
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	if w.RunID != "" {
		w.Catalog.SetMeta(MetaLastRunID, w.RunID)
	}
	w.Catalog.SetMeta(MetaLastRunAt, now().UTC().Format(time.RFC3339))

	if err := w.Backend.Save(w.Catalog); err != nil {
		return err
	}
	log.Info("saved catalog", "backend", w.Backend.Describe(), "records", w.Catalog.Len())
	return nil
}

func (w *WriteCatalog) Name() string { return "catalog" }

// removeCached deletes the files under CacheDir that f's string attributes
// point to. Files already gone are not an error.
func (w *WriteCatalog) removeCached(f *models.FileRecord) (int, error) {
	if w.CacheDir == "" {
		return 0, nil
	}
	n := 0
	for _, name := range f.Attributes.Keys() {
		v, _ := f.Attributes.Get(name)
		p, ok := v.Str()
		if !ok || !within(w.CacheDir, p) {
			continue
		}
		err := os.Remove(p)
		switch {
		case err == nil:
			n++
		case errors.Is(err, fs.ErrNotExist):
		default:
			return n, fmt.Errorf("remove cached %s of %s: %w", name, f.Source, err)
		}
	}
	return n, nil
}

func within(dir, path string) bool {
	if !filepath.IsAbs(path) {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
