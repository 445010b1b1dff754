package catalog

import (
	"fmt"

	"github.com/kilupskalvis/mosgal/internal/models"
	"github.com/kilupskalvis/mosgal/internal/pipeline"
)

// Attributes compared by UpToDate. Stat must run before the predicate.
const (
	AttrFileSize = "file_size"
	AttrModified = "modified"
)

// Known returns a predicate true when the file's source is cataloged.
func Known(c *Catalog) pipeline.Predicate {
	return func(f *models.FileRecord) bool { return c.Has(f.Source) }
}

// UpToDate returns a predicate true when the file is cataloged, its size
// and modification time match the stored record, and the stored record
// holds every required attribute.
func UpToDate(c *Catalog, required ...string) pipeline.Predicate {
	return func(f *models.FileRecord) bool {
		stored, ok := c.Get(f.Source)
		if !ok {
			return false
		}
		for _, name := range []string{AttrFileSize, AttrModified} {
			current, ok := f.Attr(name)
			if !ok {
				return false
			}
			previous, ok := stored.Attr(name)
			if !ok || !current.Equal(previous) {
				return false
			}
		}
		for _, name := range required {
			if !stored.Attributes.Has(name) {
				return false
			}
		}
		return true
	}
}

// UpdateFromCatalog copies stored attributes onto the file. Attributes the
// file already holds are kept.
type UpdateFromCatalog struct {
	Catalog *Catalog
}

// Transform merges the stored attributes.
func (u *UpdateFromCatalog) Transform(f *models.FileRecord) error {
	stored, ok := u.Catalog.Get(f.Source)
	if !ok {
		return fmt.Errorf("%s is not cataloged", f.Source)
	}
	for name, v := range stored.Attributes {
		if !f.Attributes.Has(name) {
			f.Attributes.Set(name, v)
		}
	}
	return nil
}

func (u *UpdateFromCatalog) Name() string { return "update from catalog" }

// AddToCatalog stores the file's current attributes in the catalog.
type AddToCatalog struct {
	Catalog *Catalog
}

// Transform stores a copy of f.
func (a *AddToCatalog) Transform(f *models.FileRecord) error {
	a.Catalog.Put(f)
	return nil
}

func (a *AddToCatalog) Name() string { return "add to catalog" }
