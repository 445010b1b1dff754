package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kilupskalvis/mosgal/internal/models"
)

// JSONFile stores the catalog as a single JSON document.
type JSONFile struct {
	path string
}

type jsonCatalog struct {
	Meta     map[string]string    `json:"meta,omitempty"`
	Pictures []*models.FileRecord `json:"pictures"`
}

// NewJSONFile returns a backend reading and writing path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Load reads the document. A missing file is an empty catalog.
func (j *JSONFile) Load(c *Catalog) error {
	data, err := os.ReadFile(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var doc jsonCatalog
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", j.path, err)
	}
	for _, f := range doc.Pictures {
		if f == nil || f.Source == "" {
			continue
		}
		c.restore(f)
	}
	for k, v := range doc.Meta {
		c.SetMeta(k, v)
	}
	return nil
}

// Save writes the document through a temporary file.
func (j *JSONFile) Save(c *Catalog) error {
	doc := jsonCatalog{Meta: make(map[string]string), Pictures: c.Records()}
	for _, k := range c.MetaKeys() {
		doc.Meta[k] = c.Meta(k)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(j.path), 0755); err != nil {
		return fmt.Errorf("create catalog directory: %w", err)
	}
	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return os.Rename(tmp, j.path)
}

// Close is a no-op.
func (j *JSONFile) Close() error { return nil }

// Describe returns the backend kind and path.
func (j *JSONFile) Describe() string { return "json " + j.path }
