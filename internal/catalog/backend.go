package catalog

import (
	"fmt"
	"path/filepath"
)

// Backend kinds accepted by OpenBackend.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Backend persists a catalog between runs.
type Backend interface {
	// Load adds every stored record and metadata value to c
	Load(c *Catalog) error
	// Save replaces the stored catalog with the content of c
	Save(c *Catalog) error
	Close() error
	Describe() string
}

// Kinds lists the supported backend kinds.
func Kinds() []string {
	return []string{BackendJSON, BackendSQLite, BackendBolt}
}

// FileName returns the catalog file name used by a backend kind.
func FileName(kind string) string {
	switch kind {
	case BackendJSON:
		return "catalog.json"
	case BackendBolt:
		return "catalog.bolt"
	default:
		return "catalog.db"
	}
}

// OpenBackend opens the backend of the given kind inside dir.
func OpenBackend(kind, dir string) (Backend, error) {
	path := filepath.Join(dir, FileName(kind))
	switch kind {
	case BackendJSON:
		return NewJSONFile(path), nil
	case BackendSQLite:
		return NewSQLite(path)
	case BackendBolt:
		return NewBolt(path)
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", kind)
	}
}
