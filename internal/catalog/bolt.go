package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kilupskalvis/mosgal/internal/models"
	bolt "go.etcd.io/bbolt"
)

// Bucket names used by the bolt backend.
var (
	bucketPictures = []byte("pictures")
	bucketKV       = []byte("kv")
)

// Bolt stores the catalog in a bbolt database. Pictures are keyed by
// source and stored as JSON.
type Bolt struct {
	db   *bolt.DB
	path string
}

// NewBolt opens or creates a bbolt database at path.
func NewBolt(path string) (*Bolt, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketPictures, bucketKV} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Bolt{db: db, path: path}, nil
}

// Load reads every picture and metadata value.
func (b *Bolt) Load(c *Catalog) error {
	return b.db.View(func(tx *bolt.Tx) error {
		err := tx.Bucket(bucketPictures).ForEach(func(k, v []byte) error {
			var f models.FileRecord
			if err := json.Unmarshal(v, &f); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			f.Source = string(k)
			c.restore(&f)
			return nil
		})
		if err != nil {
			return err
		}

		return tx.Bucket(bucketKV).ForEach(func(k, v []byte) error {
			c.SetMeta(string(k), string(v))
			return nil
		})
	})
}

// Save replaces the pictures bucket and updates metadata.
func (b *Bolt) Save(c *Catalog) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketPictures); err != nil {
			return fmt.Errorf("clear pictures: %w", err)
		}
		pictures, err := tx.CreateBucket(bucketPictures)
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketPictures, err)
		}

		for _, f := range c.Records() {
			data, err := json.Marshal(f)
			if err != nil {
				return fmt.Errorf("encode %s: %w", f.Source, err)
			}
			if err := pictures.Put([]byte(f.Source), data); err != nil {
				return err
			}
		}

		kv := tx.Bucket(bucketKV)
		for _, k := range c.MetaKeys() {
			if err := kv.Put([]byte(k), []byte(c.Meta(k))); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database.
func (b *Bolt) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Describe returns the backend kind and path.
func (b *Bolt) Describe() string { return "bolt " + b.path }
