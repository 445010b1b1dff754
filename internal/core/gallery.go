// Package core wires the pipeline for a gallery: it opens the catalog,
// builds the transformer chain, the collection stages and the writers from
// the configuration, and runs crawl and update.
package core

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/kilupskalvis/mosgal/internal/assets"
	"github.com/kilupskalvis/mosgal/internal/catalog"
	"github.com/kilupskalvis/mosgal/internal/config"
)

// Gallery is an opened gallery: its configuration and its catalog.
type Gallery struct {
	Config  *config.Config
	Catalog *catalog.Catalog
	Backend catalog.Backend
	Logger  *slog.Logger
}

// Open opens the catalog backend selected by the configuration.
func Open(cfg *config.Config, logger *slog.Logger) (*Gallery, error) {
	if logger == nil {
		logger = slog.Default()
	}

	backend, err := catalog.OpenBackend(cfg.Catalog.Backend, cfg.GalleryPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	cat, err := catalog.Open(backend, cfg.Root(), logger)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Gallery{Config: cfg, Catalog: cat, Backend: backend, Logger: logger}, nil
}

// Close closes the catalog backend.
func (g *Gallery) Close() error {
	return g.Backend.Close()
}

// NewPlacer returns the asset placer selected by the configuration.
func NewPlacer(cfg *config.Config) (assets.Placer, error) {
	switch cfg.Assets.Strategy {
	case assets.StrategyS3:
		s3 := cfg.Assets.S3
		return assets.NewS3Placer(assets.S3Config{
			Endpoint:  s3.Endpoint,
			Bucket:    s3.Bucket,
			Prefix:    s3.Prefix,
			Region:    s3.Region,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			UseSSL:    s3.UseSSL,
			BaseURL:   s3.BaseURL,
		})
	default:
		return assets.NewFSPlacer(cfg.Assets.Strategy)
	}
}

// thumbnailsCached reports whether every thumbnail recorded for the source
// is still on disk.
func thumbnailsCached(cat *catalog.Catalog, attributes []string) func(source string) bool {
	return func(source string) bool {
		stored, ok := cat.Get(source)
		if !ok {
			return false
		}
		for _, attr := range attributes {
			v, ok := stored.Attr(attr)
			if !ok {
				return false
			}
			if _, err := os.Stat(v.String()); errors.Is(err, os.ErrNotExist) {
				return false
			}
		}
		return true
	}
}
