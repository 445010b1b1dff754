// Package assets places picture files and thumbnails where the published
// site can reach them: the build directory or an S3 compatible bucket.
package assets

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// Strategies accepted by NewFSPlacer
const (
	StrategyCopy = "copy"
	StrategyLink = "link"
	StrategyS3   = "s3"
)

// Strategies lists the supported placement strategies
func Strategies() []string { return []string{StrategyCopy, StrategyLink, StrategyS3} }

// Placer makes one file available to the site. rel is the slash separated
// name of the asset relative to the site root; URL(rel) is what pages link
// to, and Place returns the same URL.
type Placer interface {
	Place(ctx context.Context, src, dest, rel string) (string, error)
	URL(rel string) string
	Describe() string
}

// FSPlacer copies or symlinks assets into the destination directory
type FSPlacer struct {
	Strategy string
}

// NewFSPlacer validates the strategy
func NewFSPlacer(strategy string) (*FSPlacer, error) {
	switch strategy {
	case StrategyCopy, StrategyLink:
		return &FSPlacer{Strategy: strategy}, nil
	case "":
		return &FSPlacer{Strategy: StrategyCopy}, nil
	}
	return nil, fmt.Errorf("unknown placement strategy %q", strategy)
}

// Place writes dest/rel and returns rel
func (p *FSPlacer) Place(ctx context.Context, src, dest, rel string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target := filepath.Join(dest, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("create asset directory: %w", err)
	}

	if p.Strategy == StrategyLink {
		abs, err := filepath.Abs(src)
		if err != nil {
			return "", err
		}
		os.Remove(target)
		if err := os.Symlink(abs, target); err != nil {
			return "", fmt.Errorf("link %s: %w", rel, err)
		}
		return p.URL(rel), nil
	}

	if err := copyFile(src, target); err != nil {
		return "", fmt.Errorf("copy %s: %w", rel, err)
	}
	return p.URL(rel), nil
}

// URL returns rel, relative to the site root
func (p *FSPlacer) URL(rel string) string { return path.Clean(rel) }

// Describe names the strategy
func (p *FSPlacer) Describe() string { return "fs " + p.Strategy }

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
