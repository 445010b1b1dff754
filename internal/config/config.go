// Package config manages the gallery configuration and the .gallery
// directory structure. It handles loading, saving, validating and
// initializing the configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"

	"github.com/kilupskalvis/mosgal/internal/assets"
	"github.com/kilupskalvis/mosgal/internal/catalog"
	"github.com/kilupskalvis/mosgal/internal/imaging"
	"github.com/kilupskalvis/mosgal/internal/pipeline"
	"github.com/pelletier/go-toml/v2"
)

const (
	GalleryDir   = ".gallery"
	ConfigFile   = "config.toml"
	CacheDir     = "cache"
	ThumbsDir    = "thumbs"
	PagesDir     = "pages"
	TemplatesDir = "templates"
)

// Environment variables read by Load.
const (
	EnvS3AccessKey = "MOSGAL_S3_ACCESS_KEY"
	EnvS3SecretKey = "MOSGAL_S3_SECRET_KEY"
)

// ErrNotGallery is returned when no .gallery directory is found.
var ErrNotGallery = errors.New("not a gallery (or any parent up to root)")

// Config represents the gallery configuration.
type Config struct {
	Crawl       CrawlConfig   `toml:"crawl"`
	Catalog     CatalogConfig `toml:"catalog"`
	Colors      ColorsConfig  `toml:"colors"`
	Thumbnails  []Thumbnail   `toml:"thumbnails"`
	Collections []Collection  `toml:"collections"`
	Site        SiteConfig    `toml:"site"`
	Assets      AssetsConfig  `toml:"assets"`
	Notify      NotifyConfig  `toml:"notify"`
	Serve       ServeConfig   `toml:"serve"`
	root        string        // directory holding .gallery
}

// CrawlConfig selects the pictures.
type CrawlConfig struct {
	Extensions   []string `toml:"extensions"`
	Exclude      []string `toml:"exclude"`
	ExcludedDirs []string `toml:"excluded_dirs"`
	OnError      string   `toml:"on_error"` // "abort" or "skip"
}

// CatalogConfig selects the catalog backend.
type CatalogConfig struct {
	Backend string `toml:"backend"` // "sqlite", "bolt" or "json"
}

// ColorsConfig tunes dominant colour detection.
type ColorsConfig struct {
	Count int `toml:"count"`
}

// Thumbnail describes one thumbnail size.
type Thumbnail struct {
	Name    string `toml:"name"`
	Mode    string `toml:"mode"`
	Width   int    `toml:"width"`
	Height  int    `toml:"height,omitempty"`
	Anchor  string `toml:"anchor,omitempty"`
	Quality int    `toml:"quality,omitempty"`
}

// Collection describes one attribute classification.
type Collection struct {
	Name        string   `toml:"name"`
	Title       string   `toml:"title,omitempty"`
	Description string   `toml:"description,omitempty"`
	Attribute   string   `toml:"attribute"`
	SortBy      string   `toml:"sort_by,omitempty"`
	Descending  bool     `toml:"descending,omitempty"`
	Exclude     []string `toml:"exclude,omitempty"`
	Sidecar     bool     `toml:"sidecar,omitempty"`
}

// SiteConfig controls the generated site.
type SiteConfig struct {
	Name             string   `toml:"name"`
	Index            []string `toml:"index"`
	Destination      string   `toml:"destination,omitempty"`
	TileThumbnail    string   `toml:"tile_thumbnail"`
	PictureThumbnail string   `toml:"picture_thumbnail"`
	PictureFull      string   `toml:"picture_full"` // empty links to the original
}

// AssetsConfig controls where pictures are published.
type AssetsConfig struct {
	Strategy string   `toml:"strategy"` // "copy", "link" or "s3"
	S3       S3Config `toml:"s3"`
}

// S3Config locates the bucket used by the s3 strategy.
type S3Config struct {
	Endpoint  string `toml:"endpoint,omitempty"`
	Bucket    string `toml:"bucket,omitempty"`
	Prefix    string `toml:"prefix,omitempty"`
	Region    string `toml:"region,omitempty"`
	AccessKey string `toml:"access_key,omitempty"`
	SecretKey string `toml:"secret_key,omitempty"`
	UseSSL    bool   `toml:"use_ssl,omitempty"`
	BaseURL   string `toml:"base_url,omitempty"`
}

// NotifyConfig lists the webhooks told about each published site.
type NotifyConfig struct {
	Webhooks []string `toml:"webhooks"`
	Retries  int      `toml:"retries"`
}

// ServeConfig controls the preview server.
type ServeConfig struct {
	Listen string `toml:"listen"`
}

// Default returns the configuration written by Initialize.
func Default() *Config {
	return &Config{
		Crawl: CrawlConfig{
			Extensions: []string{"jpg", "JPG", "jpeg", "JPEG"},
			OnError:    pipeline.PolicyAbort.String(),
		},
		Catalog: CatalogConfig{Backend: catalog.BackendSQLite},
		Colors:  ColorsConfig{Count: 5},
		Thumbnails: []Thumbnail{
			{Name: "small", Mode: imaging.ModeScale, Width: 300},
			{Name: "large", Mode: imaging.ModeScale, Width: 1920, Height: 1920},
			{Name: "tag", Mode: imaging.ModeScaleAndCrop, Width: 300, Height: 225, Anchor: imaging.AnchorCenter},
		},
		Collections: []Collection{
			{Name: "album", Title: "Albums", Attribute: imaging.AttrParentDirectory, Sidecar: true},
			{Name: "date", Title: "Dates", Attribute: imaging.AttrMonthYear, SortBy: imaging.AttrDateTaken},
			{Name: "focal", Title: "Focal lengths", Attribute: imaging.AttrFocalClass},
			{Name: "color", Title: "Colors", Attribute: imaging.AttrDominantColorNames},
		},
		Site: SiteConfig{
			Name:             "Gallery",
			Index:            []string{"album", "date"},
			TileThumbnail:    "tag",
			PictureThumbnail: "small",
			PictureFull:      "large",
		},
		Assets: AssetsConfig{Strategy: assets.StrategyCopy},
		Notify: NotifyConfig{Webhooks: []string{}, Retries: 2},
		Serve:  ServeConfig{Listen: "127.0.0.1:8000"},
	}
}

// FindRoot finds the gallery root by walking up from start looking for a
// .gallery directory.
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		galleryPath := filepath.Join(dir, GalleryDir)
		if info, err := os.Stat(galleryPath); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotGallery
		}
		dir = parent
	}
}

// Load finds the gallery containing start and loads its configuration.
// Keys absent from the file keep their default value.
func Load(start string) (*Config, error) {
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		start = cwd
	}

	root, err := FindRoot(start)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(root, GalleryDir, ConfigFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.root = root

	if cfg.Assets.S3.AccessKey == "" {
		cfg.Assets.S3.AccessKey = os.Getenv(EnvS3AccessKey)
	}
	if cfg.Assets.S3.SecretKey == "" {
		cfg.Assets.S3.SecretKey = os.Getenv(EnvS3SecretKey)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// parse overlays data on the defaults. Array tables replace the default
// list instead of extending it.
func parse(data []byte) (*Config, error) {
	cfg := Default()
	cfg.Thumbnails, cfg.Collections = nil, nil
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	def := Default()
	if cfg.Thumbnails == nil {
		cfg.Thumbnails = def.Thumbnails
	}
	if cfg.Collections == nil {
		cfg.Collections = def.Collections
	}
	return cfg, nil
}

// Save saves the configuration to disk.
func (c *Config) Save() error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(c.ConfigPath(), data, 0644)
}

// Initialize creates a .gallery directory under root with the default
// configuration.
func Initialize(root string) (*Config, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", pipeline.ErrRootNotFound, root)
	}

	galleryPath := filepath.Join(root, GalleryDir)
	if _, err := os.Stat(galleryPath); err == nil {
		return nil, fmt.Errorf("gallery already exists in %s", root)
	}

	cfg := Default()
	cfg.root = root

	for _, dir := range []string{galleryPath, cfg.ThumbsPath(), cfg.PagesPath(), cfg.TemplatesPath()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			os.RemoveAll(galleryPath)
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	if err := cfg.Save(); err != nil {
		// Cleanup on failure
		os.RemoveAll(galleryPath)
		return nil, err
	}
	return cfg, nil
}

// Root returns the picture root, the directory holding .gallery.
func (c *Config) Root() string { return c.root }

// GalleryPath returns the path to the .gallery directory.
func (c *Config) GalleryPath() string { return filepath.Join(c.root, GalleryDir) }

// ConfigPath returns the path to the configuration file.
func (c *Config) ConfigPath() string { return filepath.Join(c.GalleryPath(), ConfigFile) }

// ThumbsPath returns the thumbnail cache directory.
func (c *Config) ThumbsPath() string { return filepath.Join(c.GalleryPath(), CacheDir, ThumbsDir) }

// PagesPath returns the directory of extra Markdown pages.
func (c *Config) PagesPath() string { return filepath.Join(c.GalleryPath(), PagesDir) }

// TemplatesPath returns the template override directory.
func (c *Config) TemplatesPath() string { return filepath.Join(c.GalleryPath(), TemplatesDir) }

// Thumbnail returns the thumbnail definition with the given name.
func (c *Config) Thumbnail(name string) (Thumbnail, bool) {
	for _, t := range c.Thumbnails {
		if t.Name == name {
			return t, true
		}
	}
	return Thumbnail{}, false
}

// Policy returns the parsed crawl error policy.
func (c *Config) Policy() pipeline.ErrorPolicy {
	p, err := pipeline.ParsePolicy(c.Crawl.OnError)
	if err != nil {
		return pipeline.PolicyAbort
	}
	return p
}

// Validate rejects configurations the pipeline cannot run.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if len(c.Crawl.Extensions) == 0 {
		fail("crawl.extensions is empty")
	}
	if _, err := pipeline.ParsePolicy(c.Crawl.OnError); err != nil {
		fail("crawl.on_error: %v", err)
	}
	if !slices.Contains(catalog.Kinds(), c.Catalog.Backend) {
		fail("catalog.backend: unknown backend %q", c.Catalog.Backend)
	}
	if c.Colors.Count <= 0 {
		fail("colors.count must be positive")
	}

	thumbs := make(map[string]bool)
	for _, t := range c.Thumbnails {
		switch {
		case t.Name == "":
			fail("thumbnail without name")
		case thumbs[t.Name]:
			fail("thumbnail %q defined twice", t.Name)
		case !slices.Contains(imaging.Modes(), t.Mode):
			fail("thumbnail %q: unknown mode %q", t.Name, t.Mode)
		case t.Mode == imaging.ModeScaleAndCrop && (t.Width <= 0 || t.Height <= 0):
			fail("thumbnail %q: %s needs width and height", t.Name, t.Mode)
		case t.Mode == imaging.ModeScaleAndCrop && t.Anchor != "" && !slices.Contains(imaging.Anchors(), t.Anchor):
			fail("thumbnail %q: unknown anchor %q", t.Name, t.Anchor)
		case t.Width < 0 || t.Height < 0 || (t.Width == 0 && t.Height == 0):
			fail("thumbnail %q: invalid size %dx%d", t.Name, t.Width, t.Height)
		}
		thumbs[t.Name] = true
	}

	collections := make(map[string]bool)
	for _, col := range c.Collections {
		switch {
		case col.Name == "":
			fail("collection without name")
		case collections[col.Name]:
			fail("collection %q defined twice", col.Name)
		case col.Attribute == "":
			fail("collection %q has no attribute", col.Name)
		}
		collections[col.Name] = true
	}

	for _, name := range c.Site.Index {
		if !collections[name] {
			fail("site.index: unknown collection %q", name)
		}
	}
	for key, name := range map[string]string{
		"site.tile_thumbnail":    c.Site.TileThumbnail,
		"site.picture_thumbnail": c.Site.PictureThumbnail,
	} {
		if !thumbs[name] {
			fail("%s: unknown thumbnail %q", key, name)
		}
	}
	if c.Site.PictureFull != "" && !thumbs[c.Site.PictureFull] {
		fail("site.picture_full: unknown thumbnail %q", c.Site.PictureFull)
	}

	if !slices.Contains(assets.Strategies(), c.Assets.Strategy) {
		fail("assets.strategy: unknown strategy %q", c.Assets.Strategy)
	}
	if c.Assets.Strategy == assets.StrategyS3 && (c.Assets.S3.Endpoint == "" || c.Assets.S3.Bucket == "") {
		fail("assets.s3: endpoint and bucket are required")
	}

	if c.Notify.Retries < 0 {
		fail("notify.retries must not be negative")
	}
	for _, u := range c.Notify.Webhooks {
		if parsed, err := url.Parse(u); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			fail("notify.webhooks: invalid URL %q", u)
		}
	}

	return errors.Join(errs...)
}
