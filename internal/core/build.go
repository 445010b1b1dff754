package core

import (
	"log/slog"

	"github.com/kilupskalvis/mosgal/internal/catalog"
	"github.com/kilupskalvis/mosgal/internal/config"
	"github.com/kilupskalvis/mosgal/internal/imaging"
	"github.com/kilupskalvis/mosgal/internal/models"
	"github.com/kilupskalvis/mosgal/internal/pipeline"
	"github.com/kilupskalvis/mosgal/internal/site"
)

// ThumbnailAttributes lists the attributes written by the configured
// thumbnails.
func ThumbnailAttributes(cfg *config.Config) []string {
	attrs := make([]string, len(cfg.Thumbnails))
	for i, t := range cfg.Thumbnails {
		attrs[i] = imaging.ThumbnailAttribute(t.Name)
	}
	return attrs
}

// BuildFetcher wires the transformer chain. Files the catalog already knows
// in their current version take their attributes from the catalog; the
// others are opened once and go through every image transformer.
// Paths containing one of exclude are not crawled.
func BuildFetcher(cfg *config.Config, cat *catalog.Catalog, logger *slog.Logger, exclude ...string) *pipeline.Fetcher {
	thumbs := ThumbnailAttributes(cfg)

	steps := []imaging.Step{
		imaging.Dimensions{},
		&imaging.Exif{Logger: logger},
		&imaging.DominantColors{Count: cfg.Colors.Count},
	}
	for _, t := range cfg.Thumbnails {
		steps = append(steps, &imaging.Thumbnail{
			Spec: imaging.ThumbnailSpec{
				Name:    t.Name,
				Mode:    t.Mode,
				Width:   t.Width,
				Height:  t.Height,
				Anchor:  t.Anchor,
				Quality: t.Quality,
			},
			Dir:    cfg.ThumbsPath(),
			Logger: logger,
		})
	}

	upToDate := catalog.UpToDate(cat, thumbs...)
	cached := thumbnailsCached(cat, thumbs)
	reuse := func(f *models.FileRecord) bool { return upToDate(f) && cached(f.Source) }

	return &pipeline.Fetcher{
		Seeker: &pipeline.DirSeeker{
			Root:        cfg.Root(),
			Extensions:  cfg.Crawl.Extensions,
			Exclude:     append(append([]string{}, cfg.Crawl.Exclude...), exclude...),
			ExcludeDirs: append([]string{config.GalleryDir}, cfg.Crawl.ExcludedDirs...),
		},
		Transformers: []pipeline.Transformer{
			imaging.Stat{},
			imaging.ParentDirectory{},
			pipeline.If(reuse,
				[]pipeline.Transformer{&catalog.UpdateFromCatalog{Catalog: cat}},
				[]pipeline.Transformer{
					imaging.WithImage(steps...),
					imaging.MonthYear{},
					imaging.FocalClass{},
				}),
			&catalog.AddToCatalog{Catalog: cat},
		},
		Policy: cfg.Policy(),
		Logger: logger,
	}
}

// BuildStages builds one classification stage per configured collection.
func BuildStages(cfg *config.Config, markup pipeline.MarkupRenderer, logger *slog.Logger) []pipeline.Stage {
	tile := imaging.ThumbnailAttribute(cfg.Site.TileThumbnail)

	stages := make([]pipeline.Stage, 0, len(cfg.Collections))
	for _, col := range cfg.Collections {
		var chars []pipeline.Characterizer
		if col.SortBy != "" {
			chars = append(chars, &pipeline.SortElements{Attribute: col.SortBy, FilePosition: -1, Descending: col.Descending})
		}
		chars = append(chars,
			&pipeline.TargetFile{Logger: logger},
			&pipeline.Thumbnail{Attribute: tile, FilePosition: 0},
		)
		if col.Sidecar {
			chars = append(chars, &pipeline.Sidecar{ThumbnailAttribute: tile, Markup: markup, Logger: logger})
		}

		stages = append(stages, pipeline.Stage{
			Classifier: &pipeline.AttributeClassifier{
				Attribute:   col.Attribute,
				Name:        col.Name,
				Title:       col.Title,
				Description: col.Description,
				Exclude:     col.Exclude,
			},
			Characterizers: chars,
		})
	}
	return stages
}

// BuildTheme loads the templates and the extra pages of the gallery.
func BuildTheme(cfg *config.Config, urls site.URLResolver, markup *site.Markdown) (*site.Theme, error) {
	renderer, err := site.NewRenderer(cfg.TemplatesPath())
	if err != nil {
		return nil, err
	}
	pages, err := site.LoadPages(cfg.PagesPath(), markup)
	if err != nil {
		return nil, err
	}

	views := site.Views{
		URLs:         urls,
		Thumbnail:    imaging.ThumbnailAttribute(cfg.Site.TileThumbnail),
		PictureThumb: imaging.ThumbnailAttribute(cfg.Site.PictureThumbnail),
	}
	if cfg.Site.PictureFull != "" {
		views.PictureFull = imaging.ThumbnailAttribute(cfg.Site.PictureFull)
	}

	return &site.Theme{Renderer: renderer, Name: cfg.Site.Name, Pages: pages, Views: views}, nil
}

// BuildSiteWriters returns the writers producing the static site.
func BuildSiteWriters(cfg *config.Config, theme *site.Theme, placer site.Placer, logger *slog.Logger) []pipeline.Writer {
	writers := []pipeline.Writer{
		&site.WriteStatic{Theme: theme},
		&site.WriteImages{Views: &theme.Views, Placer: placer, Logger: logger},
	}
	for _, col := range cfg.Collections {
		writers = append(writers, &site.WriteElementPages{Theme: theme, Collection: col.Name})
	}
	return append(writers,
		&site.WriteIndex{Theme: theme, Featured: cfg.Site.Index},
		&site.WritePages{Theme: theme},
	)
}
