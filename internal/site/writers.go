package site

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kilupskalvis/mosgal/internal/models"
	"github.com/kilupskalvis/mosgal/internal/pipeline"
	"golang.org/x/sync/errgroup"
)

// Theme bundles what the page writers share
type Theme struct {
	Renderer *Renderer
	Name     string
	Pages    []Page
	Views    Views
}

// site builds the navigation: one link per collection, then the pages
func (t *Theme) site(collections models.Collections) SiteView {
	view := SiteView{Name: t.Name}
	for _, c := range collections {
		title := c.Title
		if title == "" {
			title = c.Name
		}
		view.Nav = append(view.Nav, Link{Title: title, URL: CollectionFile(c.Name)})
	}
	for _, p := range t.Pages {
		view.Nav = append(view.Nav, Link{Title: p.Title, URL: p.File()})
	}
	return view
}

// BuildDirectory runs its writers into a fresh build directory, then
// swaps the build directory in place of the destination. The destination
// keeps its previous content when a writer fails.
type BuildDirectory struct {
	Build   string // defaults to "<destination>.build"
	Writers []pipeline.Writer
	Logger  *slog.Logger
}

func (b *BuildDirectory) Write(ctx context.Context, collections models.Collections, destination string) error {
	dest := filepath.Clean(destination)
	build := b.Build
	if build == "" {
		build = dest + ".build"
	}

	if err := os.RemoveAll(build); err != nil {
		return fmt.Errorf("clear build directory: %w", err)
	}
	if err := os.MkdirAll(build, 0755); err != nil {
		return fmt.Errorf("create build directory: %w", err)
	}

	for _, w := range b.Writers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Write(ctx, pipeline.Freeze(collections), build); err != nil {
			return fmt.Errorf("%s: %w", writerName(w), err)
		}
		if b.Logger != nil {
			b.Logger.Debug("wrote", "writer", writerName(w), "build", build)
		}
	}

	old := dest + ".old"
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	if _, err := os.Stat(dest); err == nil {
		if err := os.Rename(dest, old); err != nil {
			return fmt.Errorf("move previous site: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	if err := os.Rename(build, dest); err != nil {
		return fmt.Errorf("publish build directory: %w", err)
	}
	return os.RemoveAll(old)
}

func (b *BuildDirectory) Name() string { return "build directory" }

func writerName(w pipeline.Writer) string {
	if n, ok := w.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", w)
}

// Placer places one asset; assets.Placer satisfies it
type Placer interface {
	Place(ctx context.Context, src, dest, rel string) (string, error)
}

// WriteImages places every picture and thumbnail the pages link to. File
// records are read, never modified.
type WriteImages struct {
	Views       *Views
	Placer      Placer
	Concurrency int // default 4
	Logger      *slog.Logger
}

func (w *WriteImages) Write(ctx context.Context, collections models.Collections, destination string) error {
	seen := make(map[string]bool)
	var files []*models.FileRecord
	for _, c := range collections {
		for _, f := range c.Files() {
			if !seen[f.Source] {
				seen[f.Source] = true
				files = append(files, f)
			}
		}
	}

	type job struct{ src, rel string }
	attributes := w.Views.Attributes()
	var jobs []job
	for _, f := range files {
		for _, attr := range attributes {
			src := f.Path
			if attr != "" {
				v, ok := f.Attr(attr)
				if !ok {
					return fmt.Errorf("%s has no attribute %q", f.Source, attr)
				}
				src = v.String()
			}
			jobs = append(jobs, job{src: src, rel: AssetName(f, attr)})
		}
	}

	limit := w.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, j := range jobs {
		g.Go(func() error {
			_, err := w.Placer.Place(ctx, j.src, destination, j.rel)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if w.Logger != nil {
		w.Logger.Info("placed images", "files", len(files), "variants", len(attributes))
	}
	return nil
}

func (w *WriteImages) Name() string { return "images" }

// WriteElementPages writes the overview page of one collection and one
// page per element, named after the element's target_file.
type WriteElementPages struct {
	Theme      *Theme
	Collection string
}

func (w *WriteElementPages) Write(ctx context.Context, collections models.Collections, destination string) error {
	site := w.Theme.site(collections)
	cw := &pipeline.CollectionWriter{
		Collection: w.Collection,
		WriteCollection: func(ctx context.Context, c *models.Collection, dest string) error {
			return w.writeCollection(ctx, site, c, dest)
		},
	}
	return cw.Write(ctx, collections, destination)
}

func (w *WriteElementPages) writeCollection(ctx context.Context, site SiteView, c *models.Collection, dest string) error {
	view := w.Theme.Views.Collection(c)
	r := w.Theme.Renderer

	if err := r.writePage(dest, view.URL, "collection.html", PageData{Site: site, Title: view.Title, Collection: view}); err != nil {
		return err
	}

	for i := range view.Elements {
		if err := ctx.Err(); err != nil {
			return err
		}
		e := &view.Elements[i]
		if e.URL == "" {
			return fmt.Errorf("element %q of %s has no %s", e.Name, c.Name, models.CharTargetFile)
		}
		data := PageData{Site: site, Title: e.Title, Collection: view, Element: e}
		if err := r.writePage(dest, e.URL, "element.html", data); err != nil {
			return err
		}
	}
	return nil
}

func (w *WriteElementPages) Name() string { return "pages " + w.Collection }

// WriteIndex writes index.html showing the featured collections
type WriteIndex struct {
	Theme    *Theme
	Featured []string
}

func (w *WriteIndex) Write(ctx context.Context, collections models.Collections, destination string) error {
	data := PageData{Site: w.Theme.site(collections)}
	for _, name := range w.Featured {
		c, ok := collections.Get(name)
		if !ok {
			return fmt.Errorf("%w: %s", pipeline.ErrCollectionNotFound, name)
		}
		data.Featured = append(data.Featured, w.Theme.Views.Collection(c))
	}
	return w.Theme.Renderer.writePage(destination, "index.html", "index.html", data)
}

func (w *WriteIndex) Name() string { return "index" }

// WritePages writes the Markdown pages of the theme
type WritePages struct {
	Theme *Theme
}

func (w *WritePages) Write(ctx context.Context, collections models.Collections, destination string) error {
	site := w.Theme.site(collections)
	for _, p := range w.Theme.Pages {
		data := PageData{Site: site, Title: p.Title, Content: p.Content}
		if err := w.Theme.Renderer.writePage(destination, p.File(), "page.html", data); err != nil {
			return err
		}
	}
	return nil
}

func (w *WritePages) Name() string { return "pages" }

// WriteStatic writes the stylesheet
type WriteStatic struct {
	Theme *Theme
}

func (w *WriteStatic) Write(ctx context.Context, _ models.Collections, destination string) error {
	if err := os.MkdirAll(destination, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(destination, "style.css"), w.Theme.Renderer.Stylesheet(), 0644)
}

func (w *WriteStatic) Name() string { return "static" }
