package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kilupskalvis/mosgal/internal/catalog"
	"github.com/kilupskalvis/mosgal/internal/config"
	"github.com/kilupskalvis/mosgal/internal/imaging"
	"github.com/kilupskalvis/mosgal/internal/notify"
	"github.com/kilupskalvis/mosgal/internal/pipeline"
	"github.com/kilupskalvis/mosgal/internal/site"
)

// ErrNoDestination is returned by Update when neither the caller nor the
// configuration names a target directory.
var ErrNoDestination = errors.New("no target directory (pass one or set site.destination)")

// Options configures a crawl or update run.
type Options struct {
	Config *config.Config
	Logger *slog.Logger
	RunID  string      // generated when empty
	Placer site.Placer // overrides the configured asset strategy
	Now    func() time.Time
}

func (o *Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o *Options) runID() string {
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	return o.RunID
}

// Crawl fetches every picture and saves the catalog. No site is written.
func Crawl(ctx context.Context, opts Options) (*pipeline.RunReport, error) {
	runID := opts.runID()
	log := opts.logger().With("run_id", runID)

	g, err := Open(opts.Config, log)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	p := &pipeline.Publisher{
		Collector: &pipeline.Collector{
			Fetcher: BuildFetcher(opts.Config, g.Catalog, log),
			Logger:  log,
		},
		Writers: []pipeline.Writer{g.catalogWriter(runID, opts.Now)},
		RunID:   runID,
		Logger:  log,
	}
	return p.Run(ctx)
}

// Update runs the full pipeline and publishes the site into target. An
// empty target falls back to site.destination.
func Update(ctx context.Context, opts Options, target string) (*pipeline.RunReport, error) {
	cfg := opts.Config
	dest, err := Destination(cfg, target)
	if err != nil {
		return nil, err
	}

	runID := opts.runID()
	log := opts.logger().With("run_id", runID)

	g, err := Open(cfg, log)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	placer := opts.Placer
	if placer == nil {
		if placer, err = NewPlacer(cfg); err != nil {
			return nil, err
		}
	}
	urls, _ := placer.(site.URLResolver)

	markup := site.NewMarkdown()
	theme, err := BuildTheme(cfg, urls, markup)
	if err != nil {
		return nil, err
	}

	writers := []pipeline.Writer{
		g.catalogWriter(runID, opts.Now),
		&site.BuildDirectory{Writers: BuildSiteWriters(cfg, theme, placer, log), Logger: log},
	}
	if len(cfg.Notify.Webhooks) > 0 {
		retry := notify.DefaultRetryConfig()
		retry.MaxRetries = cfg.Notify.Retries
		writers = append(writers, &notify.Webhooks{
			URLs:   cfg.Notify.Webhooks,
			Site:   cfg.Site.Name,
			RunID:  runID,
			Retry:  retry,
			Logger: log,
			Now:    opts.Now,
		})
	}

	p := &pipeline.Publisher{
		Collector: &pipeline.Collector{
			Fetcher:   BuildFetcher(cfg, g.Catalog, log, ExcludedOutputs(cfg.Root(), dest)...),
			Organizer: pipeline.SortFilesBy(imaging.AttrDateTaken),
			Stages:    BuildStages(cfg, markup, log),
			Logger:    log,
		},
		Writers:     writers,
		Destination: dest,
		RunID:       runID,
		Logger:      log,
	}
	return p.Run(ctx)
}

// Destination resolves the directory an update writes into.
func Destination(cfg *config.Config, target string) (string, error) {
	if target == "" {
		target = cfg.Site.Destination
		if target != "" && !filepath.IsAbs(target) {
			target = filepath.Join(cfg.Root(), target)
		}
	}
	if target == "" {
		return "", ErrNoDestination
	}

	dest, err := filepath.Abs(target)
	if err != nil {
		return "", err
	}
	if dest == cfg.Root() {
		return "", fmt.Errorf("target directory %s is the picture root", dest)
	}
	return dest, nil
}

// ExcludedOutputs keeps a destination inside the picture root, and its
// build and backup siblings, out of the crawl.
func ExcludedOutputs(root, dest string) []string {
	rel, err := filepath.Rel(root, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	sep := string(filepath.Separator)
	return []string{dest + sep, dest + ".build" + sep, dest + ".old" + sep}
}

func (g *Gallery) catalogWriter(runID string, now func() time.Time) *catalog.WriteCatalog {
	return &catalog.WriteCatalog{
		Catalog:  g.Catalog,
		Backend:  g.Backend,
		RunID:    runID,
		Prune:    true,
		CacheDir: g.Config.ThumbsPath(),
		Logger:   g.Logger,
		Now:      now,
	}
}
