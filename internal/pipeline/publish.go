package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kilupskalvis/mosgal/internal/models"
)

// Writer publishes one artifact from the full set of collections.
// Writers receive their own copy of the collections and must not rely on
// effects of other writers.
type Writer interface {
	Write(ctx context.Context, collections models.Collections, destination string) error
}

// WriterFunc adapts a function to the Writer interface
type WriterFunc func(ctx context.Context, collections models.Collections, destination string) error

// Write calls fn
func (fn WriterFunc) Write(ctx context.Context, collections models.Collections, destination string) error {
	return fn(ctx, collections, destination)
}

// CollectionWriter runs WriteCollection on the collection named Collection
type CollectionWriter struct {
	Collection      string
	WriteCollection func(ctx context.Context, c *models.Collection, destination string) error
}

// Write selects the collection and writes it
func (w *CollectionWriter) Write(ctx context.Context, collections models.Collections, destination string) error {
	c, ok := collections.Get(w.Collection)
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, w.Collection)
	}
	return w.WriteCollection(ctx, c, destination)
}

func (w *CollectionWriter) Name() string { return "collection " + w.Collection }

// RunReport summarizes a publish run
type RunReport struct {
	RunID       string
	Files       int
	Skipped     []error
	Collections map[string]int // elements per collection
	Writers     []string
	Started     time.Time
	Finished    time.Time
}

// Publisher collects once and runs every writer, in order, against that
// snapshot. The first failing writer aborts the run.
type Publisher struct {
	Collector   *Collector
	Writers     []Writer
	Destination string
	RunID       string
	Logger      *slog.Logger
}

// Run executes the pipeline
func (p *Publisher) Run(ctx context.Context) (*RunReport, error) {
	log := loggerOrDefault(p.Logger)
	if p.RunID != "" {
		log = log.With("run_id", p.RunID)
	}

	report := &RunReport{RunID: p.RunID, Started: time.Now(), Collections: make(map[string]int)}

	snap, err := p.Collector.Collect()
	if err != nil {
		return nil, err
	}
	report.Files = len(snap.Files)
	report.Skipped = snap.Skipped
	for _, c := range snap.Collections {
		report.Collections[c.Name] = len(c.Elements)
	}

	for _, w := range p.Writers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := stepName(w)
		log.Info("running writer", "writer", name)
		if err := w.Write(ctx, Freeze(snap.Collections), p.Destination); err != nil {
			return nil, &WriterError{Writer: name, Err: err}
		}
		report.Writers = append(report.Writers, name)
	}

	report.Finished = time.Now()
	return report, nil
}

// Freeze deep-copies collections, elements and file records so one
// consumer's mutations stay invisible to the others. Values are immutable
// and are shared.
func Freeze(collections models.Collections) models.Collections {
	files := make(map[*models.FileRecord]*models.FileRecord)
	cloneFile := func(f *models.FileRecord) *models.FileRecord {
		if c, ok := files[f]; ok {
			return c
		}
		c := f.Clone()
		files[f] = c
		return c
	}

	out := make(models.Collections, len(collections))
	for i, c := range collections {
		nc := &models.Collection{
			Name:        c.Name,
			Title:       c.Title,
			Description: c.Description,
			Elements:    make([]*models.Element, len(c.Elements)),
		}
		for j, e := range c.Elements {
			ne := &models.Element{
				Name:            e.Name,
				Title:           e.Title,
				Value:           e.Value,
				Files:           make([]*models.FileRecord, len(e.Files)),
				Characteristics: e.Characteristics.Clone(),
			}
			for k, f := range e.Files {
				ne.Files[k] = cloneFile(f)
			}
			nc.Elements[j] = ne
		}
		out[i] = nc
	}
	return out
}
