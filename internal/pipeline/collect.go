package pipeline

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/kilupskalvis/mosgal/internal/models"
)

// Organizer reorders the fetched files before classification
type Organizer func(files []*models.FileRecord) []*models.FileRecord

// SortFilesBy returns an organizer that stably sorts files by an attribute.
// Files without the attribute go last, ordered by source.
func SortFilesBy(attribute string) Organizer {
	return func(files []*models.FileRecord) []*models.FileRecord {
		sorted := slices.Clone(files)
		sort.SliceStable(sorted, func(i, j int) bool {
			vi, iok := sorted[i].Attr(attribute)
			vj, jok := sorted[j].Attr(attribute)
			switch {
			case iok && jok:
				return models.Compare(vi, vj) < 0
			case iok != jok:
				return iok
			}
			return sorted[i].Source < sorted[j].Source
		})
		return sorted
	}
}

// Stage binds a classifier to the characterizers run on its collection
type Stage struct {
	Classifier     Classifier
	Characterizers []Characterizer
}

// Snapshot is the materialized result of a collect run
type Snapshot struct {
	Files       []*models.FileRecord
	Collections models.Collections
	Skipped     []error
}

// Collector fetches every file, organizes them, then runs each stage's
// classifier followed by its characterizers. Each step completes before the
// next starts: classifiers see the complete file set.
type Collector struct {
	Fetcher   *Fetcher
	Organizer Organizer
	Stages    []Stage
	Logger    *slog.Logger
}

// Collect runs Fetching, Organizing, Classifying and Characterizing
func (c *Collector) Collect() (*Snapshot, error) {
	log := loggerOrDefault(c.Logger)

	files, err := c.Fetcher.All()
	if err != nil {
		return nil, &StageError{Stage: "fetch", Err: err}
	}
	report := c.Fetcher.Report()
	log.Info("fetched files", "count", len(files), "skipped", len(report.Skipped))

	if c.Organizer != nil {
		files = c.Organizer(files)
	}

	snap := &Snapshot{Files: files, Skipped: report.Skipped}
	for _, stage := range c.Stages {
		name := classifierName(stage.Classifier)

		col, err := stage.Classifier.Classify(files)
		if err != nil {
			return nil, &StageError{Stage: "classify", Name: name, Err: err}
		}
		log.Info("classified", "collection", col.Name, "elements", len(col.Elements))

		for _, ch := range stage.Characterizers {
			before := sortedNames(col)
			if err := ch.Characterize(col); err != nil {
				return nil, &StageError{Stage: "characterize", Name: col.Name + "/" + stepName(ch), Err: err}
			}
			if after := sortedNames(col); !slices.Equal(before, after) {
				return nil, &StageError{
					Stage: "characterize",
					Name:  col.Name + "/" + stepName(ch),
					Err:   fmt.Errorf("elements changed from %v to %v", before, after),
				}
			}
		}

		snap.Collections = append(snap.Collections, col)
	}

	return snap, nil
}

func classifierName(c Classifier) string {
	if n, ok := c.(interface{ CollectionName() string }); ok {
		return n.CollectionName()
	}
	return stepName(c)
}

func sortedNames(c *models.Collection) []string {
	names := c.ElementNames()
	sort.Strings(names)
	return names
}
