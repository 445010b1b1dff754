package pipeline

import (
	"fmt"
	"iter"
	"log/slog"

	"github.com/kilupskalvis/mosgal/internal/models"
)

// ErrorPolicy decides what a Fetcher does when a transformer fails
type ErrorPolicy int

const (
	// PolicyAbort stops the fetch at the first transform error
	PolicyAbort ErrorPolicy = iota
	// PolicySkip drops the failing file, logs and records the error
	PolicySkip
)

func (p ErrorPolicy) String() string {
	if p == PolicySkip {
		return "skip"
	}
	return "abort"
}

// ParsePolicy parses "abort" or "skip"
func ParsePolicy(s string) (ErrorPolicy, error) {
	switch s {
	case "", "abort":
		return PolicyAbort, nil
	case "skip":
		return PolicySkip, nil
	}
	return PolicyAbort, fmt.Errorf("unknown error policy %q (expected abort or skip)", s)
}

// FetchReport summarizes one fetch
type FetchReport struct {
	Fetched int
	Skipped []error
}

// Fetcher applies Transformers, in order, to every record found by Seeker
type Fetcher struct {
	Seeker       Seeker
	Transformers []Transformer
	Policy       ErrorPolicy
	Logger       *slog.Logger

	report FetchReport
}

// Fetch yields fully transformed records. A record's whole transformer
// chain runs before the next record is pulled from the seeker. Seeker errors
// and, under PolicyAbort, transform errors are yielded and end the sequence.
func (fe *Fetcher) Fetch() iter.Seq2[*models.FileRecord, error] {
	log := loggerOrDefault(fe.Logger)

	return func(yield func(*models.FileRecord, error) bool) {
		fe.report = FetchReport{}

		for rec, err := range fe.Seeker.Seek() {
			if err != nil {
				yield(nil, err)
				return
			}

			log.Debug("FOUND", "source", rec.Source)

			if err := applyAll(fe.Transformers, rec); err != nil {
				if fe.Policy == PolicySkip {
					log.Warn("skipping file", "source", rec.Source, "error", err)
					fe.report.Skipped = append(fe.report.Skipped, err)
					continue
				}
				yield(nil, err)
				return
			}

			fe.report.Fetched++
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// All materializes the whole fetch
func (fe *Fetcher) All() ([]*models.FileRecord, error) {
	var files []*models.FileRecord
	for rec, err := range fe.Fetch() {
		if err != nil {
			return nil, err
		}
		files = append(files, rec)
	}
	return files, nil
}

// Report returns the summary of the last fetch
func (fe *Fetcher) Report() FetchReport {
	return fe.report
}
