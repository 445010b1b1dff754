// Package pipeline implements the generic Fetch, Classify, Characterize and
// Publish pipeline: seekers discover files, transformers populate their
// attributes, classifiers group them into collections, characterizers
// annotate the collections and writers publish them.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrRootNotFound is returned when the seeker root does not exist
	ErrRootNotFound = errors.New("root directory not found")

	// ErrSeekerExhausted is returned when a seeker is iterated twice
	ErrSeekerExhausted = errors.New("seeker already consumed")

	// ErrCollectionNotFound is returned when a writer selects a collection
	// that no classifier produced
	ErrCollectionNotFound = errors.New("collection not found")
)

// TransformError reports a transformer failure for one file
type TransformError struct {
	Source string
	Step   string
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s: %s: %v", e.Source, e.Step, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// StageError reports a failure in one orchestration stage
type StageError struct {
	Stage string // "fetch", "organize", "classify", "characterize"
	Name  string // classifier or characterizer involved, if any
	Err   error
}

func (e *StageError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Name, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// WriterError reports a writer failure
type WriterError struct {
	Writer string
	Err    error
}

func (e *WriterError) Error() string {
	return fmt.Sprintf("writer %s: %v", e.Writer, e.Err)
}

func (e *WriterError) Unwrap() error { return e.Err }

// stepName returns a readable name for a pipeline step
func stepName(step any) string {
	if n, ok := step.(interface{ Name() string }); ok {
		if name := n.Name(); name != "" {
			return name
		}
	}
	return fmt.Sprintf("%T", step)
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
