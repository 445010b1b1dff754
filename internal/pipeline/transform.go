package pipeline

import (
	"errors"
	"fmt"

	"github.com/kilupskalvis/mosgal/internal/models"
)

// Transformer adds or overwrites attributes of one file.
// Transformers must be idempotent: running one twice on the same input
// yields the same attributes. Later transformers may read attributes set by
// earlier ones, so the order of a transformer list is part of its contract.
type Transformer interface {
	Transform(f *models.FileRecord) error
}

// TransformerFunc adapts a function to the Transformer interface
type TransformerFunc func(f *models.FileRecord) error

// Transform calls fn(f)
func (fn TransformerFunc) Transform(f *models.FileRecord) error { return fn(f) }

// Predicate tests a file record
type Predicate func(f *models.FileRecord) bool

// Not negates a predicate
func Not(p Predicate) Predicate {
	return func(f *models.FileRecord) bool { return !p(f) }
}

// HasAttribute returns a predicate true when the file holds the attribute
func HasAttribute(name string) Predicate {
	return func(f *models.FileRecord) bool { return f.Attributes.Has(name) }
}

// apply runs t on f and tags failures with the file source and step name.
// Errors that already carry a TransformError are returned unchanged.
func apply(t Transformer, f *models.FileRecord) error {
	err := t.Transform(f)
	if err == nil {
		return nil
	}
	var te *TransformError
	if errors.As(err, &te) {
		return err
	}
	return &TransformError{Source: f.Source, Step: stepName(t), Err: err}
}

func applyAll(ts []Transformer, f *models.FileRecord) error {
	for _, t := range ts {
		if err := apply(t, f); err != nil {
			return err
		}
	}
	return nil
}

// sequence applies transformers in order and stops at the first error
type sequence []Transformer

// Sequence composes transformers into one
func Sequence(ts ...Transformer) Transformer {
	return sequence(ts)
}

func (s sequence) Transform(f *models.FileRecord) error {
	return applyAll(s, f)
}

func (s sequence) Name() string { return "sequence" }

// Conditional routes a file to IfTrue or IfFalse depending on Test
type Conditional struct {
	Test    Predicate
	IfTrue  []Transformer
	IfFalse []Transformer
}

// If builds a Conditional transformer
func If(test Predicate, ifTrue, ifFalse []Transformer) *Conditional {
	return &Conditional{Test: test, IfTrue: ifTrue, IfFalse: ifFalse}
}

// Transform evaluates the predicate once and runs the selected branch
func (c *Conditional) Transform(f *models.FileRecord) error {
	if c.Test(f) {
		return applyAll(c.IfTrue, f)
	}
	return applyAll(c.IfFalse, f)
}

func (c *Conditional) Name() string { return "if" }

// ScopedStep is a transformer that needs a resource held open by Scoped
type ScopedStep[R any] interface {
	TransformWith(f *models.FileRecord, res R) error
}

// ScopedStepFunc adapts a function to the ScopedStep interface
type ScopedStepFunc[R any] func(f *models.FileRecord, res R) error

// TransformWith calls fn(f, res)
func (fn ScopedStepFunc[R]) TransformWith(f *models.FileRecord, res R) error { return fn(f, res) }

// Scoped acquires a resource for one file, runs Steps with it and releases
// it on every exit path: success, step error, or panic.
type Scoped[R any] struct {
	Resource string
	Open     func(f *models.FileRecord) (R, error)
	Close    func(res R) error
	Steps    []ScopedStep[R]
}

// Transform opens the resource, runs the steps and closes the resource.
// A close failure is joined with any step error.
func (s *Scoped[R]) Transform(f *models.FileRecord) (err error) {
	res, err := s.Open(f)
	if err != nil {
		return &TransformError{Source: f.Source, Step: "open " + s.Name(), Err: err}
	}

	defer func() {
		if cerr := s.Close(res); cerr != nil {
			err = errors.Join(err, &TransformError{Source: f.Source, Step: "close " + s.Name(), Err: cerr})
		}
	}()

	for _, step := range s.Steps {
		if serr := step.TransformWith(f, res); serr != nil {
			var te *TransformError
			if errors.As(serr, &te) {
				return serr
			}
			return &TransformError{Source: f.Source, Step: stepName(step), Err: serr}
		}
	}
	return nil
}

// Name describes the scoped resource
func (s *Scoped[R]) Name() string {
	if s.Resource == "" {
		return fmt.Sprintf("scoped %T", *new(R))
	}
	return s.Resource
}
