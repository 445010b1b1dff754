package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/kilupskalvis/mosgal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setAttr returns a transformer storing a constant string attribute
func setAttr(name, value string) Transformer {
	return TransformerFunc(func(f *models.FileRecord) error {
		f.Attributes.Set(name, models.String(value))
		return nil
	})
}

func failing(err error) Transformer {
	return TransformerFunc(func(f *models.FileRecord) error { return err })
}

// handle is a fake scoped resource that records its lifecycle
type handle struct {
	open   bool
	closes int
}

func newScoped(h *handle, steps ...ScopedStep[*handle]) *Scoped[*handle] {
	return &Scoped[*handle]{
		Resource: "handle",
		Open: func(f *models.FileRecord) (*handle, error) {
			h.open = true
			return h, nil
		},
		Close: func(res *handle) error {
			res.open = false
			res.closes++
			return nil
		},
		Steps: steps,
	}
}

func TestSequence_LaterStepsReadEarlierAttributes(t *testing.T) {
	f := models.NewFileRecord("a.jpg", "/a.jpg")

	// upper depends on "name" being set first
	upper := TransformerFunc(func(f *models.FileRecord) error {
		f.Attributes.Set("upper", models.String(strings.ToUpper(f.StringAttr("name"))))
		return nil
	})

	require.NoError(t, Sequence(setAttr("name", "iceland"), upper).Transform(f))
	assert.Equal(t, "ICELAND", f.StringAttr("upper"))
}

func TestSequence_StopsAtFirstError(t *testing.T) {
	f := models.NewFileRecord("a.jpg", "/a.jpg")
	boom := errors.New("boom")

	err := Sequence(setAttr("first", "1"), failing(boom), setAttr("third", "3")).Transform(f)

	require.ErrorIs(t, err, boom)
	var te *TransformError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "a.jpg", te.Source)
	assert.True(t, f.Attributes.Has("first"))
	assert.False(t, f.Attributes.Has("third"))
}

func TestSequence_Idempotent(t *testing.T) {
	f := models.NewFileRecord("a.jpg", "/a.jpg")
	seq := Sequence(setAttr("album", "a"), setAttr("month", "July 2021"))

	require.NoError(t, seq.Transform(f))
	first := f.Attributes.Clone()
	require.NoError(t, seq.Transform(f))

	assert.Equal(t, first, f.Attributes)
}

func TestIf_RoutesByPredicate(t *testing.T) {
	known := func(f *models.FileRecord) bool { return strings.Contains(f.Source, "im3") }
	transform := If(known, []Transformer{setAttr("test", "true")}, []Transformer{setAttr("test", "false")})

	for _, source := range []string{"im1/im1.jpg", "im3/im3.jpg"} {
		f := models.NewFileRecord(source, "/"+source)
		require.NoError(t, transform.Transform(f))

		want := "false"
		if known(f) {
			want = "true"
		}
		assert.Equal(t, want, f.StringAttr("test"), source)
	}
}

func TestIf_PropagatesBranchError(t *testing.T) {
	boom := errors.New("boom")
	transform := If(HasAttribute("x"), nil, []Transformer{failing(boom)})

	err := transform.Transform(models.NewFileRecord("a.jpg", "/a.jpg"))
	assert.ErrorIs(t, err, boom)
}

func TestNot(t *testing.T) {
	f := models.NewFileRecord("a.jpg", "/a.jpg")
	assert.True(t, Not(HasAttribute("x"))(f))
}

func TestScoped_ResourceOpenDuringSteps(t *testing.T) {
	h := &handle{}
	var sawOpen bool
	step := ScopedStepFunc[*handle](func(f *models.FileRecord, res *handle) error {
		sawOpen = res.open
		return nil
	})

	require.NoError(t, newScoped(h, step).Transform(models.NewFileRecord("a.jpg", "/a.jpg")))
	assert.True(t, sawOpen)
	assert.False(t, h.open)
	assert.Equal(t, 1, h.closes)
}

func TestScoped_ReleasedOnError(t *testing.T) {
	h := &handle{}
	boom := errors.New("corrupt image")
	var after bool
	steps := []ScopedStep[*handle]{
		ScopedStepFunc[*handle](func(f *models.FileRecord, res *handle) error { return boom }),
		ScopedStepFunc[*handle](func(f *models.FileRecord, res *handle) error { after = true; return nil }),
	}

	err := newScoped(h, steps...).Transform(models.NewFileRecord("a.jpg", "/a.jpg"))

	require.ErrorIs(t, err, boom)
	assert.False(t, after)
	assert.False(t, h.open)
	assert.Equal(t, 1, h.closes)
}

func TestScoped_ReleasedOnPanic(t *testing.T) {
	h := &handle{}
	step := ScopedStepFunc[*handle](func(f *models.FileRecord, res *handle) error { panic("decoder bug") })

	assert.Panics(t, func() {
		_ = newScoped(h, step).Transform(models.NewFileRecord("a.jpg", "/a.jpg"))
	})
	assert.False(t, h.open)
	assert.Equal(t, 1, h.closes)
}

func TestScoped_CloseErrorJoined(t *testing.T) {
	boom := errors.New("step failed")
	closeErr := errors.New("close failed")
	s := &Scoped[int]{
		Open:  func(f *models.FileRecord) (int, error) { return 1, nil },
		Close: func(int) error { return closeErr },
		Steps: []ScopedStep[int]{ScopedStepFunc[int](func(f *models.FileRecord, _ int) error { return boom })},
	}

	err := s.Transform(models.NewFileRecord("a.jpg", "/a.jpg"))
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, closeErr)
}

func TestScoped_OpenErrorSkipsClose(t *testing.T) {
	closed := false
	openErr := errors.New("no such file")
	s := &Scoped[int]{
		Open:  func(f *models.FileRecord) (int, error) { return 0, openErr },
		Close: func(int) error { closed = true; return nil },
	}

	err := s.Transform(models.NewFileRecord("a.jpg", "/a.jpg"))
	assert.ErrorIs(t, err, openErr)
	assert.False(t, closed)
}
