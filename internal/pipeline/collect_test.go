package pipeline

import (
	"errors"
	"testing"

	"github.com/kilupskalvis/mosgal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// albumRecords builds files tagged with a parent directory and a rank
func albumRecords() []*models.FileRecord {
	fixtures := []struct {
		source, album string
		rank          int64
	}{
		{"iceland/2.jpg", "iceland", 2},
		{"iceland/1.jpg", "iceland", 1},
		{"paris/3.jpg", "paris", 3},
	}
	recs := make([]*models.FileRecord, len(fixtures))
	for i, s := range fixtures {
		f := models.NewFileRecord(s.source, "/pics/"+s.source)
		f.Attributes.Set("parent_directory", models.String(s.album))
		f.Attributes.Set("rank", models.Int(s.rank))
		recs[i] = f
	}
	return recs
}

func newCollector(stages ...Stage) *Collector {
	return &Collector{
		Fetcher: &Fetcher{Seeker: &StaticSeeker{Records: albumRecords()}},
		Stages:  stages,
	}
}

func TestCollector_ClassifiesAllFiles(t *testing.T) {
	c := newCollector(Stage{Classifier: &AttributeClassifier{Attribute: "parent_directory", Name: "album"}})

	snap, err := c.Collect()
	require.NoError(t, err)

	require.Len(t, snap.Files, 3)
	album, ok := snap.Collections.Get("album")
	require.True(t, ok)
	assert.Equal(t, []string{"iceland", "paris"}, album.ElementNames())
}

func TestCollector_OrganizerRunsBeforeClassify(t *testing.T) {
	c := newCollector(Stage{Classifier: &AttributeClassifier{Attribute: "parent_directory", Name: "album"}})
	c.Organizer = SortFilesBy("rank")

	snap, err := c.Collect()
	require.NoError(t, err)

	album, _ := snap.Collections.Get("album")
	iceland, _ := album.Element("iceland")
	assert.Equal(t, []string{"iceland/1.jpg", "iceland/2.jpg"}, fileSources(iceland))
}

func TestCollector_StagesInOrder(t *testing.T) {
	var trace []string
	mark := func(label string) Characterizer {
		return CharacterizerFunc(func(c *models.Collection) error {
			trace = append(trace, c.Name+":"+label)
			return nil
		})
	}

	c := newCollector(
		Stage{
			Classifier:     &AttributeClassifier{Attribute: "parent_directory", Name: "album"},
			Characterizers: []Characterizer{mark("1"), mark("2")},
		},
		Stage{
			Classifier:     &AttributeClassifier{Attribute: "rank"},
			Characterizers: []Characterizer{mark("1")},
		},
	)

	snap, err := c.Collect()
	require.NoError(t, err)
	assert.Equal(t, []string{"album:1", "album:2", "rank:1"}, trace)
	assert.Equal(t, []string{"album", "rank"}, snap.Collections.Names())
}

func TestCollector_DetectsDestructiveCharacterizer(t *testing.T) {
	drop := CharacterizerFunc(func(c *models.Collection) error {
		c.Elements = c.Elements[1:]
		return nil
	})
	c := newCollector(Stage{
		Classifier:     &AttributeClassifier{Attribute: "parent_directory", Name: "album"},
		Characterizers: []Characterizer{drop},
	})

	_, err := c.Collect()
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "characterize", se.Stage)
}

func TestCollector_ReorderingIsAllowed(t *testing.T) {
	c := newCollector(Stage{
		Classifier:     &AttributeClassifier{Attribute: "parent_directory", Name: "album"},
		Characterizers: []Characterizer{&SortElements{Attribute: "rank", FilePosition: -1, Descending: true}},
	})

	snap, err := c.Collect()
	require.NoError(t, err)
	album, _ := snap.Collections.Get("album")
	assert.Equal(t, []string{"paris", "iceland"}, album.ElementNames())
}

func TestCollector_FetchFailure(t *testing.T) {
	boom := errors.New("unreadable")
	c := newCollector()
	c.Fetcher.Transformers = []Transformer{failing(boom)}

	_, err := c.Collect()
	require.ErrorIs(t, err, boom)
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "fetch", se.Stage)
}

func TestCollector_CharacterizerError(t *testing.T) {
	c := newCollector(Stage{
		Classifier:     &AttributeClassifier{Attribute: "parent_directory", Name: "album"},
		Characterizers: []Characterizer{SortBy("missing")},
	})

	_, err := c.Collect()
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Name, "album")
}

func TestSortFilesBy_MissingAttributeLast(t *testing.T) {
	files := albumRecords()
	bare := models.NewFileRecord("a.jpg", "/pics/a.jpg")
	files = append([]*models.FileRecord{bare}, files...)

	sorted := SortFilesBy("rank")(files)

	sources := make([]string, len(sorted))
	for i, f := range sorted {
		sources[i] = f.Source
	}
	assert.Equal(t, []string{"iceland/1.jpg", "iceland/2.jpg", "paris/3.jpg", "a.jpg"}, sources)
	// input is untouched
	assert.Equal(t, "a.jpg", files[0].Source)
}
