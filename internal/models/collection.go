package models

// Characteristic keys set by the standard characterizers.
const (
	CharThumbnail       = "thumbnail"
	CharThumbnailSource = "thumbnail_source"
	CharTargetFile      = "target_file"
	CharDescription     = "description"
)

// Element is a named bucket of files sharing one classification value.
type Element struct {
	Name            string
	Title           string
	Value           Value
	Files           []*FileRecord
	Characteristics Attributes
}

// NewElement creates an empty element whose title defaults to its name.
func NewElement(name string, value Value) *Element {
	return &Element{
		Name:            name,
		Title:           name,
		Value:           value,
		Characteristics: make(Attributes),
	}
}

// Append adds a file to the element.
func (e *Element) Append(f *FileRecord) {
	e.Files = append(e.Files, f)
}

// Contains reports whether the element holds the file with the given source.
func (e *Element) Contains(source string) bool {
	for _, f := range e.Files {
		if f.Source == source {
			return true
		}
	}
	return false
}

// File returns the file at position pos. Negative positions count from the
// end, so -1 is the last file.
func (e *Element) File(pos int) (*FileRecord, bool) {
	if pos < 0 {
		pos += len(e.Files)
	}
	if pos < 0 || pos >= len(e.Files) {
		return nil, false
	}
	return e.Files[pos], true
}

// Characteristic returns the display form of a characteristic, or "".
func (e *Element) Characteristic(name string) string {
	v, ok := e.Characteristics.Get(name)
	if !ok {
		return ""
	}
	return v.String()
}

// Collection is the ordered set of elements produced by one classifier.
type Collection struct {
	Name        string
	Title       string
	Description string
	Elements    []*Element
}

// NewCollection creates an empty collection.
func NewCollection(name string) *Collection {
	return &Collection{Name: name, Title: name}
}

// Append adds an element to the collection.
func (c *Collection) Append(e *Element) {
	c.Elements = append(c.Elements, e)
}

// Element returns the element with the given name.
func (c *Collection) Element(name string) (*Element, bool) {
	for _, e := range c.Elements {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// ElementNames returns element names in collection order.
func (c *Collection) ElementNames() []string {
	names := make([]string, len(c.Elements))
	for i, e := range c.Elements {
		names[i] = e.Name
	}
	return names
}

// Files returns the distinct files of the collection in first-seen order.
func (c *Collection) Files() []*FileRecord {
	seen := make(map[*FileRecord]bool)
	var files []*FileRecord
	for _, e := range c.Elements {
		for _, f := range e.Files {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	return files
}

// Collections is the full set of collections built by one run.
type Collections []*Collection

// Get returns the collection with the given name.
func (cs Collections) Get(name string) (*Collection, bool) {
	for _, c := range cs {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Names returns collection names in order.
func (cs Collections) Names() []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.Name
	}
	return names
}
