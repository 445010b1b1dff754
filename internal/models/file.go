package models

import "sort"

// Attributes maps attribute names to values.
type Attributes map[string]Value

// Get returns the value stored under name.
func (a Attributes) Get(name string) (Value, bool) {
	v, ok := a[name]
	return v, ok && v.IsValid()
}

// Has reports whether name holds a value.
func (a Attributes) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// Set stores v under name. Invalid values are ignored.
func (a Attributes) Set(name string, v Value) {
	if !v.IsValid() {
		return
	}
	a[name] = v
}

// Merge copies every entry of other into a, overwriting existing keys.
func (a Attributes) Merge(other Attributes) {
	for k, v := range other {
		a.Set(k, v)
	}
}

// Clone returns a shallow copy.
func (a Attributes) Clone() Attributes {
	c := make(Attributes, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}

// Keys returns the attribute names in sorted order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FileRecord is one discovered file plus its derived attributes.
// Source is assigned at discovery and never changes; Path may change when
// the file is relocated.
type FileRecord struct {
	Source     string     `json:"source"`
	Path       string     `json:"path"`
	Attributes Attributes `json:"attributes"`
}

// NewFileRecord creates a record with an empty attribute map.
func NewFileRecord(source, path string) *FileRecord {
	return &FileRecord{
		Source:     source,
		Path:       path,
		Attributes: make(Attributes),
	}
}

// Attr is a shortcut for Attributes.Get.
func (f *FileRecord) Attr(name string) (Value, bool) {
	return f.Attributes.Get(name)
}

// StringAttr returns the display form of an attribute, or "" when absent.
func (f *FileRecord) StringAttr(name string) string {
	v, ok := f.Attributes.Get(name)
	if !ok {
		return ""
	}
	return v.String()
}

// Clone returns a copy of the record with its own attribute map.
func (f *FileRecord) Clone() *FileRecord {
	return &FileRecord{
		Source:     f.Source,
		Path:       f.Path,
		Attributes: f.Attributes.Clone(),
	}
}
