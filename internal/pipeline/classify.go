package pipeline

import (
	"slices"

	"github.com/kilupskalvis/mosgal/internal/models"
)

// Classifier partitions files into a collection
type Classifier interface {
	Classify(files []*models.FileRecord) (*models.Collection, error)
}

// AttributeClassifier groups files by the value of one attribute.
// Files without the attribute are left out. A list value places the file
// in one element per entry. Values whose name appears in Exclude never
// produce an element. Elements keep the order in which their value was
// first seen.
type AttributeClassifier struct {
	Attribute   string
	Name        string // collection name, defaults to Attribute
	Title       string
	Description string
	Exclude     []string

	// ElementName derives an element name from a value (default Value.String)
	ElementName func(v models.Value) string
	// ElementTitle derives the display title (default: the element name)
	ElementTitle func(v models.Value) string
}

// CollectionName returns the name of the produced collection
func (c *AttributeClassifier) CollectionName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Attribute
}

// Classify builds the collection. It never fails on missing attributes.
func (c *AttributeClassifier) Classify(files []*models.FileRecord) (*models.Collection, error) {
	col := models.NewCollection(c.CollectionName())
	if c.Title != "" {
		col.Title = c.Title
	}
	col.Description = c.Description

	elements := make(map[string]*models.Element)

	add := func(v models.Value, f *models.FileRecord) {
		if slices.Contains(c.Exclude, v.String()) {
			return
		}

		name := c.elementName(v)
		e, ok := elements[name]
		if !ok {
			e = models.NewElement(name, v)
			if c.ElementTitle != nil {
				e.Title = c.ElementTitle(v)
			}
			elements[name] = e
			col.Append(e)
		}

		// a list holding the same value twice adds the file once
		if last, ok := e.File(-1); ok && last == f {
			return
		}
		e.Append(f)
	}

	for _, f := range files {
		v, ok := f.Attr(c.Attribute)
		if !ok {
			continue
		}

		if items, isList := v.Items(); isList {
			for _, item := range items {
				add(item, f)
			}
			continue
		}
		add(v, f)
	}

	return col, nil
}

func (c *AttributeClassifier) elementName(v models.Value) string {
	if c.ElementName != nil {
		return c.ElementName(v)
	}
	return v.String()
}
