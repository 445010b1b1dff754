package site

import (
	"html/template"
	"path"
	"path/filepath"
	"strings"

	"github.com/kilupskalvis/mosgal/internal/models"
	"github.com/kilupskalvis/mosgal/internal/slug"
)

// URLResolver maps a site relative asset name to the URL pages link to
type URLResolver interface {
	URL(rel string) string
}

// Link is a navigation entry
type Link struct {
	Title string
	URL   string
}

// SiteView holds the data shared by every page
type SiteView struct {
	Name string
	Nav  []Link
}

// PictureView is one picture on an element page
type PictureView struct {
	Source          string
	Title           string
	Thumb           string
	Full            string
	Characteristics string
}

// ElementView is one element as shown in tiles and on its own page
type ElementView struct {
	Name        string
	Title       string
	URL         string
	Thumb       string
	Description template.HTML
	Count       int
	Pictures    []PictureView
}

// CollectionView is a collection with its element views
type CollectionView struct {
	Name        string
	Title       string
	Description string
	URL         string
	Elements    []ElementView
}

// PageData is passed to every template
type PageData struct {
	Site       SiteView
	Title      string
	Collection *CollectionView
	Element    *ElementView
	Featured   []*CollectionView
	Content    template.HTML
}

// CollectionFile returns the overview page name of a collection
func CollectionFile(name string) string {
	s := slug.Make(name)
	if s == "" {
		s = "collection"
	}
	return s + ".html"
}

// AssetName returns the deterministic site relative name of a picture or
// one of its thumbnails. An empty attribute names the original file.
func AssetName(f *models.FileRecord, attribute string) string {
	base := slug.Key(f.Source)
	if attribute == "" {
		return path.Join("img", base+strings.ToLower(filepath.Ext(f.Path)))
	}
	variant := strings.TrimPrefix(attribute, "thumbnail_")
	ext := strings.ToLower(filepath.Ext(f.StringAttr(attribute)))
	if ext == "" {
		ext = ".jpg"
	}
	return path.Join("img", base+"."+variant+ext)
}

// Views turns collections into template data. Thumbnail is the attribute
// shown on element tiles, PictureThumb and PictureFull the ones shown on
// element pages. An empty PictureFull links to the original file.
type Views struct {
	URLs         URLResolver
	Thumbnail    string
	PictureThumb string
	PictureFull  string
}

// Attributes lists the attributes whose files are published, "" standing
// for the original
func (v *Views) Attributes() []string {
	var out []string
	seen := make(map[string]bool)
	for _, a := range []string{v.Thumbnail, v.PictureThumb, v.PictureFull} {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

func (v *Views) url(f *models.FileRecord, attribute string) string {
	if attribute != "" && !f.Attributes.Has(attribute) {
		return ""
	}
	rel := AssetName(f, attribute)
	if v.URLs == nil {
		return rel
	}
	return v.URLs.URL(rel)
}

// Element builds the view of one element
func (v *Views) Element(e *models.Element) ElementView {
	view := ElementView{
		Name:        e.Name,
		Title:       e.Title,
		URL:         e.Characteristic(models.CharTargetFile),
		Description: template.HTML(e.Characteristic(models.CharDescription)),
		Count:       len(e.Files),
	}
	if view.Title == "" {
		view.Title = e.Name
	}

	if thumb := v.thumbnailFile(e); thumb != nil {
		view.Thumb = v.url(thumb, v.Thumbnail)
	}

	for _, f := range e.Files {
		view.Pictures = append(view.Pictures, PictureView{
			Source:          f.Source,
			Title:           strings.TrimSuffix(path.Base(f.Source), path.Ext(f.Source)),
			Thumb:           v.url(f, v.PictureThumb),
			Full:            v.url(f, v.PictureFull),
			Characteristics: f.StringAttr("characteristics"),
		})
	}
	return view
}

func (v *Views) thumbnailFile(e *models.Element) *models.FileRecord {
	if source := e.Characteristic(models.CharThumbnailSource); source != "" {
		for _, f := range e.Files {
			if f.Source == source {
				return f
			}
		}
	}
	f, _ := e.File(-1)
	return f
}

// Collection builds the view of a collection and its elements
func (v *Views) Collection(c *models.Collection) *CollectionView {
	view := &CollectionView{
		Name:        c.Name,
		Title:       c.Title,
		Description: c.Description,
		URL:         CollectionFile(c.Name),
	}
	if view.Title == "" {
		view.Title = c.Name
	}
	for _, e := range c.Elements {
		view.Elements = append(view.Elements, v.Element(e))
	}
	return view
}
