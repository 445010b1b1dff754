package pipeline

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/kilupskalvis/mosgal/internal/models"
	"github.com/kilupskalvis/mosgal/internal/slug"
)

// Characterizer annotates or reorders the elements of a collection once
// every element exists. It must never add, drop or rename elements.
type Characterizer interface {
	Characterize(c *models.Collection) error
}

// CharacterizerFunc adapts a function to the Characterizer interface
type CharacterizerFunc func(c *models.Collection) error

// Characterize calls fn(c)
func (fn CharacterizerFunc) Characterize(c *models.Collection) error { return fn(c) }

// SortElements orders elements by an attribute of one designated file of
// each element. FilePosition -1 selects the last file.
type SortElements struct {
	Attribute    string
	FilePosition int
	Descending   bool
}

// SortBy sorts ascending on the attribute of each element's last file
func SortBy(attribute string) *SortElements {
	return &SortElements{Attribute: attribute, FilePosition: -1}
}

// Characterize sorts the elements in place. The sort is stable.
func (s *SortElements) Characterize(c *models.Collection) error {
	keys := make(map[*models.Element]models.Value, len(c.Elements))
	for _, e := range c.Elements {
		f, ok := e.File(s.FilePosition)
		if !ok {
			return fmt.Errorf("element %q has no file at position %d", e.Name, s.FilePosition)
		}
		v, ok := f.Attr(s.Attribute)
		if !ok {
			return fmt.Errorf("element %q: file %s has no attribute %q", e.Name, f.Source, s.Attribute)
		}
		keys[e] = v
	}

	sort.SliceStable(c.Elements, func(i, j int) bool {
		cmp := models.Compare(keys[c.Elements[i]], keys[c.Elements[j]])
		if s.Descending {
			return cmp > 0
		}
		return cmp < 0
	})
	return nil
}

func (s *SortElements) Name() string { return "sort by " + s.Attribute }

// TargetFile stores a file name for each element, built from the slugs of
// the collection and element names: "album__iceland.html". Two element
// names that slugify alike are disambiguated with a numeric suffix, in
// element order, and a warning is logged.
type TargetFile struct {
	Extension string // default ".html"
	Separator string // default "__"
	Logger    *slog.Logger
}

// Characterize sets the target_file characteristic
func (t *TargetFile) Characterize(c *models.Collection) error {
	ext := t.Extension
	if ext == "" {
		ext = ".html"
	}
	sep := t.Separator
	if sep == "" {
		sep = "__"
	}

	prefix := slug.Make(c.Name)
	claimed := slug.NewSet()

	for _, e := range c.Elements {
		base := slug.Make(e.Name)
		if base == "" {
			base = "element"
		}

		name, changed := claimed.Claim(base)
		if changed {
			loggerOrDefault(t.Logger).Warn("element names collide after slugify",
				"collection", c.Name, "element", e.Name, "slug", base, "assigned", name)
		}

		e.Characteristics.Set(models.CharTargetFile, models.String(prefix+sep+name+ext))
	}
	return nil
}

func (t *TargetFile) Name() string { return "target file" }

// Thumbnail copies the thumbnail attribute of one designated file of each
// element into the element's thumbnail characteristic.
type Thumbnail struct {
	Attribute    string
	FilePosition int
}

// Characterize sets the thumbnail and thumbnail_source characteristics
func (t *Thumbnail) Characterize(c *models.Collection) error {
	for _, e := range c.Elements {
		f, ok := e.File(t.FilePosition)
		if !ok {
			return fmt.Errorf("element %q has no file at position %d", e.Name, t.FilePosition)
		}
		if err := setThumbnail(e, f, t.Attribute); err != nil {
			return err
		}
	}
	return nil
}

func (t *Thumbnail) Name() string { return "thumbnail " + t.Attribute }

func setThumbnail(e *models.Element, f *models.FileRecord, attribute string) error {
	v, ok := f.Attr(attribute)
	if !ok {
		return fmt.Errorf("element %q: file %s has no attribute %q", e.Name, f.Source, attribute)
	}
	e.Characteristics.Set(models.CharThumbnail, v)
	e.Characteristics.Set(models.CharThumbnailSource, models.String(f.Source))
	return nil
}

// MarkupRenderer converts lightweight markup to HTML
type MarkupRenderer interface {
	Render(src []byte) (string, error)
}

// DefaultSidecarName is the companion file read by Sidecar
const DefaultSidecarName = "index.md"

var sidecarHeader = regexp.MustCompile(`^([A-Za-z]+)\s*:\s*(.*)$`)

// Sidecar reads a companion file stored next to an element's files. The
// file starts with optional header lines ("Title: ...", "Thumbnail: ...")
// and continues with a Markdown description. Elements whose files span
// several directories, or that have no companion file, are left alone.
// Run it after Thumbnail so a thumbnail override wins.
type Sidecar struct {
	FileName           string
	ThumbnailAttribute string
	Markup             MarkupRenderer
	Logger             *slog.Logger
}

// SidecarInfo is the parsed content of a companion file
type SidecarInfo struct {
	Title       string
	Thumbnail   string
	Description string // raw markup
}

// Characterize applies companion file overrides to every element
func (s *Sidecar) Characterize(c *models.Collection) error {
	for _, e := range c.Elements {
		dir, ok := commonDir(e)
		if !ok {
			continue
		}

		path := filepath.Join(dir, s.fileName())
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		info := ParseSidecar(data)
		if err := s.apply(e, info); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		loggerOrDefault(s.Logger).Debug("applied sidecar", "collection", c.Name, "element", e.Name, "path", path)
	}
	return nil
}

func (s *Sidecar) Name() string { return "sidecar " + s.fileName() }

func (s *Sidecar) fileName() string {
	if s.FileName == "" {
		return DefaultSidecarName
	}
	return s.FileName
}

func (s *Sidecar) apply(e *models.Element, info SidecarInfo) error {
	if info.Title != "" {
		e.Title = info.Title
	}

	if info.Thumbnail != "" {
		var chosen *models.FileRecord
		for _, f := range e.Files {
			if filepath.Base(f.Path) == info.Thumbnail || f.Source == info.Thumbnail {
				chosen = f
				break
			}
		}
		if chosen == nil {
			return fmt.Errorf("thumbnail %q is not a file of element %q", info.Thumbnail, e.Name)
		}
		if err := setThumbnail(e, chosen, s.ThumbnailAttribute); err != nil {
			return err
		}
	}

	if info.Description != "" {
		html := info.Description
		if s.Markup != nil {
			rendered, err := s.Markup.Render([]byte(info.Description))
			if err != nil {
				return fmt.Errorf("render description: %w", err)
			}
			html = rendered
		}
		e.Characteristics.Set(models.CharDescription, models.String(html))
	}
	return nil
}

// ParseSidecar splits a companion file into its header and description.
// The header ends at the first line that is not a recognized key.
func ParseSidecar(data []byte) SidecarInfo {
	var info SidecarInfo
	scanner := bufio.NewScanner(bytes.NewReader(data))

	var body []string
	inHeader := true
	for scanner.Scan() {
		line := scanner.Text()
		if inHeader {
			if m := sidecarHeader.FindStringSubmatch(line); m != nil {
				value := strings.TrimSpace(m[2])
				switch strings.ToLower(m[1]) {
				case "title", "name":
					info.Title = value
					continue
				case "thumbnail":
					info.Thumbnail = value
					continue
				}
			}
			inHeader = false
		}
		body = append(body, line)
	}

	info.Description = strings.TrimSpace(strings.Join(body, "\n"))
	return info
}

func commonDir(e *models.Element) (string, bool) {
	if len(e.Files) == 0 {
		return "", false
	}
	dir := filepath.Dir(e.Files[0].Path)
	for _, f := range e.Files[1:] {
		if filepath.Dir(f.Path) != dir {
			return "", false
		}
	}
	return dir, true
}
