package site

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kilupskalvis/mosgal/internal/pipeline"
	"github.com/kilupskalvis/mosgal/internal/slug"
	"gopkg.in/yaml.v3"
)

// Page is a free-form Markdown page
type Page struct {
	Title   string
	Slug    string
	Order   int
	Source  string
	Content template.HTML
}

// File returns the output file name of the page
func (p Page) File() string { return p.Slug + ".html" }

type frontMatter struct {
	Title string `yaml:"title"`
	Slug  string `yaml:"slug"`
	Order int    `yaml:"order"`
}

var frontMatterDelim = []byte("---")

// splitFrontMatter separates a leading YAML block delimited by "---" lines
// from the body. Documents without one have an empty header.
func splitFrontMatter(data []byte) (header, body []byte) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if !bytes.HasPrefix(data, frontMatterDelim) {
		return nil, data
	}
	rest := data[len(frontMatterDelim):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimSpace(rest[:nl])) != 0 {
		return nil, data
	}
	rest = rest[nl+1:]

	for offset := 0; offset < len(rest); {
		end := bytes.IndexByte(rest[offset:], '\n')
		line := rest[offset:]
		if end >= 0 {
			line = rest[offset : offset+end]
		}
		if bytes.Equal(bytes.TrimSpace(line), frontMatterDelim) {
			header = rest[:offset]
			if end < 0 {
				return header, nil
			}
			return header, rest[offset+end+1:]
		}
		if end < 0 {
			break
		}
		offset += end + 1
	}
	return nil, data
}

// ParsePage reads a page document. The title defaults to the file name and
// the slug to the slugified title.
func ParsePage(name string, data []byte, markup pipeline.MarkupRenderer) (Page, error) {
	header, body := splitFrontMatter(data)

	var fm frontMatter
	if len(header) > 0 {
		if err := yaml.Unmarshal(header, &fm); err != nil {
			return Page{}, fmt.Errorf("%s: front matter: %w", name, err)
		}
	}

	p := Page{Title: fm.Title, Slug: fm.Slug, Order: fm.Order, Source: name}
	if p.Title == "" {
		p.Title = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	if p.Slug == "" {
		p.Slug = slug.Make(p.Title)
	} else {
		p.Slug = slug.Make(p.Slug)
	}
	if p.Slug == "" || p.Slug == "index" {
		return Page{}, fmt.Errorf("%s: page slug %q is not usable", name, p.Slug)
	}

	html, err := markup.Render(body)
	if err != nil {
		return Page{}, fmt.Errorf("%s: %w", name, err)
	}
	p.Content = template.HTML(html)
	return p, nil
}

// LoadPages parses every *.md file of dir, ordered by their order key then
// title. A missing directory holds no pages.
func LoadPages(dir string, markup pipeline.MarkupRenderer) ([]Page, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var pages []Page
	slugs := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		p, err := ParsePage(entry.Name(), data, markup)
		if err != nil {
			return nil, err
		}
		if other, dup := slugs[p.Slug]; dup {
			return nil, fmt.Errorf("pages %s and %s share the slug %q", other, p.Source, p.Slug)
		}
		slugs[p.Slug] = p.Source
		pages = append(pages, p)
	}

	sort.SliceStable(pages, func(i, j int) bool {
		if pages[i].Order != pages[j].Order {
			return pages[i].Order < pages[j].Order
		}
		return pages[i].Title < pages[j].Title
	})
	return pages, nil
}
