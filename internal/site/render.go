// Package site renders the static HTML gallery: collection and element
// pages, the index, free-form Markdown pages and the stylesheet.
package site

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

//go:embed templates
var embedded embed.FS

// Renderer executes the page templates. Templates found in an override
// directory replace the embedded ones of the same name.
type Renderer struct {
	tmpl       *template.Template
	stylesheet []byte
}

var funcs = template.FuncMap{
	"plural": func(n int, singular, plural string) string {
		if n == 1 {
			return singular
		}
		return plural
	},
	"comma": func(n int) string { return humanize.Comma(int64(n)) },
	"lower": strings.ToLower,
}

// NewRenderer parses the embedded templates, then any *.html and
// style.css from overrideDir when it exists
func NewRenderer(overrideDir string) (*Renderer, error) {
	tmpl, err := template.New("site").Funcs(funcs).ParseFS(embedded, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	css, err := embedded.ReadFile("templates/style.css")
	if err != nil {
		return nil, err
	}

	r := &Renderer{tmpl: tmpl, stylesheet: css}
	if overrideDir == "" {
		return r, nil
	}

	overrides, err := filepath.Glob(filepath.Join(overrideDir, "*.html"))
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		if r.tmpl, err = r.tmpl.ParseFiles(overrides...); err != nil {
			return nil, fmt.Errorf("parse template overrides: %w", err)
		}
	}

	custom, err := os.ReadFile(filepath.Join(overrideDir, "style.css"))
	switch {
	case err == nil:
		r.stylesheet = custom
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}
	return r, nil
}

// Render executes a template into a byte slice
func (r *Renderer) Render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Stylesheet returns the site stylesheet
func (r *Renderer) Stylesheet() []byte { return r.stylesheet }

// writePage renders a template to dest/name
func (r *Renderer) writePage(dest, name, tmpl string, data any) error {
	out, err := r.Render(tmpl, data)
	if err != nil {
		return err
	}
	path := filepath.Join(dest, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}
