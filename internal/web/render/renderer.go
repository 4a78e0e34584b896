// Package render turns snapshots and flows into HTML. Templates are embedded
// in the binary and executed through html/template, so every user supplied
// string is escaped for the context it lands in.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"cuenca-ubate/internal/domain/gallery"
	"cuenca-ubate/internal/domain/moderation"
)

//go:embed templates
var templateFS embed.FS

// Fragment names
const (
	AdminCards  = "admin-cards"
	PublicCards = "public-cards"
	JobProgress = "job-progress"
)

// Page is the data every full page receives
type Page struct {
	Title string
	Toast moderation.Toast
	// Admin is the logged-in administrator, empty for visitors
	Admin string
	Data  any
}

// Renderer executes the embedded page and fragment templates
type Renderer struct {
	pages     map[string]*template.Template
	fragments *template.Template
}

// New parses every embedded template
func New() (*Renderer, error) {
	fragments, err := template.New("fragments").Funcs(Funcs()).ParseFS(templateFS, "templates/fragments/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragments: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		t, err := fragments.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone fragments: %w", err)
		}
		if _, err := t.ParseFS(templateFS, "templates/layout.html", file); err != nil {
			return nil, fmt.Errorf("failed to parse page %s: %w", file, err)
		}
		pages[strings.TrimSuffix(path.Base(file), ".html")] = t
	}

	return &Renderer{pages: pages, fragments: fragments}, nil
}

// Page renders a full page inside the shared layout. Nothing is written when execution fails.
func (r *Renderer) Page(w io.Writer, name string, page Page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("failed to render page %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Fragment renders a partial used for htmx swaps
func (r *Renderer) Fragment(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to render fragment %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// ImageCards renders the card grid of the admin panel or the public gallery
func (r *Renderer) ImageCards(records []gallery.ImageRecord, admin bool) (template.HTML, error) {
	name := PublicCards
	if admin {
		name = AdminCards
	}

	var buf bytes.Buffer
	if err := r.fragments.ExecuteTemplate(&buf, name, records); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // output of html/template
}
