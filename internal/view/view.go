// Package view renders the panel as HTML.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"product-panel/internal/catalog"
	"product-panel/internal/editor"
	"product-panel/internal/export"
	"product-panel/internal/model"

	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page is the data of the catalog page.
type Page struct {
	SearchTerm string
	Products   []model.Product
	Editor     editor.Snapshot
}

type gridData struct {
	Products []model.Product
	Editable bool
}

type pageData struct {
	SearchTerm string
	Grid       gridData
	Editor     editor.Snapshot
}

type documentData struct {
	Kind     export.TargetKind
	Title    string
	Products []model.Product
	Grid     gridData
}

// Renderer executes the embedded templates.
type Renderer struct {
	templates *template.Template
	logger    zerolog.Logger
}

// NewRenderer parses the embedded templates.
func NewRenderer(logger zerolog.Logger) (*Renderer, error) {
	funcs := template.FuncMap{
		"imageURL": imageURL,
		"isOpen": func(m catalog.Mode) bool {
			return m == catalog.ModeCreating || m == catalog.ModeEditing
		},
	}

	tmpl, err := template.New("panel").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Renderer{
		templates: tmpl,
		logger:    logger.With().Str("component", "view").Logger(),
	}, nil
}

// RenderPage writes the catalog page.
func (r *Renderer) RenderPage(w io.Writer, page Page) error {
	return r.execute(w, "page", pageData{
		SearchTerm: page.SearchTerm,
		Grid:       gridData{Products: page.Products, Editable: true},
		Editor:     page.Editor,
	})
}

// RenderEditor writes the standalone draft preview.
func (r *Renderer) RenderEditor(w io.Writer, snapshot editor.Snapshot) error {
	return r.execute(w, "editor", snapshot)
}

// RenderTarget renders a standalone document of target, ready to print.
func (r *Renderer) RenderTarget(target export.RenderTarget) (string, error) {
	var buf bytes.Buffer
	err := r.execute(&buf, "document", documentData{
		Kind:     target.Kind,
		Title:    target.Title,
		Products: target.Products,
		Grid:     gridData{Products: target.Products},
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *Renderer) execute(w io.Writer, name string, data any) error {
	if err := r.templates.ExecuteTemplate(w, name, data); err != nil {
		r.logger.Error().Err(err).Str("template", name).Msg("failed to render template")
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return nil
}

// imageURL marks inline image data URLs as safe to use as a source.
// Anything else renders as no image.
func imageURL(s string) template.URL {
	if !strings.HasPrefix(s, "data:image/") {
		return ""
	}
	return template.URL(s)
}

var _ export.HTMLRenderer = (*Renderer)(nil)
