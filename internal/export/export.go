// Package export renders catalog views to PDF documents.
package export

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"product-panel/internal/model"
)

// PaperFormat is a named paper size.
type PaperFormat string

const (
	PaperLetter PaperFormat = "letter"
	PaperLegal  PaperFormat = "legal"
	PaperA4     PaperFormat = "a4"
)

// Dimensions returns the portrait width and height in inches.
func (p PaperFormat) Dimensions() (float64, float64) {
	switch p {
	case PaperLegal:
		return 8.5, 14
	case PaperA4:
		return 8.27, 11.69
	default:
		return 8.5, 11
	}
}

// IsValid reports whether p is a known paper format.
func (p PaperFormat) IsValid() bool {
	switch p {
	case PaperLetter, PaperLegal, PaperA4:
		return true
	}
	return false
}

// Orientation is the page orientation.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// Config controls a single export.
type Config struct {
	MarginInches float64
	Filename     string
	// ImageQuality is the JPEG quality for embedded images, in (0, 1].
	ImageQuality float64
	RenderScale  float64
	PaperFormat  PaperFormat
	Orientation  Orientation
}

// DefaultCatalogFilename is the filename of a full catalog export.
const DefaultCatalogFilename = "product-catalog.pdf"

// DefaultConfig returns letter portrait pages with 1 inch margins, JPEG
// images at quality 0.98 and a 2x render scale.
func DefaultConfig() Config {
	return Config{
		MarginInches: 1,
		Filename:     DefaultCatalogFilename,
		ImageQuality: 0.98,
		RenderScale:  2,
		PaperFormat:  PaperLetter,
		Orientation:  OrientationPortrait,
	}
}

// WithFilename returns a copy of c writing to filename.
func (c Config) WithFilename(filename string) Config {
	c.Filename = filename
	return c
}

// PageSize returns the page width and height in inches after orientation.
func (c Config) PageSize() (float64, float64) {
	w, h := c.PaperFormat.Dimensions()
	if c.Orientation == OrientationLandscape {
		return h, w
	}
	return w, h
}

// Validate validates the export configuration.
func (c Config) Validate() error {
	if !c.PaperFormat.IsValid() {
		return fmt.Errorf("invalid paper format: %s", c.PaperFormat)
	}
	if c.Orientation != OrientationPortrait && c.Orientation != OrientationLandscape {
		return fmt.Errorf("invalid orientation: %s (must be portrait or landscape)", c.Orientation)
	}
	if c.MarginInches < 0 {
		return fmt.Errorf("margin cannot be negative")
	}
	w, h := c.PageSize()
	if 2*c.MarginInches >= w || 2*c.MarginInches >= h {
		return fmt.Errorf("margin %.2fin leaves no printable area", c.MarginInches)
	}
	if c.ImageQuality <= 0 || c.ImageQuality > 1 {
		return fmt.Errorf("image quality must be in (0, 1]")
	}
	if c.RenderScale <= 0 || c.RenderScale > 4 {
		return fmt.Errorf("render scale must be in (0, 4]")
	}
	if strings.TrimSpace(c.Filename) == "" {
		return fmt.Errorf("filename is required")
	}
	return nil
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// FilenameFor derives a PDF filename from a product title.
func FilenameFor(title string) string {
	slug := strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		slug = "product"
	}
	return slug + ".pdf"
}

// TargetKind identifies which rendered region is exported.
type TargetKind string

const (
	// TargetGrid is the catalog list container.
	TargetGrid TargetKind = "grid"
	// TargetPreview is the editor's draft preview container.
	TargetPreview TargetKind = "preview"
)

// RenderTarget describes the rendered region handed to an exporter.
type RenderTarget struct {
	Kind     TargetKind
	Title    string
	Products []model.Product
}

// Result is a finished PDF document.
type Result struct {
	Filename string
	Data     []byte
	Pages    int
}

// ContentType is the MIME type of exported documents.
const ContentType = "application/pdf"

// Exporter serialises a render target to PDF.
type Exporter interface {
	// Export renders target with cfg. It must not leave partial output
	// behind on failure.
	Export(ctx context.Context, target RenderTarget, cfg Config) (*Result, error)
}

// HTMLRenderer turns a render target into a standalone HTML document.
type HTMLRenderer interface {
	RenderTarget(target RenderTarget) (string, error)
}
