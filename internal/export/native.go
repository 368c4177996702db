package export

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"product-panel/internal/model"

	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog"
)

const (
	maxImageWidth  = 3.0 // inches
	maxImageHeight = 3.0 // inches
	lineHeight     = 0.22
)

// NativeExporter lays render targets out directly with gofpdf.
// Output is vector text; RenderScale has no effect on it.
type NativeExporter struct {
	logger zerolog.Logger
}

// NewNativeExporter creates a gofpdf-based exporter.
func NewNativeExporter(logger zerolog.Logger) *NativeExporter {
	return &NativeExporter{
		logger: logger.With().Str("component", "pdf-native").Logger(),
	}
}

// Export renders target to a PDF held in memory.
func (e *NativeExporter) Export(ctx context.Context, target RenderTarget, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid export config: %w", err)
	}

	start := time.Now()

	orientation := "P"
	if cfg.Orientation == OrientationLandscape {
		orientation = "L"
	}
	w, h := cfg.PaperFormat.Dimensions()

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "in",
		Size:           gofpdf.SizeType{Wd: w, Ht: h},
		OrientationStr: orientation,
	})
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetMargins(cfg.MarginInches, cfg.MarginInches, cfg.MarginInches)
	pdf.SetAutoPageBreak(true, cfg.MarginInches)
	pdf.SetTitle(target.Title, true)
	pdf.SetCreator("product-panel", true)
	pdf.AddPage()

	if target.Kind == TargetGrid && target.Title != "" {
		pdf.SetFont("Helvetica", "B", 20)
		pdf.CellFormat(0, 0.4, tr(target.Title), "", 1, "L", false, 0, "")
		pdf.Ln(0.1)
	}

	if len(target.Products) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.CellFormat(0, lineHeight, "No products", "", 1, "L", false, 0, "")
	}

	for i, p := range target.Products {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 {
			e.separator(pdf, cfg)
		}
		e.product(pdf, tr, i, p, cfg)
	}

	if err := pdf.Error(); err != nil {
		e.logger.Error().Err(err).Str("filename", cfg.Filename).Msg("pdf layout failed")
		return nil, fmt.Errorf("failed to lay out pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}

	result := &Result{
		Filename: cfg.Filename,
		Data:     buf.Bytes(),
		Pages:    pdf.PageCount(),
	}

	e.logger.Info().
		Str("filename", result.Filename).
		Int("products", len(target.Products)).
		Int("pages", result.Pages).
		Int("bytes", len(result.Data)).
		Dur("duration", time.Since(start)).
		Msg("PDF rendered successfully")

	return result, nil
}

func (e *NativeExporter) separator(pdf *gofpdf.Fpdf, cfg Config) {
	pageW, _ := pdf.GetPageSize()
	pdf.Ln(0.15)
	y := pdf.GetY()
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.01)
	pdf.Line(cfg.MarginInches, y, pageW-cfg.MarginInches, y)
	pdf.Ln(0.15)
}

func (e *NativeExporter) product(pdf *gofpdf.Fpdf, tr func(string) string, index int, p model.Product, cfg Config) {
	title := p.Title
	if title == "" {
		title = "New Product"
	}
	category := p.Category
	if category == "" {
		category = "No category"
	}

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 0.28, tr(title), "", "L", false)

	pdf.SetTextColor(110, 110, 110)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, lineHeight, tr(category), "", "L", false)
	pdf.SetTextColor(0, 0, 0)

	if p.Image != "" {
		e.image(pdf, index, p, cfg)
	}

	if p.Description != "" {
		pdf.Ln(0.05)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, lineHeight, tr(p.Description), "", "L", false)
	}

	if p.Dimensions != "" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0.9, lineHeight, "Dimensions:", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, lineHeight, tr(p.Dimensions), "", "L", false)
	}

	if len(p.Specifications) > 0 {
		keys := make([]string, 0, len(p.Specifications))
		for k := range p.Specifications {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pdf.Ln(0.05)
		for _, k := range keys {
			pdf.SetFont("Helvetica", "B", 9)
			pdf.CellFormat(1.6, lineHeight, tr(k), "1", 0, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 9)
			pdf.CellFormat(0, lineHeight, tr(p.Specifications[k]), "1", 1, "L", false, 0, "")
		}
	}
}

func (e *NativeExporter) image(pdf *gofpdf.Fpdf, index int, p model.Product, cfg Config) {
	data, info, err := toJPEG(p.Image, cfg.ImageQuality)
	if err != nil {
		// A broken image should not sink the whole document.
		e.logger.Warn().Err(err).Str("product_id", p.ID).Msg("skipping undecodable image")
		return
	}

	w, h := fitImage(float64(info.Width), float64(info.Height))

	_, pageH := pdf.GetPageSize()
	if pdf.GetY()+h > pageH-cfg.MarginInches {
		pdf.AddPage()
	}

	name := fmt.Sprintf("product-%d", index)
	opts := gofpdf.ImageOptions{ImageType: "JPG", ReadDpi: false}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))

	pdf.Ln(0.05)
	pdf.ImageOptions(name, cfg.MarginInches, pdf.GetY(), w, h, true, opts, 0, "")
	pdf.Ln(0.05)
}

// fitImage scales pixel dimensions into the maximum image box, in inches,
// keeping the aspect ratio.
func fitImage(pxW, pxH float64) (float64, float64) {
	if pxW <= 0 || pxH <= 0 {
		return maxImageWidth, maxImageHeight
	}
	scale := maxImageWidth / pxW
	if s := maxImageHeight / pxH; s < scale {
		scale = s
	}
	return pxW * scale, pxH * scale
}
