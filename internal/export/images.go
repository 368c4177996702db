package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"product-panel/internal/imageload"
	"product-panel/internal/model"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// jpegQuality maps a (0, 1] quality factor to the encoder's 1-100 scale.
func jpegQuality(q float64) int {
	v := int(math.Round(q * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}

// toJPEG decodes an inline image and re-encodes it as JPEG at quality q.
// Transparent areas are flattened onto white.
func toJPEG(dataURL string, q float64) ([]byte, image.Config, error) {
	_, raw, err := imageload.DecodeDataURL(dataURL)
	if err != nil {
		return nil, image.Config{}, err
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, image.Config{}, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(flat, bounds, src, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: jpegQuality(q)}); err != nil {
		return nil, image.Config{}, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	cfg := image.Config{
		ColorModel: color.RGBAModel,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
	}
	return buf.Bytes(), cfg, nil
}

// compressImages returns copies of products whose images are JPEG data URLs
// at quality q. Images that cannot be decoded are dropped from the copy.
func compressImages(products []model.Product, q float64) []model.Product {
	out := make([]model.Product, len(products))
	for i, p := range products {
		c := p.Clone()
		if c.Image != "" {
			data, _, err := toJPEG(c.Image, q)
			if err != nil {
				c.Image = ""
			} else {
				c.Image = imageload.EncodeDataURL("image/jpeg", data)
			}
		}
		out[i] = c
	}
	return out
}
