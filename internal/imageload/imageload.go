// Package imageload turns user-selected image files into inline data URLs.
package imageload

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"product-panel/internal/model"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// Source is an image file chosen by the user.
type Source interface {
	// Name identifies the source in logs.
	Name() string

	// Read returns the raw file content.
	Read(ctx context.Context) ([]byte, error)
}

// Loader converts a Source into an inline image representation.
type Loader interface {
	// Load reads src exactly once and returns a data URL suitable for an
	// <img> src attribute and for embedding in exported PDFs.
	Load(ctx context.Context, src Source) (string, error)
}

// Fetcher retrieves a stored file by reference (path or object key).
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

var supportedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// IsSupported reports whether mime is an accepted raster image type.
func IsSupported(mime string) bool {
	return supportedTypes[mime]
}

// loader implements Loader by content sniffing and base64 encoding.
type loader struct {
	logger zerolog.Logger
}

// NewLoader creates a new data URL loader.
func NewLoader(logger zerolog.Logger) Loader {
	return &loader{
		logger: logger.With().Str("component", "image-loader").Logger(),
	}
}

// Load reads src and encodes it as a data URL.
func (l *loader) Load(ctx context.Context, src Source) (string, error) {
	data, err := src.Read(ctx)
	if err != nil {
		l.logger.Error().Err(err).Str("source", src.Name()).Msg("failed to read image")
		return "", fmt.Errorf("failed to read image %s: %w", src.Name(), err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	mime := DetectType(data)
	if !IsSupported(mime) {
		l.logger.Warn().
			Str("source", src.Name()).
			Str("content_type", mime).
			Msg("rejected unsupported image type")
		return "", model.ErrUnsupportedImage
	}

	l.logger.Debug().
		Str("source", src.Name()).
		Str("content_type", mime).
		Int("bytes", len(data)).
		Msg("image loaded")

	return EncodeDataURL(mime, data), nil
}

// DetectType sniffs the MIME type of data. A subtype of a supported format,
// such as APNG, reports the supported parent type.
func DetectType(data []byte) string {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if IsSupported(baseType(m.String())) {
			return baseType(m.String())
		}
	}
	return baseType(detected.String())
}

// baseType strips parameters such as "; charset=utf-8".
func baseType(mime string) string {
	mime, _, _ = strings.Cut(mime, ";")
	return strings.TrimSpace(mime)
}

// EncodeDataURL builds a base64 data URL.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a base64 data URL into its MIME type and content.
// Format: data:image/png;base64,iVBORw0KGgo...
func DecodeDataURL(dataURL string) (string, []byte, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "", nil, fmt.Errorf("invalid data URL format")
	}
	idx := strings.Index(dataURL, ",")
	if idx == -1 {
		return "", nil, fmt.Errorf("invalid data URL format")
	}

	meta := dataURL[len("data:"):idx]
	mime, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return "", nil, fmt.Errorf("unsupported data URL encoding %q", encoding)
	}

	data, err := base64.StdEncoding.DecodeString(dataURL[idx+1:])
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URL: %w", err)
	}
	return mime, data, nil
}
