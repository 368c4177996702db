package catalog

import (
	"context"
	"fmt"
	"os"

	"product-panel/internal/imageload"
	"product-panel/internal/model"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// SampleProduct is the product a fresh panel starts with.
func SampleProduct() model.Product {
	return model.Product{
		ID:          "1",
		Title:       "Sample Product",
		Category:    "Category 1",
		Description: "This is a sample product description",
		Dimensions:  "100x200cm",
	}
}

// seedFile is the on-disk layout of a catalog seed.
type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	model.Product `yaml:",inline"`
	// ImageFile is resolved through the image fetcher, relative to its root.
	ImageFile string `yaml:"imageFile"`
}

// SeedReader reads initial catalogs from YAML files.
type SeedReader struct {
	images  imageload.Loader
	fetcher imageload.Fetcher
	logger  zerolog.Logger
}

// NewSeedReader creates a seed reader. fetcher may be nil when seeds carry
// no images.
func NewSeedReader(images imageload.Loader, fetcher imageload.Fetcher, logger zerolog.Logger) *SeedReader {
	return &SeedReader{
		images:  images,
		fetcher: fetcher,
		logger:  logger.With().Str("component", "catalog-seed").Logger(),
	}
}

// ReadFile parses the seed at path.
func (r *SeedReader) ReadFile(ctx context.Context, path string) ([]model.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	products, err := r.Parse(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed %s: %w", path, err)
	}

	r.logger.Info().Str("path", path).Int("count", len(products)).Msg("seed file loaded")
	return products, nil
}

// Parse decodes seed YAML and inlines referenced images.
func (r *SeedReader) Parse(ctx context.Context, data []byte) ([]model.Product, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}

	products := make([]model.Product, 0, len(seed.Products))
	for i, sp := range seed.Products {
		p := sp.Product
		if sp.ImageFile != "" {
			if r.fetcher == nil {
				return nil, fmt.Errorf("product %d: image %q given but no image directory configured", i, sp.ImageFile)
			}
			dataURL, err := r.images.Load(ctx, imageload.Ref(r.fetcher, sp.ImageFile))
			if err != nil {
				return nil, fmt.Errorf("product %d: failed to load image %q: %w", i, sp.ImageFile, err)
			}
			p.Image = dataURL
		}
		products = append(products, p)
	}

	return products, nil
}
