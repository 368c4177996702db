package imageload

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// fileFetcher implements Fetcher for files below a local directory.
type fileFetcher struct {
	root   string
	logger zerolog.Logger
}

// NewFileFetcher creates a fetcher reading files below root.
// References that escape root are rejected.
func NewFileFetcher(root string, logger zerolog.Logger) Fetcher {
	return &fileFetcher{
		root:   root,
		logger: logger.With().Str("component", "image-file-fetcher").Logger(),
	}
}

// Fetch reads the file at ref, relative to the fetcher root.
func (f *fileFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	f.logger.Debug().Str("root", f.root).Str("file", ref).Msg("reading image file")

	file, err := os.OpenInRoot(f.root, ref)
	if err != nil {
		f.logger.Error().Err(err).Str("file", ref).Msg("failed to open image file")
		return nil, fmt.Errorf("failed to open image file %s: %w", ref, err)
	}
	defer file.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		f.logger.Error().Err(err).Str("file", ref).Msg("error reading image file")
		return nil, fmt.Errorf("error reading image file %s: %w", ref, err)
	}

	return data, nil
}

// fallbackFetcher tries S3 first, then falls back to the local file system.
type fallbackFetcher struct {
	s3Fetcher   Fetcher
	fileFetcher Fetcher
	s3Prefix    string
	s3Enabled   bool
	logger      zerolog.Logger
}

// NewFallbackFetcher creates a fetcher that tries S3 first, then falls back to
// the local file system. If s3Fetcher is nil, only the file fetcher is used.
func NewFallbackFetcher(s3Fetcher, fileFetcher Fetcher, s3Prefix string, s3Enabled bool, logger zerolog.Logger) Fetcher {
	return &fallbackFetcher{
		s3Fetcher:   s3Fetcher,
		fileFetcher: fileFetcher,
		s3Prefix:    s3Prefix,
		s3Enabled:   s3Enabled,
		logger:      logger.With().Str("component", "image-fallback-fetcher").Logger(),
	}
}

// Fetch attempts S3 with the configured key prefix, then the local file.
func (f *fallbackFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if f.s3Enabled && f.s3Fetcher != nil {
		key := f.s3Prefix + ref

		data, err := f.s3Fetcher.Fetch(ctx, key)
		if err == nil {
			return data, nil
		}

		f.logger.Warn().
			Err(err).
			Str("s3_key", key).
			Msg("failed to fetch image from S3, falling back to local file system")
	}

	if f.fileFetcher == nil {
		return nil, fmt.Errorf("image %s not found", ref)
	}
	return f.fileFetcher.Fetch(ctx, ref)
}
