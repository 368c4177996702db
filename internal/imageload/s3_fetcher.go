package imageload

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// objectGetter is the subset of the S3 client used by the fetcher.
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// s3Fetcher implements Fetcher for image objects stored in AWS S3.
type s3Fetcher struct {
	client objectGetter
	bucket string
	logger zerolog.Logger
}

// NewS3Fetcher creates a new S3-based image fetcher.
func NewS3Fetcher(ctx context.Context, bucket, region string, logger zerolog.Logger) (Fetcher, error) {
	logger = logger.With().Str("component", "image-s3-fetcher").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Msg("S3 image fetcher initialised")

	return newS3Fetcher(s3.NewFromConfig(cfg), bucket, logger), nil
}

func newS3Fetcher(client objectGetter, bucket string, logger zerolog.Logger) *s3Fetcher {
	return &s3Fetcher{
		client: client,
		bucket: bucket,
		logger: logger,
	}
}

// Fetch downloads the object stored under key.
func (f *s3Fetcher) Fetch(ctx context.Context, key string) ([]byte, error) {
	f.logger.Debug().
		Str("bucket", f.bucket).
		Str("key", key).
		Msg("fetching image from S3")

	result, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		f.logger.Error().
			Err(err).
			Str("bucket", f.bucket).
			Str("key", key).
			Msg("failed to get object from S3")
		return nil, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", f.bucket, key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		f.logger.Error().
			Err(err).
			Str("bucket", f.bucket).
			Str("key", key).
			Msg("error reading image from S3")
		return nil, fmt.Errorf("error reading image from S3 %s: %w", key, err)
	}

	return data, nil
}
