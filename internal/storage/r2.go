package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/perudosmundos/audio-sub003/internal/config"
)

// R2Store talks to Cloudflare R2 through its S3-compatible API.
type R2Store struct {
	client     *s3.Client
	bucket     string
	publicBase string
	endpoint   string
	log        zerolog.Logger
}

// NewR2Store creates the R2 backend from config.
func NewR2Store(cfg *config.Config, log zerolog.Logger) (*R2Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.R2Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.R2AccessKey, cfg.R2SecretKey, ""),
		),
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.R2Endpoint)
		o.UsePathStyle = true
	})

	return &R2Store{
		client:     client,
		bucket:     cfg.R2Bucket,
		publicBase: strings.TrimSuffix(cfg.R2PublicBaseURL, "/"),
		endpoint:   strings.TrimSuffix(cfg.R2Endpoint, "/"),
		log:        log.With().Str("component", "r2-store").Logger(),
	}, nil
}

func (s *R2Store) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string, progress ProgressFunc) error {
	body := newProgressReader(r, size, progress)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   &contentType,
	})
	if err != nil {
		return fmt.Errorf("r2 put %s: %w", key, err)
	}
	if progress != nil {
		progress(100)
	}
	return nil
}

// Delete removes the object. S3 DeleteObject already succeeds on missing
// keys, which gives the idempotency the router relies on.
func (s *R2Store) Delete(ctx context.Context, key, bucket string) error {
	b := s.bucketOr(bucket)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &b,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("r2 delete %s: %w", key, err)
	}
	return nil
}

func (s *R2Store) PublicURL(key, bucket string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + key
	}
	return s.endpoint + "/" + s.bucketOr(bucket) + "/" + key
}

func (s *R2Store) Exists(ctx context.Context, filename string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    &filename,
	})
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *R2Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &s.bucket})
	return err
}

func (s *R2Store) Provider() Provider { return ProviderR2 }

func (s *R2Store) bucketOr(bucket string) string {
	if bucket != "" {
		return bucket
	}
	return s.bucket
}
