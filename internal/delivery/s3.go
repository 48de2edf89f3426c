package delivery

import (
	"context"
	"errors"
	"fmt"
	"path"

	"media-converter/internal/filesystem"
	"media-converter/internal/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures the object storage sink.
type S3Config struct {
	Bucket    string
	Region    string
	Prefix    string
	Endpoint  string // S3-compatible endpoint; empty for AWS
	AccessKey string
	SecretKey string
}

// uploader is the part of manager.Uploader the sink uses.
type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Sink uploads artifacts to "<prefix>/<jobID>/<name>" in a bucket.
type S3Sink struct {
	bucket   string
	prefix   string
	uploader uploader
}

// NewS3Sink creates a sink with static credentials. Both keys are required;
// uploads are always signed.
func NewS3Sink(cfg S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("s3 access key and secret key are required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := s3.Options{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}

	return &S3Sink{
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		uploader: manager.NewUploader(s3.New(opts)),
	}, nil
}

// Name implements Sink.
func (s *S3Sink) Name() string {
	return "s3"
}

// Key returns the object key for an artifact.
func (s *S3Sink) Key(a Artifact) string {
	return path.Join(s.prefix, a.JobID, a.Name)
}

// Deliver implements Sink.
func (s *S3Sink) Deliver(ctx context.Context, a Artifact) ([]Receipt, error) {
	location, err := s.upload(ctx, a)
	record(s.Name(), a.JobID, err)
	if err != nil {
		return nil, err
	}
	logging.ForJob(a.JobID).Info("Uploaded output to %s", location)
	return []Receipt{{Sink: s.Name(), Location: location}}, nil
}

func (s *S3Sink) upload(ctx context.Context, a Artifact) (string, error) {
	file, err := filesystem.OpenWithRetry(a.Path, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", fmt.Errorf("failed to open artifact: %w", err)
	}
	defer file.Close()

	key := s.Key(a)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   file,
	}
	if a.ContentType != "" {
		input.ContentType = aws.String(a.ContentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload object %s to bucket %s: %w", key, s.bucket, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
