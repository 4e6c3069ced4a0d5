package objecttier

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"snapgc/internal/gc"
)

// S3Config holds connection settings for an S3-compatible object tier.
type S3Config struct {
	// Region is the AWS region (optional, uses SDK default if empty).
	Region string

	// Endpoint is the S3 endpoint URL (optional, for S3-compatible services).
	Endpoint string

	// AccessKeyID and SecretAccessKey select static credentials. When empty the
	// SDK's default credential chain is used.
	AccessKeyID     string
	SecretAccessKey string

	// ForcePathStyle forces path-style addressing (required for MinIO and most gateways).
	ForcePathStyle bool
}

// S3ObjectTier deletes snapshot objects from S3. The bucket is taken from each
// snapshot's remote location, so one tier serves every bucket.
type S3ObjectTier struct {
	name   string
	client *s3.Client
}

// NewS3ObjectTier creates an S3 object tier with an existing client.
func NewS3ObjectTier(name string, client *s3.Client) *S3ObjectTier {
	return &S3ObjectTier{name: name, client: client}
}

// NewS3ObjectTierFromConfig creates an S3 object tier by building a client from config.
func NewS3ObjectTierFromConfig(ctx context.Context, name string, cfg S3Config) (*S3ObjectTier, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return NewS3ObjectTier(name, client), nil
}

// DeleteObject removes bucket/key. S3 deletes are idempotent; a NoSuchKey
// reported by an S3-compatible service is treated as success as well.
func (s *S3ObjectTier) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil
		}
		return &gc.GatewayError{Tier: "object", Op: "delete", Target: bucket + "/" + key, Err: err}
	}
	return nil
}

func isNotFoundError(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// Compile-time check that S3ObjectTier implements gc.ObjectTier interface
var _ gc.ObjectTier = (*S3ObjectTier)(nil)
