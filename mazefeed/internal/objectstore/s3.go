package objectstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config describes the bucket holding maze images.
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PresignExpiry   time.Duration
}

type presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3 presigns GetObject URLs. Request headers are not used: the URL itself
// carries the signature.
type S3 struct {
	bucket  string
	expiry  time.Duration
	presign presigner
}

// NewS3 loads the AWS configuration and builds an S3 backend. Static keys
// override the default credential chain; a custom endpoint switches to
// path-style addressing for S3-compatible servers.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3(cfg.Bucket, cfg.PresignExpiry, s3.NewPresignClient(client)), nil
}

func newS3(bucket string, expiry time.Duration, p presigner) *S3 {
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &S3{bucket: bucket, expiry: expiry, presign: p}
}

// Get implements Store.
func (s *S3) Get(ctx context.Context, key string, opts GetOptions) (string, error) {
	if key == "" {
		return "", ErrObjectNotFound
	}

	expiry := s.expiry
	if opts.Expires > 0 {
		expiry = opts.Expires
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(opts.Prefix + key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", opts.Prefix+key, err)
	}
	return req.URL, nil
}
