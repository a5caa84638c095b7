package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds S3 client and bucket info
type S3Config struct {
	Client     *s3.Client
	BucketName string
	PublicURL  string
}

// NewS3Config initializes the S3 client from the application config. A custom
// endpoint (MinIO, LocalStack) switches the client to path-style addressing.
func NewS3Config(ctx context.Context, cfg *Config) (*S3Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := strings.TrimRight(cfg.S3PublicURL, "/")
	if publicURL == "" {
		if cfg.S3Endpoint != "" {
			publicURL = strings.TrimRight(cfg.S3Endpoint, "/") + "/" + cfg.S3BucketName
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.amazonaws.com", cfg.S3BucketName)
		}
	}

	return &S3Config{
		Client:     client,
		BucketName: cfg.S3BucketName,
		PublicURL:  publicURL,
	}, nil
}

// ObjectURL returns the public URL of an object key
func (s *S3Config) ObjectURL(key string) string {
	return s.PublicURL + "/" + strings.TrimLeft(key, "/")
}
