package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pageza/foodgram/backend/config"
)

// LocalStore keeps images on the filesystem below root and serves them under baseURL
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(root, baseURL string) *LocalStore {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &LocalStore{root: root, baseURL: baseURL}
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *LocalStore) Save(_ context.Context, key string, data []byte, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) URL(key string) string {
	return s.baseURL + strings.TrimLeft(key, "/")
}

// S3Store keeps images in an S3 bucket
type S3Store struct {
	s3 *config.S3Config
}

func NewS3Store(s3Config *config.S3Config) *S3Store {
	return &S3Store{s3: s3Config}
}

func (s *S3Store) Save(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.s3.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.s3.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.s3.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

func (s *S3Store) URL(key string) string {
	return s.s3.ObjectURL(key)
}
