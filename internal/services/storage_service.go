package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	appconfig "membership-api/internal/config"
	"membership-api/pkg/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// StorageService uploads invoice documents to S3-compatible object
// storage and hands back publicly resolvable URLs.
type StorageService struct {
	s3Client      *s3.Client
	bucket        string
	region        string
	endpointURL   string
	publicBaseURL string
}

// NewStorageService creates the S3 client from app configuration.
// Returns an error when the bucket is not configured; callers treat a
// nil service as "invoice artifacts disabled".
func NewStorageService() (*StorageService, error) {
	cfg := appconfig.AppConfig
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3 invoice storage is not configured")
	}

	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.S3EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.S3EndpointURL)
			// Path-style URLs for non-AWS providers
			o.UsePathStyle = true
		}
	})

	logging.Infof("Initialized S3 invoice storage for bucket: %s", cfg.S3Bucket)

	return &StorageService{
		s3Client:      s3Client,
		bucket:        cfg.S3Bucket,
		region:        cfg.S3Region,
		endpointURL:   cfg.S3EndpointURL,
		publicBaseURL: cfg.S3PublicBaseURL,
	}, nil
}

// Upload writes an object and returns its public URL. Re-uploading the
// same key overwrites the previous object.
func (s *StorageService) Upload(ctx context.Context, key, contentType string, body []byte) (string, error) {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return s.PublicURL(key), nil
}

// PublicURL returns the resolvable URL for an object key
func (s *StorageService) PublicURL(key string) string {
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(s.publicBaseURL, "/"), key)
	}
	if s.endpointURL != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.endpointURL, "/"), s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
