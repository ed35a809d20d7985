// Package s3service provides S3 access for remote cutoff source files.
package s3service

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"college-predictor/internal/utils"
)

// ObjectAPI is the subset of the S3 client used by Service.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Service handles S3 operations
type Service struct {
	client ObjectAPI
}

// NewService creates a new S3 service using the default AWS credential chain.
func NewService(ctx context.Context, region string) (*Service, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Service{client: s3.NewFromConfig(cfg)}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client ObjectAPI) *Service {
	return &Service{client: client}
}

// OpenObject streams an object's body. The caller must close it.
func (s *Service) OpenObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		utils.GetLogger().Error("Failed to open object from S3",
			zap.String("bucket", bucket),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to open s3://%s/%s: %w", bucket, key, err)
	}

	utils.GetLogger().Debug("Opened object from S3",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int64("size", aws.ToInt64(result.ContentLength)),
	)
	return result.Body, nil
}
