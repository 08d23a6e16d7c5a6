package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/autostack/gateway/internal/metrics"
	appErr "github.com/autostack/gateway/pkg/errors"
	"github.com/autostack/gateway/pkg/logger"
)

type S3Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3Store keeps files in an S3-compatible bucket.
type S3Store struct {
	bucket string
	client *s3.Client
	log    *zap.Logger
}

func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	// Without static keys the default chain (env, shared config, instance role) applies.
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})
	return &S3Store{bucket: bucket, client: client, log: logger.Named("s3-storage")}, nil
}

func (s *S3Store) Backend() string { return "s3" }

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		metrics.RecordStorage(s.Backend(), "put", "error")
		s.log.Error("put object failed", zap.String("key", key), zap.Error(err))
		return appErr.Wrap(err, appErr.CodeUnavailable, "file storage unavailable")
	}
	metrics.RecordStorage(s.Backend(), "put", "success")
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			metrics.RecordStorage(s.Backend(), "get", "not_found")
			return nil, "", appErr.New(appErr.CodeNotFound, "stored file not found").WithMeta("storage_key", key)
		}
		metrics.RecordStorage(s.Backend(), "get", "error")
		return nil, "", appErr.Wrap(err, appErr.CodeUnavailable, "file storage unavailable")
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		metrics.RecordStorage(s.Backend(), "get", "error")
		return nil, "", appErr.Wrap(err, appErr.CodeUnavailable, "read stored file failed")
	}
	metrics.RecordStorage(s.Backend(), "get", "success")
	return data, aws.ToString(out.ContentType), nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		metrics.RecordStorage(s.Backend(), "delete", "error")
		return appErr.Wrap(err, appErr.CodeUnavailable, "file storage unavailable")
	}
	metrics.RecordStorage(s.Backend(), "delete", "success")
	return nil
}

// DeletePrefix lists keys under prefix page by page and removes each page in one batch.
func (s *S3Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	removed := 0
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			metrics.RecordStorage(s.Backend(), "delete_prefix", "error")
			return removed, appErr.Wrap(err, appErr.CodeUnavailable, "file storage unavailable")
		}
		if len(page.Contents) == 0 {
			continue
		}
		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
		_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			metrics.RecordStorage(s.Backend(), "delete_prefix", "error")
			s.log.Error("delete objects failed", zap.String("prefix", prefix), zap.Error(err))
			return removed, appErr.Wrap(err, appErr.CodeUnavailable, "file storage unavailable")
		}
		removed += len(ids)
	}
	metrics.RecordStorage(s.Backend(), "delete_prefix", "success")
	return removed, nil
}
