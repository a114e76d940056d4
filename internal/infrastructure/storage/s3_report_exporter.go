// Package storage exports finished sync reports to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	appintegration "github.com/catalogmirror/backend/internal/application/integration"
	"github.com/catalogmirror/backend/internal/domain/integration"
	infraconfig "github.com/catalogmirror/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const defaultReportPrefix = "sync-reports"

// s3API is the subset of the S3 client used by the exporter
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3ReportExporter writes each finished job with its report as JSON to
// {prefix}/{organization_id}/{job_id}.json. It works with AWS S3 and with
// S3-compatible stores such as MinIO.
type S3ReportExporter struct {
	client s3API
	bucket string
	prefix string
	logger *zap.Logger
}

var _ appintegration.ReportExporter = (*S3ReportExporter)(nil)

// S3ReportExporterOption is a functional option for configuring S3ReportExporter
type S3ReportExporterOption func(*S3ReportExporter)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3ReportExporterOption {
	return func(e *S3ReportExporter) {
		e.logger = logger
	}
}

// WithPrefix overrides the key prefix
func WithPrefix(prefix string) S3ReportExporterOption {
	return func(e *S3ReportExporter) {
		e.prefix = strings.Trim(prefix, "/")
	}
}

// NewS3ReportExporter creates an exporter from configuration. Without static
// keys the default AWS credential chain is used.
func NewS3ReportExporter(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...S3ReportExporterOption) (*S3ReportExporter, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return nil, errors.New("storage access key id and secret access key must be set together")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3ReportExporter(client, cfg.Bucket, opts...), nil
}

func newS3ReportExporter(client s3API, bucket string, opts ...S3ReportExporterOption) *S3ReportExporter {
	e := &S3ReportExporter{
		client: client,
		bucket: bucket,
		prefix: defaultReportPrefix,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnsureBucket creates the bucket if it doesn't exist
func (e *S3ReportExporter) EnsureBucket(ctx context.Context) error {
	_, err := e.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(e.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	e.logger.Info("Creating report bucket", zap.String("bucket", e.bucket))
	_, err = e.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(e.bucket)})
	var alreadyOwned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &alreadyOwned) {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// ReportKey returns the object key of a job's report
func (e *S3ReportExporter) ReportKey(job integration.SyncJob) string {
	return path.Join(e.prefix, job.OrganizationID.String(), job.ID.String()+".json")
}

// Export uploads the job snapshot and returns its s3:// location
func (e *S3ReportExporter) Export(ctx context.Context, job integration.SyncJob) (string, error) {
	body, err := json.MarshalIndent(appintegration.ToSyncJobResponse(job), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode sync report: %w", err)
	}

	key := e.ReportKey(job)
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"organization-id": job.OrganizationID.String(),
			"sync-type":       string(job.SyncType),
			"status":          string(job.Status),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload sync report: %w", err)
	}

	location := "s3://" + e.bucket + "/" + key
	e.logger.Debug("Sync report exported", zap.String("location", location))
	return location, nil
}
