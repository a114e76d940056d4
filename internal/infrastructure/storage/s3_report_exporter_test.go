package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	appintegration "github.com/catalogmirror/backend/internal/application/integration"
	"github.com/catalogmirror/backend/internal/domain/integration"
	"github.com/catalogmirror/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeS3 struct {
	puts       []*s3.PutObjectInput
	bodies     [][]byte
	putErr     error
	headErr    error
	createErr  error
	createdFor []string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.createdFor = append(f.createdFor, aws.ToString(in.Bucket))
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &s3.CreateBucketOutput{}, nil
}

func finishedJob(t *testing.T) integration.SyncJob {
	t.Helper()
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	job, err := integration.NewSyncJob(uuid.New(), integration.SyncTypeFull)
	require.NoError(t, err)
	require.NoError(t, job.Start(started))
	job.Report = &integration.SyncReport{ProductsUpserted: 3, Reconciled: 1}
	require.NoError(t, job.Complete(true, "", started.Add(time.Minute)))
	return *job
}

func TestNewS3ReportExporter_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewS3ReportExporter(ctx, nil)
	assert.ErrorContains(t, err, "configuration is required")

	_, err = NewS3ReportExporter(ctx, &config.StorageConfig{Region: "us-east-1"})
	assert.ErrorContains(t, err, "bucket is required")

	_, err = NewS3ReportExporter(ctx, &config.StorageConfig{Bucket: "reports", Region: "us-east-1", AccessKeyID: "key"})
	assert.ErrorContains(t, err, "must be set together")

	exporter, err := NewS3ReportExporter(ctx, &config.StorageConfig{
		Bucket:          "reports",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		UsePathStyle:    true,
	}, WithPrefix("/exports/"))
	require.NoError(t, err)
	assert.Equal(t, "exports", exporter.prefix)
}

func TestS3ReportExporter_Export(t *testing.T) {
	fake := &fakeS3{}
	exporter := newS3ReportExporter(fake, "reports", WithLogger(zaptest.NewLogger(t)))
	job := finishedJob(t)

	location, err := exporter.Export(context.Background(), job)
	require.NoError(t, err)

	key := "sync-reports/" + job.OrganizationID.String() + "/" + job.ID.String() + ".json"
	assert.Equal(t, "s3://reports/"+key, location)
	require.Len(t, fake.puts, 1)
	assert.Equal(t, key, aws.ToString(fake.puts[0].Key))
	assert.Equal(t, "application/json", aws.ToString(fake.puts[0].ContentType))
	assert.Equal(t, "full", fake.puts[0].Metadata["sync-type"])

	var got appintegration.SyncJobResponse
	require.NoError(t, json.Unmarshal(fake.bodies[0], &got))
	assert.Equal(t, job.ID, got.JobID)
	assert.Equal(t, integration.SyncStatusSuccess, got.Status)
	require.NotNil(t, got.Report)
	assert.Equal(t, 3, got.Report.ProductsUpserted)
}

func TestS3ReportExporter_ExportFailure(t *testing.T) {
	fake := &fakeS3{putErr: errors.New("access denied")}
	exporter := newS3ReportExporter(fake, "reports")

	_, err := exporter.Export(context.Background(), finishedJob(t))
	assert.ErrorContains(t, err, "access denied")
}

func TestS3ReportExporter_EnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("existing bucket", func(t *testing.T) {
		fake := &fakeS3{}
		require.NoError(t, newS3ReportExporter(fake, "reports").EnsureBucket(ctx))
		assert.Empty(t, fake.createdFor)
	})

	t.Run("missing bucket is created", func(t *testing.T) {
		fake := &fakeS3{headErr: &types.NotFound{}}
		require.NoError(t, newS3ReportExporter(fake, "reports").EnsureBucket(ctx))
		assert.Equal(t, []string{"reports"}, fake.createdFor)
	})

	t.Run("concurrent creation is tolerated", func(t *testing.T) {
		fake := &fakeS3{headErr: &types.NoSuchBucket{}, createErr: &types.BucketAlreadyOwnedByYou{}}
		assert.NoError(t, newS3ReportExporter(fake, "reports").EnsureBucket(ctx))
	})

	t.Run("other head errors are returned", func(t *testing.T) {
		fake := &fakeS3{headErr: errors.New("forbidden")}
		assert.ErrorContains(t, newS3ReportExporter(fake, "reports").EnsureBucket(ctx), "forbidden")
	})
}
