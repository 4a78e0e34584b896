package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cuenca-ubate/internal/config"
	"cuenca-ubate/internal/domain/identification"
)

// ErrObjectNotFound is returned by Get when the key does not exist
var ErrObjectNotFound = errors.New("object not found")

const (
	stagedPrefix = "staged/"
	plantsPrefix = "plants/"
)

// StagedKey is where the picture of an identification flow waits
func StagedKey(flowID, filename string) string {
	return stagedPrefix + flowID + extension(filename)
}

// PlantKey is where a saved plant picture lives
func PlantKey(plantID, filename string) string {
	return plantsPrefix + plantID + extension(filename)
}

// ThumbnailKey is where a saved plant thumbnail lives
func ThumbnailKey(plantID string) string {
	return plantsPrefix + plantID + "_thumb.jpg"
}

func extension(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" || len(ext) > 5 {
		return ".jpg"
	}
	return ext
}

// MinIOClient implements identification.PhotoStore on an S3 compatible bucket
type MinIOClient struct {
	client     *minio.Client
	bucketName string
	tracer     trace.Tracer
}

var _ identification.PhotoStore = (*MinIOClient)(nil)

// NewMinIOClient connects to the bucket, creating it when missing
func NewMinIOClient(ctx context.Context, cfg config.StorageConfig) (*MinIOClient, error) {
	var creds *credentials.Credentials

	// Without static keys use the AWS chain (env, credentials file, IAM roles)
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{},
		})
	} else {
		creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	m := &MinIOClient{
		client:     client,
		bucketName: cfg.BucketName,
		tracer:     otel.Tracer("cuenca-ubate/storage"),
	}

	if err := m.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return m, nil
}

func (m *MinIOClient) ensureBucket(ctx context.Context, region string) error {
	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if region == "" {
		region = "us-east-1"
	}
	return m.client.MakeBucket(ctx, m.bucketName, minio.MakeBucketOptions{Region: region})
}

// Put stores data under key
func (m *MinIOClient) Put(ctx context.Context, key string, data []byte, contentType string) error {
	ctx, span := m.start(ctx, "storage.Put", key)
	defer span.End()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := m.client.PutObject(ctx, m.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return m.fail(span, fmt.Errorf("failed to put %s: %w", key, err))
	}
	span.SetAttributes(attribute.Int("storage.object.size", len(data)))
	return nil
}

// Get reads the whole object
func (m *MinIOClient) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := m.start(ctx, "storage.Get", key)
	defer span.End()

	obj, err := m.client.GetObject(ctx, m.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.fail(span, m.mapError(key, err))
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, m.fail(span, m.mapError(key, err))
	}
	return data, nil
}

// Delete removes the object; a missing key is not an error
func (m *MinIOClient) Delete(ctx context.Context, key string) error {
	ctx, span := m.start(ctx, "storage.Delete", key)
	defer span.End()

	err := m.client.RemoveObject(ctx, m.bucketName, key, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return m.fail(span, fmt.Errorf("failed to delete %s: %w", key, err))
	}
	return nil
}

// Health checks that the bucket is reachable
func (m *MinIOClient) Health(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("storage health check failed: bucket %s missing", m.bucketName)
	}
	return nil
}

func (m *MinIOClient) mapError(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return fmt.Errorf("failed to get %s: %w", key, err)
}

func (m *MinIOClient) start(ctx context.Context, name, key string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("storage.bucket", m.bucketName),
			attribute.String("storage.key", key),
		),
	)
}

func (m *MinIOClient) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
