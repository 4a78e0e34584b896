package testutils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	minioClient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	redisModule "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"cuenca-ubate/internal/config"
	"cuenca-ubate/internal/platform/cache"
	"cuenca-ubate/internal/platform/database"
	"cuenca-ubate/internal/platform/storage"
)

const testBucket = "test-plantas"

// TestContainers manages the Postgres, MinIO and Valkey containers of an integration run
type TestContainers struct {
	PostgresContainer testcontainers.Container
	MinioContainer    testcontainers.Container
	RedisContainer    testcontainers.Container
	DB                *sql.DB
	MinioClient       *storage.MinIOClient
	RedisClient       *cache.RedisClient
	DatabaseURL       string
	MinioEndpoint     string
	MinioUsername     string
	MinioPassword     string
	RedisAddress      string

	raw *minioClient.Client
}

// SetupTestContainers starts every container, connects to them and migrates the database
func SetupTestContainers(ctx context.Context) (*TestContainers, error) {
	containers := &TestContainers{
		MinioUsername: "testuser",
		MinioPassword: "testpass123",
	}

	if err := containers.setupPostgres(ctx); err != nil {
		return nil, fmt.Errorf("failed to setup postgres container: %w", err)
	}

	if err := containers.setupMinio(ctx); err != nil {
		_ = containers.Cleanup(ctx) //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("failed to setup minio container: %w", err)
	}

	if err := containers.setupRedis(ctx); err != nil {
		_ = containers.Cleanup(ctx) //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("failed to setup redis container: %w", err)
	}

	if _, err := database.RunMigrations(ctx, containers.DB); err != nil {
		_ = containers.Cleanup(ctx) //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return containers, nil
}

func (tc *TestContainers) setupPostgres(ctx context.Context) error {
	postgresContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("cuenca"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to start postgres container: %w", err)
	}
	tc.PostgresContainer = postgresContainer

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fmt.Errorf("failed to get postgres connection string: %w", err)
	}
	tc.DatabaseURL = connStr

	db, err := database.NewConnection(ctx, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	tc.DB = db
	return nil
}

func (tc *TestContainers) setupMinio(ctx context.Context) error {
	minioContainer, err := minio.Run(ctx,
		"minio/minio:latest",
		minio.WithUsername(tc.MinioUsername),
		minio.WithPassword(tc.MinioPassword),
	)
	if err != nil {
		return fmt.Errorf("failed to start minio container: %w", err)
	}
	tc.MinioContainer = minioContainer

	endpoint, err := minioContainer.ConnectionString(ctx)
	if err != nil {
		return fmt.Errorf("failed to get minio endpoint: %w", err)
	}
	tc.MinioEndpoint = endpoint

	// NewMinIOClient creates the bucket
	storageClient, err := storage.NewMinIOClient(ctx, tc.StorageConfig())
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}
	tc.MinioClient = storageClient

	raw, err := minioClient.New(endpoint, &minioClient.Options{
		Creds:  credentials.NewStaticV4(tc.MinioUsername, tc.MinioPassword, ""),
		Secure: false,
	})
	if err != nil {
		return fmt.Errorf("failed to create minio client: %w", err)
	}
	tc.raw = raw
	return nil
}

// setupRedis starts Valkey, which speaks the Redis protocol
func (tc *TestContainers) setupRedis(ctx context.Context) error {
	redisContainer, err := redisModule.Run(ctx,
		"valkey/valkey:7-alpine",
		redisModule.WithLogLevel(redisModule.LogLevelVerbose),
	)
	if err != nil {
		return fmt.Errorf("failed to start valkey container: %w", err)
	}
	tc.RedisContainer = redisContainer

	endpoint, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		return fmt.Errorf("failed to get valkey endpoint: %w", err)
	}
	opts, err := redis.ParseURL(endpoint)
	if err != nil {
		return fmt.Errorf("failed to parse valkey endpoint %q: %w", endpoint, err)
	}
	tc.RedisAddress = opts.Addr

	redisClient, err := cache.NewRedisClient(tc.CacheConfig())
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	tc.RedisClient = redisClient

	if err := tc.RedisClient.Health(ctx); err != nil {
		return fmt.Errorf("failed to connect to valkey: %w", err)
	}
	return nil
}

// StorageConfig points at the MinIO container
func (tc *TestContainers) StorageConfig() config.StorageConfig {
	return config.StorageConfig{
		Endpoint:        tc.MinioEndpoint,
		AccessKeyID:     tc.MinioUsername,
		SecretAccessKey: tc.MinioPassword,
		UseSSL:          false,
		BucketName:      testBucket,
		Region:          "us-east-1",
		MaxUploadSize:   10 << 20,
		AllowedTypes:    []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
	}
}

// CacheConfig points at the Valkey container
func (tc *TestContainers) CacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:     true,
		Address:     tc.RedisAddress,
		DefaultTTL:  time.Hour,
		FlowTTL:     30 * time.Minute,
		DialTimeout: 5 * time.Second,
	}
}

// Cleanup closes the connections and terminates every container
func (tc *TestContainers) Cleanup(ctx context.Context) error {
	var errs []error

	if tc.DB != nil {
		if err := tc.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if tc.PostgresContainer != nil {
		if err := tc.PostgresContainer.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate postgres container: %w", err))
		}
	}

	if tc.MinioContainer != nil {
		if err := tc.MinioContainer.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate minio container: %w", err))
		}
	}

	// the services container may have closed the client already
	if tc.RedisClient != nil {
		if err := tc.RedisClient.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, fmt.Errorf("failed to close valkey client: %w", err))
		}
	}

	if tc.RedisContainer != nil {
		if err := tc.RedisContainer.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate valkey container: %w", err))
		}
	}

	return errors.Join(errs...)
}

// ResetDatabase empties the subscriber mirror and the saved plants.
// Admin users are kept so the bootstrap account survives between tests.
func (tc *TestContainers) ResetDatabase(ctx context.Context) error {
	for _, table := range []string{"subscriber_mirror", "saved_plants"} {
		if _, err := tc.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" RESTART IDENTITY"); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	return nil
}

// CleanBucket removes every object from the test bucket
func (tc *TestContainers) CleanBucket(ctx context.Context) error {
	for obj := range tc.raw.ListObjects(ctx, testBucket, minioClient.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		if err := tc.raw.RemoveObject(ctx, testBucket, obj.Key, minioClient.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove %s: %w", obj.Key, err)
		}
	}
	return nil
}

// ObjectKeys lists the keys stored under prefix
func (tc *TestContainers) ObjectKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range tc.raw.ListObjects(ctx, testBucket, minioClient.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// FlushRedis clears the Valkey database
func (tc *TestContainers) FlushRedis(ctx context.Context) error {
	if tc.RedisClient == nil {
		return errors.New("valkey client not available")
	}
	return tc.RedisClient.FlushCache(ctx)
}
