package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// The site writes rarely: subscriber mirror rows, saved plants and admin logins
const (
	maxOpenConns    = 5
	maxIdleConns    = 2
	connMaxLifetime = 5 * time.Minute
	connMaxIdleTime = 2 * time.Minute
	pingTimeout     = 5 * time.Second
)

// NewConnection opens an instrumented Postgres pool and pings it
func NewConnection(ctx context.Context, dbURL string) (*sql.DB, error) {
	if dbURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	attrs := otelsql.WithAttributes(semconv.DBSystemPostgreSQL)
	db, err := otelsql.Open("postgres", dbURL, attrs,
		otelsql.WithSpanOptions(otelsql.SpanOptions{
			OmitConnResetSession: true,
			OmitConnPrepare:      true,
			OmitRows:             true,
			OmitConnectorConnect: true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := otelsql.RegisterDBStatsMetrics(db, attrs); err != nil {
		_ = db.Close() //nolint:errcheck // Connection cleanup in error path
		return nil, fmt.Errorf("failed to register pool metrics: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close() //nolint:errcheck // Connection cleanup in error path
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return db, nil
}
