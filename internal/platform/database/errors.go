package database

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrMissingDatabaseURL = errors.New("database URL is required")
	ErrMigrationFailed    = errors.New("migration failed")
)

// uniqueViolation is the Postgres SQLSTATE for duplicate keys
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
