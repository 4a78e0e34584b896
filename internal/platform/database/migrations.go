package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration represents a database migration
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// MigrationManager handles database migrations
type MigrationManager struct {
	db *sql.DB
}

// NewMigrationManager creates a new migration manager
func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db}
}

// EnsureMigrationsTable creates the migrations tracking table if it doesn't exist
func (m *MigrationManager) EnsureMigrationsTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		description VARCHAR(255),
		applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);`

	_, err := m.db.ExecContext(ctx, query)
	return err
}

// GetAppliedMigrations returns the versions already applied
func (m *MigrationManager) GetAppliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// ApplyMigration applies a single migration and records it in one transaction
func (m *MigrationManager) ApplyMigration(ctx context.Context, migration Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMigrationFailed, migration.Version, err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
		migration.Version,
		migration.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
	}

	return tx.Commit()
}

// LoadMigrationsFromFS loads NNN_description.sql files from dir, sorted by version
func LoadMigrationsFromFS(fsys fs.FS, dir string) ([]Migration, error) {
	var migrations []Migration

	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".sql") {
			return nil
		}

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", p, err)
		}

		version, description, err := parseMigrationName(path.Base(p))
		if err != nil {
			return err
		}

		migrations = append(migrations, Migration{
			Version:     version,
			Description: description,
			SQL:         string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

func parseMigrationName(filename string) (string, string, error) {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) < 2 || parts[0] == "" {
		return "", "", fmt.Errorf("invalid migration filename format: %s", filename)
	}
	description := strings.ReplaceAll(strings.TrimSuffix(parts[1], ".sql"), "_", " ")
	return parts[0], description, nil
}

// EmbeddedMigrations returns the migrations shipped with the binary
func EmbeddedMigrations() ([]Migration, error) {
	return LoadMigrationsFromFS(migrationFiles, "migrations")
}

// RunMigrations applies all pending embedded migrations and returns the applied versions
func RunMigrations(ctx context.Context, db *sql.DB) ([]string, error) {
	migrations, err := EmbeddedMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	return NewMigrationManager(db).Apply(ctx, migrations)
}

// Apply runs the given migrations that are not yet recorded
func (m *MigrationManager) Apply(ctx context.Context, migrations []Migration) ([]string, error) {
	if err := m.EnsureMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	var done []string
	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}
		if err := m.ApplyMigration(ctx, migration); err != nil {
			return done, err
		}
		done = append(done, migration.Version)
	}

	return done, nil
}
