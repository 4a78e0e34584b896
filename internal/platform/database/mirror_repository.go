package database

import (
	"context"
	"database/sql"
	"fmt"

	"cuenca-ubate/internal/domain/subscriber"
)

// MirrorRepository implements subscriber.Mirror on Postgres
type MirrorRepository struct {
	db *sql.DB
}

// NewMirrorRepository creates a mirror repository
func NewMirrorRepository(db *sql.DB) *MirrorRepository {
	return &MirrorRepository{db: db}
}

const mirrorColumns = `id, nombre, email, fecha, activo, pendiente_sincronizacion`

// Save inserts the entry unless the normalized email already exists
func (r *MirrorRepository) Save(ctx context.Context, entry subscriber.MirrorEntry) (bool, error) {
	query := `
		INSERT INTO subscriber_mirror (
			id, nombre, email, email_normalized, fecha, activo, pendiente_sincronizacion
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email_normalized) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Nombre,
		entry.Email,
		subscriber.NormalizeEmail(entry.Email),
		entry.Fecha,
		entry.Activo,
		entry.PendienteSincronizacion,
	)
	if err != nil {
		return false, fmt.Errorf("failed to save mirror entry: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// List returns every entry, newest first
func (r *MirrorRepository) List(ctx context.Context) ([]subscriber.MirrorEntry, error) {
	return r.query(ctx, `SELECT `+mirrorColumns+` FROM subscriber_mirror ORDER BY fecha DESC`)
}

// ListPending returns the entries the backend has not confirmed yet, oldest first
func (r *MirrorRepository) ListPending(ctx context.Context) ([]subscriber.MirrorEntry, error) {
	return r.query(ctx, `SELECT `+mirrorColumns+` FROM subscriber_mirror
		WHERE pendiente_sincronizacion ORDER BY fecha ASC`)
}

// MarkSynced clears the pending flag of an email
func (r *MirrorRepository) MarkSynced(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE subscriber_mirror SET pendiente_sincronizacion = false WHERE email_normalized = $1`,
		subscriber.NormalizeEmail(email),
	)
	if err != nil {
		return fmt.Errorf("failed to mark mirror entry synced: %w", err)
	}
	return nil
}

// DeleteByEmail removes an entry; deleting a missing email is not an error
func (r *MirrorRepository) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM subscriber_mirror WHERE email_normalized = $1`,
		subscriber.NormalizeEmail(email),
	)
	if err != nil {
		return fmt.Errorf("failed to delete mirror entry: %w", err)
	}
	return nil
}

func (r *MirrorRepository) query(ctx context.Context, query string, args ...interface{}) ([]subscriber.MirrorEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query mirror: %w", err)
	}
	defer rows.Close()

	entries := []subscriber.MirrorEntry{}
	for rows.Next() {
		var e subscriber.MirrorEntry
		if err := rows.Scan(&e.ID, &e.Nombre, &e.Email, &e.Fecha, &e.Activo, &e.PendienteSincronizacion); err != nil {
			return nil, fmt.Errorf("failed to scan mirror entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
