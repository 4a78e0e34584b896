package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cuenca-ubate/internal/domain/admin"
)

// AdminUserRepository implements admin.Repository on Postgres
type AdminUserRepository struct {
	db *sql.DB
}

// NewAdminUserRepository creates an admin user repository
func NewAdminUserRepository(db *sql.DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

// GetByUsername loads one administrator
func (r *AdminUserRepository) GetByUsername(ctx context.Context, username string) (admin.User, error) {
	var u admin.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at, updated_at
		FROM admin_users WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return admin.User{}, fmt.Errorf("%w: %s", admin.ErrUserNotFound, username)
	}
	if err != nil {
		return admin.User{}, fmt.Errorf("failed to get admin user: %w", err)
	}
	return u, nil
}

// Create inserts an administrator
func (r *AdminUserRepository) Create(ctx context.Context, user admin.User) (admin.User, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO admin_users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, user.Username, user.PasswordHash).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return admin.User{}, fmt.Errorf("%w: %s", admin.ErrUserExists, user.Username)
	}
	if err != nil {
		return admin.User{}, fmt.Errorf("failed to create admin user: %w", err)
	}
	return user, nil
}

// UpdatePasswordHash replaces the stored hash
func (r *AdminUserRepository) UpdatePasswordHash(ctx context.Context, username, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE admin_users SET password_hash = $2 WHERE username = $1`, username, hash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", admin.ErrUserNotFound, username)
	}
	return nil
}

// Count returns how many administrators exist
func (r *AdminUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count admin users: %w", err)
	}
	return n, nil
}
