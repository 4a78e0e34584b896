package implementations

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"cuenca-ubate/internal/domain/admin"
)

// LocalAuthenticator checks admin passwords against bcrypt hashes in the database
type LocalAuthenticator struct {
	users admin.Repository
	cost  int
}

// NewLocalAuthenticator creates a local authenticator
func NewLocalAuthenticator(users admin.Repository) *LocalAuthenticator {
	return &LocalAuthenticator{users: users, cost: bcrypt.DefaultCost}
}

var _ admin.Authenticator = (*LocalAuthenticator)(nil)

// Verify reports whether the password matches; an unknown user is simply false
func (a *LocalAuthenticator) Verify(ctx context.Context, username, password string) (bool, error) {
	user, err := a.users.GetByUsername(ctx, username)
	if errors.Is(err, admin.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to compare password: %w", err)
	}
	return true, nil
}

// ChangePassword replaces the hash after checking the current password
func (a *LocalAuthenticator) ChangePassword(ctx context.Context, username, current, next string) (admin.ChangeResult, error) {
	ok, err := a.Verify(ctx, username, current)
	if err != nil {
		return admin.ChangeResult{}, err
	}
	if !ok {
		return admin.ChangeResult{Message: "Usuario o contraseña actual incorrectos"}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), a.cost)
	if err != nil {
		return admin.ChangeResult{}, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := a.users.UpdatePasswordHash(ctx, username, string(hash)); err != nil {
		return admin.ChangeResult{}, err
	}
	return admin.ChangeResult{Success: true, Message: "Contraseña actualizada correctamente"}, nil
}

// Bootstrap creates the first administrator when none exists yet. It reports whether a user was created.
func (a *LocalAuthenticator) Bootstrap(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	n, err := a.users.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}
	if _, err := a.users.Create(ctx, admin.User{Username: username, PasswordHash: string(hash)}); err != nil {
		if errors.Is(err, admin.ErrUserExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
