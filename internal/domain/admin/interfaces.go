package admin

import "context"

// Authenticator checks and changes admin passwords
type Authenticator interface {
	Verify(ctx context.Context, username, password string) (bool, error)
	// ChangePassword returns the provider's message on both outcomes
	ChangePassword(ctx context.Context, username, current, next string) (ChangeResult, error)
}

// Repository stores administrators for the local authenticator
type Repository interface {
	GetByUsername(ctx context.Context, username string) (User, error)
	Create(ctx context.Context, user User) (User, error)
	UpdatePasswordHash(ctx context.Context, username, hash string) error
	Count(ctx context.Context) (int, error)
}

// Service runs login and password changes
type Service interface {
	Login(ctx context.Context, creds Credentials) (Session, error)
	ChangePassword(ctx context.Context, change PasswordChange) (ChangeResult, error)
}
