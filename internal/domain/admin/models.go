package admin

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// MinPasswordLength is the shortest accepted admin password
const MinPasswordLength = 6

// Domain errors
var (
	ErrFieldsRequired     = errors.New("all fields are required")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("admin user not found")
	ErrUserExists         = errors.New("admin user already exists")
)

// Message returns the Spanish text shown for an admin error
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFieldsRequired):
		return "Todos los campos son obligatorios"
	case errors.Is(err, ErrPasswordMismatch):
		return "Las contraseñas no coinciden"
	case errors.Is(err, ErrPasswordTooShort):
		return "La contraseña debe tener al menos 6 caracteres"
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUserNotFound):
		return "Usuario o contraseña incorrectos"
	default:
		return "Error del servidor: " + err.Error()
	}
}

// Credentials is the login form
type Credentials struct {
	Username string
	Password string
}

// Validate requires both fields
func (c Credentials) Validate() (Credentials, error) {
	c.Username = strings.TrimSpace(c.Username)
	if c.Username == "" || c.Password == "" {
		return c, ErrFieldsRequired
	}
	return c, nil
}

// PasswordChange is the change-password form
type PasswordChange struct {
	Username        string
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
	// RemoteAddr is reported in the notice email
	RemoteAddr string
}

// Validate applies the form rules in order: required, matching, length
func (p PasswordChange) Validate() (PasswordChange, error) {
	p.Username = strings.TrimSpace(p.Username)
	if p.Username == "" || p.CurrentPassword == "" || p.NewPassword == "" || p.ConfirmPassword == "" {
		return p, ErrFieldsRequired
	}
	if p.NewPassword != p.ConfirmPassword {
		return p, ErrPasswordMismatch
	}
	if utf8.RuneCountInString(p.NewPassword) < MinPasswordLength {
		return p, ErrPasswordTooShort
	}
	return p, nil
}

// ChangeResult is the outcome of a password change
type ChangeResult struct {
	Success bool
	Message string
	// NoticeSent reports whether the administrator was emailed
	NoticeSent  bool
	NoticeError string
}

// User is a locally stored administrator
type User struct {
	ID           int
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session identifies the logged-in administrator
type Session struct {
	Username string
	LoggedAt time.Time
}
