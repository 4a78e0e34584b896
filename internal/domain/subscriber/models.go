package subscriber

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Subscriber is a newsletter recipient as stored by the remote backend
type Subscriber struct {
	ID            int    `json:"id"`
	Nombre        string `json:"nombre"`
	Email         string `json:"email"`
	FechaRegistro string `json:"fecha_registro,omitempty"`
	// Activo is optional on the wire; a missing value counts as active
	Activo *bool `json:"activo,omitempty"`
}

// IsActive reports whether the subscriber should receive notifications
func (s Subscriber) IsActive() bool {
	return s.Activo == nil || *s.Activo
}

// MirrorEntry is the local best-effort copy of a subscription
type MirrorEntry struct {
	ID                      string    `json:"id"`
	Nombre                  string    `json:"nombre"`
	Email                   string    `json:"email"`
	Fecha                   time.Time `json:"fecha"`
	Activo                  bool      `json:"activo"`
	PendienteSincronizacion bool      `json:"pendienteSincronizacion"`
}

// Domain errors
var (
	ErrFieldsRequired       = errors.New("name and email are required")
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrNotSaved             = errors.New("subscription could not be saved")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrSubscriberNotFound   = errors.New("subscriber not found")
)

// Message returns the Spanish text shown for a subscription error
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFieldsRequired):
		return "Por favor completa todos los campos"
	case errors.Is(err, ErrInvalidEmail):
		return "Por favor ingresa un correo electrónico válido"
	default:
		return "❌ Error al procesar tu suscripción. Por favor intenta nuevamente."
	}
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail is the key used for case-insensitive email comparison
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SubscribeRequest is the public subscription form
type SubscribeRequest struct {
	Nombre string
	Email  string
}

// Validate trims the fields and checks them
func (r SubscribeRequest) Validate() (SubscribeRequest, error) {
	out := SubscribeRequest{
		Nombre: strings.TrimSpace(r.Nombre),
		Email:  strings.TrimSpace(r.Email),
	}
	if out.Nombre == "" || out.Email == "" {
		return out, ErrFieldsRequired
	}
	if !emailPattern.MatchString(out.Email) {
		return out, fmt.Errorf("%w: %q", ErrInvalidEmail, out.Email)
	}
	return out, nil
}

// RemoteResult is the backend's answer to a subscribe call
type RemoteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// IsDuplicate reports whether the backend refused the email as already subscribed
func (r RemoteResult) IsDuplicate() bool {
	return !r.Success && IsDuplicateMessage(r.Message)
}

// IsDuplicateMessage matches the backend's "already subscribed" wording
func IsDuplicateMessage(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "ya está suscrito")
}

const (
	MessageSubscribed = "🌱 ¡Suscripción exitosa! Te has registrado en nuestra base de datos."
	MessageDuplicate  = "📧 Ya estabas suscrito. ¡Gracias por tu interés!"
)

// SubscribeResult describes what happened to a subscription
type SubscribeResult struct {
	// Confirmed is set when the backend stored or already had the email
	Confirmed bool
	Duplicate bool
	// Mirrored is set when the local mirror holds the entry
	Mirrored    bool
	WelcomeSent bool
}

// Message is the toast text for the visitor
func (r SubscribeResult) Message() string {
	if r.Duplicate {
		return MessageDuplicate
	}
	return MessageSubscribed
}

// ListResult is the admin subscriber list and where it came from
type ListResult struct {
	Subscribers []Subscriber
	// FromMirror is set when the backend was unreachable
	FromMirror bool
}

// Active keeps the subscribers that receive notifications
func Active(subs []Subscriber) []Subscriber {
	out := make([]Subscriber, 0, len(subs))
	for _, s := range subs {
		if s.IsActive() {
			out = append(out, s)
		}
	}
	return out
}

// FromMirror converts mirror entries for display when the backend is down
func FromMirror(entries []MirrorEntry) []Subscriber {
	out := make([]Subscriber, 0, len(entries))
	for _, e := range entries {
		activo := e.Activo
		out = append(out, Subscriber{
			Nombre:        e.Nombre,
			Email:         e.Email,
			FechaRegistro: e.Fecha.Format(time.RFC3339),
			Activo:        &activo,
		})
	}
	return out
}

// BatchReport aggregates a bulk delete
type BatchReport struct {
	Total   int
	Deleted int
	Failed  int
}

// Message is the summary toast of a bulk delete
func (r BatchReport) Message() string {
	if r.Failed == 0 {
		return fmt.Sprintf("Todos los suscriptores (%d) han sido eliminados", r.Deleted)
	}
	return fmt.Sprintf("Eliminados: %d, Errores: %d", r.Deleted, r.Failed)
}

// SyncReport aggregates a sync of pending mirror entries
type SyncReport struct {
	Synced int
	Failed int
}

// Message is the summary toast of a sync
func (r SyncReport) Message() string {
	if r.Synced == 0 && r.Failed == 0 {
		return "No hay suscriptores pendientes de sincronizar"
	}
	return fmt.Sprintf("Sincronizados: %d, Errores: %d", r.Synced, r.Failed)
}
