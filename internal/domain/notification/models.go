package notification

import (
	"errors"
	"fmt"
	"time"

	"cuenca-ubate/internal/locale"
)

const (
	FromName    = "Cuenca Ubaté"
	FromAddress = "cuencaubate@gmail.com"
	AppName     = "Cuenca Ubaté - Sistema Administrativo"

	BroadcastText = "🌿 ¡Nueva publicación! Se ha agregado nuevo contenido a la App Web de la Cuenca Alta del Río Ubaté. " +
		"Visita nuestra galería para descubrir las últimas plantas identificadas y actualizaciones sobre nuestra biodiversidad."
	WelcomeText = "🌿 ¡Bienvenido/a a nuestra comunidad! Te has suscrito exitosamente para recibir notificaciones sobre " +
		"nuevas publicaciones, descubrimientos de plantas y eventos en la Cuenca Alta del Río Ubaté. " +
		"Estarás al tanto de todas nuestras actualizaciones y novedades."
)

// Template selects which email template a message is rendered with
type Template string

const (
	TemplateNewsletter Template = "newsletter"
	TemplateAdmin      Template = "admin"
)

// Recipient is one addressee of a message
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Message is a template plus its parameters. Senders add the recipient fields.
type Message struct {
	Template Template
	Title    string
	Body     string
	Params   map[string]string
}

// Domain errors
var (
	ErrNoRecipients = errors.New("no active subscribers to notify")
	ErrJobNotFound  = errors.New("notification job not found")
)

// BroadcastMessage announces new published content
func BroadcastMessage(now time.Time) Message {
	return Message{
		Template: TemplateNewsletter,
		Title:    "Nueva publicación en la Cuenca Alta del Río Ubaté",
		Body:     BroadcastText,
		Params: map[string]string{
			"from_name": FromName,
			"email":     FromAddress,
			"message":   BroadcastText,
			"date":      locale.ShortDate(now),
		},
	}
}

// WelcomeMessage greets a new subscriber
func WelcomeMessage(now time.Time) Message {
	return Message{
		Template: TemplateNewsletter,
		Title:    "Bienvenido/a a la Cuenca Alta del Río Ubaté",
		Body:     WelcomeText,
		Params: map[string]string{
			"from_name": FromName,
			"email":     FromAddress,
			"message":   WelcomeText,
			"date":      locale.WeekdayDate(now),
		},
	}
}

// PasswordChangeNotice tells the administrator their password changed.
// The new password is never part of the message.
func PasswordChangeNotice(username, supportContact, ipAddress string, now time.Time) Message {
	if ipAddress == "" {
		ipAddress = "Desconocida"
	}
	changed := locale.DateTimeBogota(now)
	return Message{
		Template: TemplateAdmin,
		Title:    "Cambio de contraseña - " + AppName,
		Body: fmt.Sprintf("La contraseña del usuario %s fue cambiada el %s desde la IP %s. "+
			"Si no reconoces este cambio contacta a %s.", username, changed, ipAddress, supportContact),
		Params: map[string]string{
			"username":        username,
			"change_date":     changed,
			"app_name":        AppName,
			"support_contact": supportContact,
			"ip_address":      ipAddress,
		},
	}
}

// Progress is reported after every attempted send
type Progress struct {
	Total     int `json:"total"`
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Done reports whether every recipient was accounted for
func (p Progress) Done() bool {
	return p.Succeeded+p.Failed >= p.Total
}

// Percent is the share of attempted sends, 0..100
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 100
	}
	return p.Attempted * 100 / p.Total
}

// Summary is the final tally of a batch; Succeeded+Failed always equals Total
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Message is the summary toast text
func (s Summary) Message() string {
	return fmt.Sprintf("Notificaciones enviadas: %d exitosas, %d fallidas", s.Succeeded, s.Failed)
}

// OK reports whether at least one send went through
func (s Summary) OK() bool {
	return s.Succeeded > 0
}

// JobStatus is the lifecycle of a background broadcast
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobCancelled JobStatus = "cancelled"
)

// Job is a broadcast running in the background
type Job struct {
	ID         string     `json:"id"`
	Status     JobStatus  `json:"status"`
	Progress   Progress   `json:"progress"`
	Summary    *Summary   `json:"summary,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Finished reports whether the job stopped running
func (j Job) Finished() bool {
	return j.Status != JobRunning
}
