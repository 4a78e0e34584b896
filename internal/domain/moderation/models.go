package moderation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"cuenca-ubate/internal/domain/gallery"
)

// ToastKind is the severity of an on-screen notice
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastWarning ToastKind = "warning"
	ToastInfo    ToastKind = "info"
)

// ToastDuration is how long a toast stays on screen
const ToastDuration = 5 * time.Second

// Toast is a transient notice shown after an operation
type Toast struct {
	Kind    ToastKind `json:"kind"`
	Message string    `json:"message"`
}

// IsZero reports whether there is nothing to show
func (t Toast) IsZero() bool {
	return t.Message == ""
}

// DismissAfterMillis is exposed to the page script that hides the toast
func (t Toast) DismissAfterMillis() int64 {
	return ToastDuration.Milliseconds()
}

func Success(msg string) Toast { return Toast{Kind: ToastSuccess, Message: msg} }
func Failure(msg string) Toast { return Toast{Kind: ToastError, Message: msg} }
func Warning(msg string) Toast { return Toast{Kind: ToastWarning, Message: msg} }
func Info(msg string) Toast    { return Toast{Kind: ToastInfo, Message: msg} }

// Domain errors
var (
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrTitleRequired        = errors.New("title is required")
	ErrInvalidLatitude      = errors.New("latitude must be a number")
	ErrInvalidLongitude     = errors.New("longitude must be a number")
	ErrInvalidStatus        = gallery.ErrInvalidStatus

	errNotFinite = errors.New("coordinate is not finite")
)

// Message returns the Spanish text shown for a validation error
func Message(err error) string {
	switch {
	case errors.Is(err, ErrTitleRequired):
		return "El título es requerido"
	case errors.Is(err, ErrInvalidLatitude):
		return "La latitud debe ser un número válido"
	case errors.Is(err, ErrInvalidLongitude):
		return "La longitud debe ser un número válido"
	case errors.Is(err, ErrInvalidStatus):
		return "Estado no válido"
	case errors.Is(err, gallery.ErrInvalidPublicationType):
		return "Tipo de publicación no válido"
	case err == nil:
		return ""
	default:
		return err.Error()
	}
}

// EditForm holds the raw edit fields submitted from the admin panel
type EditForm struct {
	Nombre          string
	Descripcion     string
	TipoPublicacion string
	Lat             string
	Lng             string
}

// Validate checks the form and converts it into a backend edit
func (f EditForm) Validate() (gallery.Edit, error) {
	nombre := strings.TrimSpace(f.Nombre)
	if nombre == "" {
		return gallery.Edit{}, ErrTitleRequired
	}

	tipo, err := gallery.ParsePublicationType(f.TipoPublicacion)
	if err != nil {
		return gallery.Edit{}, err
	}

	lat, err := parseCoordinate(f.Lat)
	if err != nil {
		return gallery.Edit{}, fmt.Errorf("%w: %q", ErrInvalidLatitude, f.Lat)
	}
	lng, err := parseCoordinate(f.Lng)
	if err != nil {
		return gallery.Edit{}, fmt.Errorf("%w: %q", ErrInvalidLongitude, f.Lng)
	}

	return gallery.Edit{
		Nombre:          nombre,
		Descripcion:     strings.TrimSpace(f.Descripcion),
		TipoPublicacion: tipo,
		Lat:             lat,
		Lng:             lng,
	}, nil
}

// parseCoordinate returns nil for a blank value; NaN and infinities are rejected
func parseCoordinate(value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errNotFinite
	}
	return &f, nil
}

// Outcome is the result of a moderation operation
type Outcome struct {
	Toast Toast
	// Records is the refetched list; nil when the refetch failed
	Records []gallery.ImageRecord
	// OfferBroadcast is set when a record was just published
	OfferBroadcast bool
}

var statusLabels = map[gallery.Status]string{
	gallery.StatusPublished: "Publicada",
	gallery.StatusPending:   "Pendiente",
	gallery.StatusRejected:  "Rechazada",
	gallery.StatusActive:    "Activo",
}

// StatusLabel returns the display label of a status
func StatusLabel(s gallery.Status) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// PublicationLabel returns the display label of a publication type
func PublicationLabel(p gallery.PublicationType) string {
	if p == gallery.PublicationNews {
		return "📰 Noticias"
	}
	return "📷 Galería"
}
