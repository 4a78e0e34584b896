package gallery

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Status is the moderation state of an image record
type Status string

const (
	StatusPending   Status = "pendiente"
	StatusPublished Status = "publicada"
	StatusRejected  Status = "rechazada"
	StatusActive    Status = "activo"
)

// StatusAll is the filter value that bypasses status matching
const StatusAll = "todas"

// PublicationType tells where a published record is shown
type PublicationType string

const (
	PublicationGallery PublicationType = "galeria"
	PublicationNews    PublicationType = "noticias"
)

// SortKey orders records by upload timestamp
type SortKey string

const (
	SortNewest SortKey = "nuevas"
	SortOldest SortKey = "antiguas"
)

const placeholderBaseURL = "https://via.placeholder.com/400x200/4a7c59/ffffff"

// ImageRecord is an image as served by the backend's /list-images endpoint.
// The backend owns it; this side only keeps a replaceable snapshot.
type ImageRecord struct {
	ID              int             `json:"id"`
	PlantaID        string          `json:"planta_id,omitempty"`
	Description     string          `json:"description,omitempty"`
	URLImagen       string          `json:"url_imagen"`
	Estado          Status          `json:"estado"`
	TipoPublicacion PublicationType `json:"tipo_publicacion,omitempty"`
	FechaSubida     string          `json:"fecha_subida,omitempty"`
	FechaCreacion   string          `json:"fecha_creacion,omitempty"`
	CreatedAt       string          `json:"created_at,omitempty"`
	NombreUsuario   string          `json:"nombre_usuario,omitempty"`
	Filename        string          `json:"filename,omitempty"`
	Lat             *float64        `json:"lat,omitempty"`
	Lng             *float64        `json:"lng,omitempty"`
}

// UnmarshalJSON accepts both lat/lng and latitud/longitud coordinate keys
// and tolerates null strings from the backend.
func (r *ImageRecord) UnmarshalJSON(data []byte) error {
	type plain ImageRecord
	var aux struct {
		plain
		PlantaID      *string  `json:"planta_id"`
		Description   *string  `json:"description"`
		URLImagen     *string  `json:"url_imagen"`
		NombreUsuario *string  `json:"nombre_usuario"`
		Latitud       *float64 `json:"latitud"`
		Longitud      *float64 `json:"longitud"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*r = ImageRecord(aux.plain)
	r.PlantaID = deref(aux.PlantaID)
	r.Description = deref(aux.Description)
	r.URLImagen = deref(aux.URLImagen)
	r.NombreUsuario = deref(aux.NombreUsuario)
	if r.Lat == nil {
		r.Lat = aux.Latitud
	}
	if r.Lng == nil {
		r.Lng = aux.Longitud
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// UploadedAt returns the parsed upload timestamp; zero when absent or unparseable
func (r ImageRecord) UploadedAt() time.Time {
	return ParseTimestamp(r.FechaSubida)
}

// CreatedTime returns the creation timestamp used by the home page ordering,
// falling back to the upload timestamp.
func (r ImageRecord) CreatedTime() time.Time {
	for _, candidate := range []string{r.FechaCreacion, r.CreatedAt, r.FechaSubida} {
		if t := ParseTimestamp(candidate); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

// HasCoordinates reports whether both coordinates are present
func (r ImageRecord) HasCoordinates() bool {
	return r.Lat != nil && r.Lng != nil
}

// PlaceholderURL builds the stand-in picture URL labelled with the plant name
func PlaceholderURL(name string) string {
	if strings.TrimSpace(name) == "" {
		name = "Planta"
	}
	return placeholderBaseURL + "?text=" + url.QueryEscape(name)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats the backend emits
func ParseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Edit carries validated changes for the backend's edit endpoint
type Edit struct {
	Nombre          string
	Descripcion     string
	TipoPublicacion PublicationType
	Lat             *float64
	Lng             *float64
}

// Stats summarises a snapshot for the admin dashboard
type Stats struct {
	Total      int `json:"total"`
	Publicadas int `json:"publicadas"`
	Pendientes int `json:"pendientes"`
	Rechazadas int `json:"rechazadas"`
}

// Marker is the map location selected from the admin panel
type Marker struct {
	Lat    float64   `json:"lat"`
	Lng    float64   `json:"lng"`
	Titulo string    `json:"titulo"`
	Fecha  time.Time `json:"fecha"`
}

// Domain errors
var (
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidPublicationType = errors.New("invalid publication type")
)

// ParseStatus validates a status coming from a form or query string
func ParseStatus(value string) (Status, error) {
	switch s := Status(strings.TrimSpace(value)); s {
	case StatusPending, StatusPublished, StatusRejected, StatusActive:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, value)
	}
}

// ParsePublicationType validates a publication type; empty means galeria
func ParsePublicationType(value string) (PublicationType, error) {
	switch p := PublicationType(strings.TrimSpace(value)); p {
	case "":
		return PublicationGallery, nil
	case PublicationGallery, PublicationNews:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPublicationType, value)
	}
}

// ParseSortKey maps query input to a sort key; anything but nuevas sorts oldest first
func ParseSortKey(value string) SortKey {
	if SortKey(value) == SortNewest || value == "" {
		return SortNewest
	}
	return SortOldest
}
