package render

import (
	"html/template"
	"strconv"
	"strings"

	"cuenca-ubate/internal/domain/gallery"
	"cuenca-ubate/internal/domain/identification"
	"cuenca-ubate/internal/domain/moderation"
	"cuenca-ubate/internal/locale"
)

// Placeholders shown when a record lacks a field
const (
	UntitledAdmin       = "Sin título"
	NoDescriptionAdmin  = "Sin descripción"
	UntitledPublic      = "Planta sin nombre"
	NoDescriptionPublic = "Descripción no disponible."
	DefaultAltText      = "Imagen de planta"
)

// Funcs returns the helpers available to every template
func Funcs() template.FuncMap {
	return template.FuncMap{
		"adminTitle":        adminTitle,
		"adminDescription":  adminDescription,
		"publicTitle":       publicTitle,
		"publicDescription": publicDescription,
		"altText":           altText,
		"imageURL":          imageURL,
		"statusLabel":       moderation.StatusLabel,
		"publicationLabel":  moderation.PublicationLabel,
		"uploaded":          uploaded,
		"shortDate":         locale.ShortDate,
		"longDate":          locale.LongDate,
		"dateTime":          locale.DateTimeBogota,
		"coord":             coord,
		"confidence":        identification.FormatConfidence,
		"statuses":          statuses,
	}
}

func fallback(value, placeholder string) string {
	if strings.TrimSpace(value) == "" {
		return placeholder
	}
	return value
}

func adminTitle(r gallery.ImageRecord) string {
	return fallback(r.PlantaID, UntitledAdmin)
}

func adminDescription(r gallery.ImageRecord) string {
	return fallback(r.Description, NoDescriptionAdmin)
}

func publicTitle(r gallery.ImageRecord) string {
	return fallback(r.PlantaID, UntitledPublic)
}

func publicDescription(r gallery.ImageRecord) string {
	return fallback(r.Description, NoDescriptionPublic)
}

func altText(r gallery.ImageRecord) string {
	return fallback(r.PlantaID, DefaultAltText)
}

func imageURL(r gallery.ImageRecord) string {
	if strings.TrimSpace(r.URLImagen) == "" {
		return gallery.PlaceholderURL(r.PlantaID)
	}
	return r.URLImagen
}

func uploaded(r gallery.ImageRecord) string {
	return locale.ShortDate(r.UploadedAt())
}

// coord renders an optional coordinate for form inputs
func coord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func statuses() []gallery.Status {
	return []gallery.Status{
		gallery.StatusPending,
		gallery.StatusPublished,
		gallery.StatusRejected,
		gallery.StatusActive,
	}
}
