package moderation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cuenca-ubate/internal/domain/gallery"
)

func TestEditForm_Validate(t *testing.T) {
	tests := []struct {
		name    string
		form    EditForm
		wantErr error
		check   func(t *testing.T, e gallery.Edit)
	}{
		{
			name:    "blank title",
			form:    EditForm{Nombre: "   "},
			wantErr: ErrTitleRequired,
		},
		{
			name:    "bad latitude",
			form:    EditForm{Nombre: "Roble", Lat: "norte"},
			wantErr: ErrInvalidLatitude,
		},
		{
			name:    "bad longitude",
			form:    EditForm{Nombre: "Roble", Lat: "5.2", Lng: "x"},
			wantErr: ErrInvalidLongitude,
		},
		{
			name:    "NaN latitude",
			form:    EditForm{Nombre: "Roble", Lat: "NaN", Lng: "-74.1"},
			wantErr: ErrInvalidLatitude,
		},
		{
			name:    "infinite longitude",
			form:    EditForm{Nombre: "Roble", Lat: "5.2", Lng: "-Inf"},
			wantErr: ErrInvalidLongitude,
		},
		{
			name:    "unknown publication type",
			form:    EditForm{Nombre: "Roble", TipoPublicacion: "blog"},
			wantErr: gallery.ErrInvalidPublicationType,
		},
		{
			name: "defaults to galeria without coordinates",
			form: EditForm{Nombre: " Roble ", Descripcion: " Árbol "},
			check: func(t *testing.T, e gallery.Edit) {
				assert.Equal(t, "Roble", e.Nombre)
				assert.Equal(t, "Árbol", e.Descripcion)
				assert.Equal(t, gallery.PublicationGallery, e.TipoPublicacion)
				assert.Nil(t, e.Lat)
				assert.Nil(t, e.Lng)
			},
		},
		{
			name: "news with coordinates",
			form: EditForm{Nombre: "Frailejón", TipoPublicacion: "noticias", Lat: "5.31", Lng: "-73.82"},
			check: func(t *testing.T, e gallery.Edit) {
				assert.Equal(t, gallery.PublicationNews, e.TipoPublicacion)
				require.NotNil(t, e.Lat)
				require.NotNil(t, e.Lng)
				assert.InDelta(t, 5.31, *e.Lat, 1e-9)
				assert.InDelta(t, -73.82, *e.Lng, 1e-9)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edit, err := tt.form.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, edit)
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "El título es requerido", Message(ErrTitleRequired))
	_, err := EditForm{Nombre: "a", Lat: "x"}.Validate()
	assert.Equal(t, "La latitud debe ser un número válido", Message(err))
	_, err = EditForm{Nombre: "a", Lng: "x"}.Validate()
	assert.Equal(t, "La longitud debe ser un número válido", Message(err))
	assert.Equal(t, "boom", Message(errors.New("boom")))
	assert.Empty(t, Message(nil))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Publicada", StatusLabel(gallery.StatusPublished))
	assert.Equal(t, "Pendiente", StatusLabel(gallery.StatusPending))
	assert.Equal(t, "Rechazada", StatusLabel(gallery.StatusRejected))
	assert.Equal(t, "Activo", StatusLabel(gallery.StatusActive))
	assert.Equal(t, "otro", StatusLabel("otro"))

	assert.Equal(t, "📰 Noticias", PublicationLabel(gallery.PublicationNews))
	assert.Equal(t, "📷 Galería", PublicationLabel(gallery.PublicationGallery))
	assert.Equal(t, "📷 Galería", PublicationLabel(""))
}

func TestToast(t *testing.T) {
	assert.True(t, Toast{}.IsZero())
	assert.Equal(t, ToastError, Failure("x").Kind)
	assert.Equal(t, int64(5000), Success("ok").DismissAfterMillis())
}
