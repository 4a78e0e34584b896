package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cuenca-ubate/internal/domain/gallery"
	"cuenca-ubate/internal/domain/identification"
	"cuenca-ubate/internal/domain/moderation"
	"cuenca-ubate/internal/domain/notification"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	return r
}

func TestImageCards_Placeholders(t *testing.T) {
	r := newRenderer(t)
	records := []gallery.ImageRecord{{ID: 7, Estado: gallery.StatusPending}}

	tests := []struct {
		name  string
		admin bool
		want  []string
	}{
		{
			name:  "admin",
			admin: true,
			want:  []string{"Sin título", "Sin descripción", "Imagen de planta", "Pendiente", "/admin/imagenes/7/estado"},
		},
		{
			name: "public",
			want: []string{"Planta sin nombre", "Descripción no disponible.", "Imagen de planta", "via.placeholder.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, err := r.ImageCards(records, tt.admin)
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, string(html), want)
			}
		})
	}
}

func TestImageCards_EscapesUserText(t *testing.T) {
	r := newRenderer(t)
	records := []gallery.ImageRecord{{
		ID:            1,
		PlantaID:      `<script>alert("x")</script>`,
		Description:   `<img src=x onerror=alert(1)>`,
		NombreUsuario: "<b>ana</b>",
		URLImagen:     "javascript:alert(1)",
		Estado:        gallery.StatusPublished,
	}}

	for _, admin := range []bool{true, false} {
		html, err := r.ImageCards(records, admin)
		require.NoError(t, err)
		out := string(html)
		assert.NotContains(t, out, "<script>")
		assert.NotContains(t, out, "<img src=x")
		assert.NotContains(t, out, "<b>ana</b>")
		assert.NotContains(t, out, `src="javascript:`)
		assert.Contains(t, out, "&lt;script&gt;")
	}
}

func TestImageCards_Empty(t *testing.T) {
	r := newRenderer(t)

	html, err := r.ImageCards(nil, true)
	require.NoError(t, err)
	assert.Contains(t, string(html), "No hay imágenes que coincidan")
}

func TestPage_LayoutAndToast(t *testing.T) {
	r := newRenderer(t)

	var buf bytes.Buffer
	err := r.Page(&buf, "subscribe", Page{
		Title: "Suscripción",
		Toast: moderation.Success("🌱 ¡Suscripción exitosa!"),
		Data:  SubscribeView{Nombre: "Ana", Error: "Por favor completa todos los campos"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "<title>Suscripción | Cuenca Alta del Río Ubaté</title>")
	assert.Contains(t, out, `data-dismiss-after="5000"`)
	assert.Contains(t, out, "toast-success")
	assert.Contains(t, out, `value="Ana"`)
	assert.Contains(t, out, "Por favor completa todos los campos")
	assert.Contains(t, out, `href="/login"`)
}

func TestPage_AdminNavigation(t *testing.T) {
	r := newRenderer(t)

	var buf bytes.Buffer
	err := r.Page(&buf, "admin", Page{
		Title: "Panel",
		Admin: "admin",
		Data: AdminView{
			Records:        []gallery.ImageRecord{{ID: 3, PlantaID: "Roble", Estado: gallery.StatusPublished}},
			Stats:          gallery.Stats{Total: 1, Publicadas: 1},
			Status:         gallery.StatusAll,
			Sort:           gallery.SortNewest,
			OfferBroadcast: true,
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Cerrar sesión (admin)")
	assert.Contains(t, out, "Enviar notificación a suscriptores")
	assert.Contains(t, out, "Roble")
	assert.NotContains(t, out, "toast-")
}

func TestPage_Unknown(t *testing.T) {
	r := newRenderer(t)

	var buf bytes.Buffer
	err := r.Page(&buf, "missing", Page{})
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestPage_HomeCarousel(t *testing.T) {
	r := newRenderer(t)
	news := []gallery.ImageRecord{
		{ID: 1, PlantaID: "Frailejón", Estado: gallery.StatusPublished},
		{ID: 2, PlantaID: "Roble", Estado: gallery.StatusPublished},
		{ID: 3, PlantaID: "Encenillo", Estado: gallery.StatusPublished},
	}

	var buf bytes.Buffer
	err := r.Page(&buf, "home", Page{
		Title: "Inicio",
		Data:  HomeView{News: news, Carousel: gallery.NewCarousel(0, len(news))},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Frailejón")
	assert.Contains(t, out, "/?noticia=2")
	assert.Contains(t, out, "/?noticia=1")
	assert.Contains(t, out, "No se encontraron plantas.")
}

func TestPage_MapEncodesPointsAsJSON(t *testing.T) {
	r := newRenderer(t)

	var buf bytes.Buffer
	err := r.Page(&buf, "map", Page{
		Title: "Mapa",
		Data: MapView{Points: []gallery.Marker{
			{Lat: 5.31, Lng: -73.81, Titulo: `</script><script>alert(1)</script>`},
		}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"lat":5.31`)
	assert.Regexp(t, `var marcador =\s*null\s*;`, out)
	assert.Equal(t, 1, strings.Count(out, "alert(1)"), "title stays inside the JSON literal")
	assert.NotContains(t, out, "</script><script>alert(1)")
}

func TestPage_Identify(t *testing.T) {
	r := newRenderer(t)
	flow := identification.Flow{
		ID:    "f1",
		State: identification.StateResultShown,
		Photo: &identification.Photo{Key: "staged/f1.jpg", Filename: "hoja.jpg"},
		Result: &identification.Result{
			ScientificName: "Quercus humboldtii",
			Score:          0.873,
			CommonNames:    []string{"Roble andino"},
			Sources:        identification.TrustedSources("Quercus humboldtii"),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, r.Page(&buf, "identify", Page{Title: "Identificador", Data: IdentifyView{Flow: flow}}))

	out := buf.String()
	assert.Contains(t, out, "Confianza: 87.3%")
	assert.Contains(t, out, "Roble andino")
	assert.Contains(t, out, "/identificador/f1/guardar")
	assert.Contains(t, out, "/identificador/f1/foto")
	assert.Contains(t, out, "iNaturalist")
}

func TestPage_ConfirmCarriesFields(t *testing.T) {
	r := newRenderer(t)

	var buf bytes.Buffer
	err := r.Page(&buf, "confirm", Page{Title: "Confirmar", Data: ConfirmView{
		Message: "¿Eliminar esta imagen?",
		Action:  "/admin/imagenes/4/eliminar",
		Fields:  map[string]string{"estado": "publicada"},
	}})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `action="/admin/imagenes/4/eliminar"`)
	assert.Contains(t, out, `name="estado" value="publicada"`)
	assert.Contains(t, out, `name="confirmado" value="si"`)
}

func TestFragment_JobProgress(t *testing.T) {
	r := newRenderer(t)

	running := notification.Job{ID: "j1", Status: notification.JobRunning, Progress: notification.Progress{Total: 4, Attempted: 1, Succeeded: 1}}
	var buf bytes.Buffer
	require.NoError(t, r.Fragment(&buf, JobProgress, running))
	assert.Contains(t, buf.String(), `hx-trigger="every 1s"`)
	assert.Contains(t, buf.String(), "(25%)")

	summary := notification.Summary{Total: 4, Succeeded: 3, Failed: 1}
	done := notification.Job{ID: "j1", Status: notification.JobCompleted, Progress: notification.Progress{Total: 4, Attempted: 4, Succeeded: 3, Failed: 1}, Summary: &summary}
	buf.Reset()
	require.NoError(t, r.Fragment(&buf, JobProgress, done))
	assert.NotContains(t, buf.String(), "hx-trigger")
	assert.Contains(t, buf.String(), "Notificaciones enviadas: 3 exitosas, 1 fallidas")
}

func TestHomeView_Slide(t *testing.T) {
	assert.Nil(t, HomeView{}.Slide())

	news := []gallery.ImageRecord{{ID: 1}, {ID: 2}}
	v := HomeView{News: news, Carousel: gallery.NewCarousel(-1, len(news))}
	require.NotNil(t, v.Slide())
	assert.Equal(t, 2, v.Slide().ID)
}
