package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cuenca-ubate/internal/domain/admin"
	"cuenca-ubate/internal/domain/gallery"
	"cuenca-ubate/internal/domain/identification"
	"cuenca-ubate/internal/domain/moderation"
	"cuenca-ubate/internal/domain/notification"
	"cuenca-ubate/internal/domain/subscriber"
	"cuenca-ubate/internal/services"
)

func sampleRecords() []gallery.ImageRecord {
	return []gallery.ImageRecord{
		{ID: 1, PlantaID: "Frailejón", Description: "Páramo", Estado: gallery.StatusPublished,
			TipoPublicacion: gallery.PublicationNews, FechaSubida: "2024-03-01T10:00:00", NombreUsuario: "ana",
			Lat: ptr(5.31), Lng: ptr(-73.81)},
		{ID: 2, PlantaID: "Roble", Estado: gallery.StatusPublished, TipoPublicacion: gallery.PublicationGallery,
			FechaSubida: "2024-02-01T10:00:00", NombreUsuario: "luis"},
		{ID: 3, PlantaID: "Encenillo", Estado: gallery.StatusPending, FechaSubida: "2024-04-01T10:00:00"},
	}
}

func TestHealthz(t *testing.T) {
	a := newAgent(t, newFakeServices())

	rec := a.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyz(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]services.HealthCheck
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "all healthy",
			checks:     map[string]services.HealthCheck{"backend": healthy, "storage": healthy},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"backend": "healthy", "storage": "healthy"},
		},
		{
			name:       "storage down",
			checks:     map[string]services.HealthCheck{"backend": healthy, "storage": failing},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"backend": "healthy", "storage": "unhealthy: connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeServices()
			svc.checks = tt.checks
			a := newAgent(t, svc)

			rec := a.get("/readyz")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantChecks, resp.Checks)
		})
	}
}

func TestHome(t *testing.T) {
	svc := newFakeServices()
	svc.catalog.records = sampleRecords()
	a := newAgent(t, svc)

	rec := a.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Frailejón")
	assert.Contains(t, body, "Roble")
	assert.NotContains(t, body, "Encenillo")
}

func TestGallery(t *testing.T) {
	svc := newFakeServices()
	svc.catalog.records = sampleRecords()
	a := newAgent(t, svc)

	t.Run("hides unpublished records", func(t *testing.T) {
		rec := a.get("/galeria")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Roble")
		assert.NotContains(t, rec.Body.String(), "Encenillo")
	})

	t.Run("htmx search returns the cards only", func(t *testing.T) {
		rec := a.htmx("/galeria?q=LUIS")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.NotContains(t, body, "<!DOCTYPE html>")
		assert.Contains(t, body, "Roble")
		assert.NotContains(t, body, "Frailejón")
	})

	t.Run("photo modal wraps around", func(t *testing.T) {
		rec := a.get("/galeria?foto=-1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `role="dialog"`)
	})

	t.Run("catalog failure still renders", func(t *testing.T) {
		svc.catalog.err = errors.New("backend down")
		defer func() { svc.catalog.err = nil }()

		rec := a.get("/galeria")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), catalogUnavailable)
	})
}

func TestSubscribe(t *testing.T) {
	svc := newFakeServices()
	svc.subscriptions.result = subscriber.SubscribeResult{Confirmed: true}
	a := newAgent(t, svc)

	t.Run("validation error keeps the form", func(t *testing.T) {
		rec := a.post("/suscripcion", url.Values{"nombre": {"Ana"}, "email": {"no-es-correo"}})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "Por favor ingresa un correo electrónico válido")
		assert.Contains(t, rec.Body.String(), `value="Ana"`)
	})

	t.Run("success shows a toast after the redirect", func(t *testing.T) {
		rec := a.post("/suscripcion", url.Values{"nombre": {"Ana"}, "email": {"ana@example.com"}})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/suscripcion", rec.Header().Get("Location"))

		page := a.get("/suscripcion")
		assert.Contains(t, page.Body.String(), subscriber.MessageSubscribed)

		again := a.get("/suscripcion")
		assert.NotContains(t, again.Body.String(), subscriber.MessageSubscribed, "toasts are shown once")
	})

	t.Run("unsaved subscription", func(t *testing.T) {
		svc.subscriptions.err = subscriber.ErrNotSaved
		defer func() { svc.subscriptions.err = nil }()

		rec := a.post("/suscripcion", url.Values{"nombre": {"Ana"}, "email": {"ana@example.com"}})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "Error al procesar tu suscripción")
	})
}

func TestAdminRequiresSession(t *testing.T) {
	a := newAgent(t, newFakeServices())

	rec := a.get("/admin")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = a.htmx("/admin?q=roble")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("HX-Redirect"))

	rec = a.get("/api/admin/estadisticas")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Se requiere iniciar sesión"}`, rec.Body.String())
}

func TestLogin(t *testing.T) {
	svc := newFakeServices()
	svc.catalog.records = sampleRecords()
	a := newAgent(t, svc)

	rec := a.post("/login", url.Values{"username": {"admin"}, "password": {"otra"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Usuario o contraseña incorrectos")

	rec = a.post("/login", url.Values{"username": {"admin"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	a.login()
	rec = a.get("/admin")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Bienvenido, admin")
	assert.Contains(t, body, "Cerrar sesión (admin)")
	assert.Contains(t, body, "Encenillo", "the admin sees every state")

	rec = a.get("/login")
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = a.post("/logout", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	rec = a.get("/admin")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestChangePassword(t *testing.T) {
	svc := newFakeServices()
	svc.admin.change = admin.ChangeResult{Success: true, Message: "Contraseña actualizada correctamente", NoticeSent: true}
	a := newAgent(t, svc)

	rec := a.post("/login/cambiar-password", url.Values{
		"username":  {"admin"},
		"actual":    {"viejo123"},
		"nueva":     {"nuevo123"},
		"confirmar": {"nuevo123"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Contraseña actualizada correctamente")

	require.Len(t, svc.admin.changes, 1)
	assert.Equal(t, "192.0.2.1", svc.admin.changes[0].RemoteAddr)
	assert.Equal(t, "nuevo123", svc.admin.changes[0].ConfirmPassword)

	svc.admin.change = admin.ChangeResult{Message: "Las contraseñas no coinciden"}
	svc.admin.changeErr = admin.ErrPasswordMismatch
	rec = a.post("/login/cambiar-password", url.Values{"username": {"admin"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Las contraseñas no coinciden")
}

func TestChangeStatus(t *testing.T) {
	svc := newFakeServices()
	svc.moderation.outcome = moderation.Outcome{
		Toast:          moderation.Success("Estado cambiado a Publicada"),
		OfferBroadcast: true,
	}
	a := newAgent(t, svc)
	a.login()

	t.Run("asks for confirmation first", func(t *testing.T) {
		rec := a.post("/admin/imagenes/5/estado", url.Values{"estado": {"publicada"}})
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "¿Cambiar el estado de la imagen a Publicada?")
		assert.Contains(t, body, `name="estado" value="publicada"`)
		assert.Empty(t, svc.moderation.statuses)
	})

	t.Run("confirmed", func(t *testing.T) {
		rec := a.post("/admin/imagenes/5/estado", url.Values{"estado": {"publicada"}, "confirmado": {"si"}})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/admin", rec.Header().Get("Location"))
		require.Len(t, svc.moderation.statuses, 1)
		assert.Equal(t, statusCall{id: 5, status: "publicada", confirmed: true}, svc.moderation.statuses[0])

		page := a.get("/admin").Body.String()
		assert.Contains(t, page, "Estado cambiado a Publicada")
		assert.Contains(t, page, "Enviar notificación a suscriptores")
	})

	t.Run("cancelled", func(t *testing.T) {
		rec := a.post("/admin/imagenes/5/estado", url.Values{"estado": {"rechazada"}, "confirmado": {"no"}})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Len(t, svc.moderation.statuses, 2)
		assert.False(t, svc.moderation.statuses[1].confirmed)
		assert.Contains(t, a.get("/admin").Body.String(), "Operación cancelada: se requiere confirmación")
	})

	t.Run("invalid status", func(t *testing.T) {
		rec := a.post("/admin/imagenes/5/estado", url.Values{"estado": {"borrada"}, "confirmado": {"si"}})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Len(t, svc.moderation.statuses, 2)
	})
}

func TestBroadcastOffer(t *testing.T) {
	const offer = "Enviar notificación a suscriptores"
	published := moderation.Outcome{Toast: moderation.Success("Estado cambiado a Publicada"), OfferBroadcast: true}
	rejected := moderation.Outcome{Toast: moderation.Success("Estado cambiado a Rechazada")}

	svc := newFakeServices()
	a := newAgent(t, svc)
	a.login()

	setStatus := func(status string, outcome moderation.Outcome) {
		t.Helper()
		svc.moderation.outcome = outcome
		rec := a.post("/admin/imagenes/5/estado", url.Values{"estado": {status}, "confirmado": {"si"}})
		require.Equal(t, http.StatusSeeOther, rec.Code)
	}

	t.Run("a later status change withdraws the offer", func(t *testing.T) {
		setStatus("publicada", published)
		assert.Contains(t, a.get("/admin").Body.String(), offer)

		setStatus("rechazada", rejected)
		for i := 0; i < 3; i++ {
			assert.NotContains(t, a.get("/admin").Body.String(), offer)
		}
	})

	t.Run("declined", func(t *testing.T) {
		setStatus("publicada", published)
		page := a.get("/admin").Body.String()
		assert.Contains(t, page, offer)
		assert.Contains(t, page, `action="/admin/notificaciones/descartar"`)

		rec := a.post("/admin/notificaciones/descartar", nil)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/admin", rec.Header().Get("Location"))

		page = a.get("/admin").Body.String()
		assert.Contains(t, page, "No se enviaron notificaciones")
		assert.NotContains(t, page, offer)
		assert.NotContains(t, a.get("/admin").Body.String(), offer)
		assert.Zero(t, svc.broadcaster.started)
	})
}

func TestEditAndDeleteImage(t *testing.T) {
	svc := newFakeServices()
	svc.moderation.outcome = moderation.Outcome{Toast: moderation.Success("Imagen actualizada correctamente")}
	a := newAgent(t, svc)
	a.login()

	rec := a.post("/admin/imagenes/2/editar", url.Values{
		"nombre":           {"Roble andino"},
		"descripcion":      {"Árbol"},
		"tipo_publicacion": {"noticias"},
		"lat":              {"5.3"},
		"lng":              {"-73.8"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, svc.moderation.edits, 1)
	assert.Equal(t, moderation.EditForm{
		Nombre: "Roble andino", Descripcion: "Árbol", TipoPublicacion: "noticias", Lat: "5.3", Lng: "-73.8",
	}, svc.moderation.edits[0])

	rec = a.post("/admin/imagenes/2/eliminar", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "¿Eliminar esta imagen?")
	assert.Empty(t, svc.moderation.deletes)

	rec = a.post("/admin/imagenes/2/eliminar", url.Values{"confirmado": {"si"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, svc.moderation.deletes, 1)
	assert.Equal(t, statusCall{id: 2, confirmed: true}, svc.moderation.deletes[0])

	rec = a.post("/admin/imagenes/abc/eliminar", url.Values{"confirmado": {"si"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShowOnMap(t *testing.T) {
	svc := newFakeServices()
	svc.catalog.records = sampleRecords()
	a := newAgent(t, svc)
	a.login()

	rec := a.get("/admin/imagenes/2/mapa")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"), "records without coordinates stay on the panel")

	rec = a.get("/admin/imagenes/1/mapa")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/mapa", rec.Header().Get("Location"))

	body := a.get("/mapa").Body.String()
	assert.Contains(t, body, "Ubicación seleccionada: <strong>Frailejón</strong>")
}

func TestSubscriberManagement(t *testing.T) {
	svc := newFakeServices()
	activo := false
	svc.subscriptions.list = subscriber.ListResult{Subscribers: []subscriber.Subscriber{
		{ID: 1, Nombre: "Ana", Email: "ana@example.com"},
		{ID: 2, Nombre: "Luis", Email: "luis@example.com", Activo: &activo},
	}}
	a := newAgent(t, svc)
	a.login()

	rec := a.get("/admin/suscriptores")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2 suscriptores, 1 activos.")

	t.Run("delete one", func(t *testing.T) {
		rec := a.post("/admin/suscriptores/1/eliminar", url.Values{"confirmado": {"si"}})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, []int{1}, svc.subscriptions.deleted)
		assert.Contains(t, a.get("/admin/suscriptores").Body.String(), "Suscriptor eliminado")
	})

	t.Run("delete unknown", func(t *testing.T) {
		svc.subscriptions.deleteErr = subscriber.ErrSubscriberNotFound
		defer func() { svc.subscriptions.deleteErr = nil }()

		a.post("/admin/suscriptores/9/eliminar", url.Values{"confirmado": {"si"}})
		assert.Contains(t, a.get("/admin/suscriptores").Body.String(), "Suscriptor no encontrado")
	})

	t.Run("delete all", func(t *testing.T) {
		svc.subscriptions.report = subscriber.BatchReport{Total: 3, Deleted: 3}

		rec := a.post("/admin/suscriptores/eliminar-todos", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "¿Eliminar TODOS los suscriptores?")

		a.post("/admin/suscriptores/eliminar-todos", url.Values{"confirmado": {"si"}})
		assert.Contains(t, a.get("/admin/suscriptores").Body.String(), "Todos los suscriptores (3) han sido eliminados")
	})

	t.Run("sync", func(t *testing.T) {
		svc.subscriptions.sync = subscriber.SyncReport{Synced: 2}
		rec := a.post("/admin/suscriptores/sincronizar", nil)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.True(t, svc.subscriptions.syncCalled)
		assert.Contains(t, a.get("/admin/suscriptores").Body.String(), "Sincronizados: 2, Errores: 0")
	})
}

func TestBroadcast(t *testing.T) {
	svc := newFakeServices()
	a := newAgent(t, svc)
	a.login()

	rec := a.post("/admin/notificaciones", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/notificaciones/job-1", rec.Header().Get("Location"))

	rec = a.htmx("/admin/notificaciones/job-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<!DOCTYPE html>")
	assert.Contains(t, rec.Body.String(), "Enviando notificaciones: 0 de 2")

	summary := notification.Summary{Total: 2, Succeeded: 2}
	svc.broadcaster.jobs["job-1"] = notification.Job{ID: "job-1", Status: notification.JobCompleted, Summary: &summary,
		Progress: notification.Progress{Total: 2, Attempted: 2, Succeeded: 2}}
	rec = a.get("/admin/notificaciones/job-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Notificaciones enviadas: 2 exitosas, 0 fallidas")

	rec = a.get("/api/admin/notificaciones/job-1")
	require.Equal(t, http.StatusOK, rec.Code)
	var job notification.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, notification.JobCompleted, job.Status)

	assert.Equal(t, http.StatusNotFound, a.get("/admin/notificaciones/nope").Code)
	assert.Equal(t, http.StatusNotFound, a.get("/api/admin/notificaciones/nope").Code)

	svc.broadcaster.startErr = notification.ErrNoRecipients
	rec = a.post("/admin/notificaciones", nil)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))
	assert.Contains(t, a.get("/admin").Body.String(), "No hay suscriptores activos para notificar")
}

func multipartPhoto(t *testing.T, flowID, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("flow", flowID))
	part, err := mw.CreateFormFile("foto", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/identificador/foto", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestIdentificationFlow(t *testing.T) {
	svc := newFakeServices()
	a := newAgent(t, svc)

	rec := a.get("/identificador")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/identificador/flow-1", rec.Header().Get("Location"))

	rec = a.get("/identificador")
	assert.Equal(t, "/identificador/flow-1", rec.Header().Get("Location"), "the session resumes its flow")

	t.Run("rejects files that are not pictures", func(t *testing.T) {
		rec := a.do(multipartPhoto(t, "flow-1", "notas.txt", []byte("hola, esto no es una imagen")))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Empty(t, svc.identification.uploads)
		assert.Contains(t, a.get("/identificador/flow-1").Body.String(), "El archivo seleccionado no es una imagen válida")
	})

	t.Run("stages a sniffed picture", func(t *testing.T) {
		png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
		rec := a.do(multipartPhoto(t, "flow-1", "hoja.png", png))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/identificador/flow-1", rec.Header().Get("Location"))

		require.Len(t, svc.identification.uploads, 1)
		assert.Equal(t, "image/png", svc.identification.uploads[0].ContentType)
		assert.Equal(t, "hoja.png", svc.identification.uploads[0].Filename)

		photo := a.get("/identificador/flow-1/foto")
		assert.Equal(t, http.StatusOK, photo.Code)
		assert.Equal(t, "image/png", photo.Header().Get("Content-Type"))
	})

	t.Run("actions", func(t *testing.T) {
		for _, path := range []string{"identificar", "guardar", "guardar-sin-identificar", "reiniciar"} {
			rec := a.post("/identificador/flow-1/"+path, nil)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/identificador/flow-1", rec.Header().Get("Location"))
		}
		assert.Equal(t, []string{"identify", "save", "save-unidentified", "reset"}, svc.identification.actions)
	})

	t.Run("unexpected failure shows a toast", func(t *testing.T) {
		svc.identification.actionErr = errors.New("storage unavailable")
		defer func() { svc.identification.actionErr = nil }()

		a.post("/identificador/flow-1/guardar", nil)
		assert.Contains(t, a.get("/identificador/flow-1").Body.String(), "Error: storage unavailable")
	})

	t.Run("expired flow", func(t *testing.T) {
		rec := a.post("/identificador/caducado/identificar", nil)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/identificador", rec.Header().Get("Location"))
		assert.Equal(t, http.StatusNotFound, a.get("/identificador/caducado/foto").Code)
	})
}

func TestSavedPlants(t *testing.T) {
	svc := newFakeServices()
	svc.identification.plants = []identification.SavedPlant{{
		ID:          "p1",
		Name:        "Quercus humboldtii",
		CommonName:  "Roble andino",
		DateSaved:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Probability: 0.9,
	}}
	a := newAgent(t, svc)

	rec := a.get("/mis-plantas")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Roble andino")
	assert.Contains(t, rec.Body.String(), "15 de enero de 2024")
	assert.Contains(t, rec.Body.String(), "Confianza: 90.0%")

	rec = a.get("/mis-plantas/p1/foto?miniatura=si")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "thumb", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, a.get("/mis-plantas/zz/foto").Code)
}

func TestAPI(t *testing.T) {
	svc := newFakeServices()
	svc.catalog.records = sampleRecords()
	a := newAgent(t, svc)

	rec := a.get("/api/galeria?orden=antiguas")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ImagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, 2, resp.Images[0].ID)

	a.login()

	rec = a.get("/api/admin/estadisticas")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":3,"publicadas":2,"pendientes":1,"rechazadas":0}`, rec.Body.String())

	rec = a.get("/api/admin/imagenes?estado=pendiente")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, 3, resp.Images[0].ID)

	svc.catalog.err = errors.New("backend down")
	rec = a.get("/api/galeria")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestNotFound(t *testing.T) {
	a := newAgent(t, newFakeServices())

	rec := a.get("/no-existe")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Página no encontrada")
}
