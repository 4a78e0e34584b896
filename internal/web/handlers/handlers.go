package handlers

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"cuenca-ubate/internal/config"
	"cuenca-ubate/internal/domain/admin"
	"cuenca-ubate/internal/domain/gallery"
	"cuenca-ubate/internal/domain/identification"
	"cuenca-ubate/internal/domain/moderation"
	"cuenca-ubate/internal/domain/notification"
	"cuenca-ubate/internal/domain/subscriber"
	"cuenca-ubate/internal/observability"
	"cuenca-ubate/internal/services"
	"cuenca-ubate/internal/web/render"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"go.opentelemetry.io/otel/trace"
)

// Services is what the handlers need from the dependency container
type Services interface {
	Config() *config.Config
	Logger() *observability.Logger
	Catalog() gallery.CatalogService
	Moderation() moderation.Service
	Subscriptions() subscriber.Service
	Broadcaster() notification.Broadcaster
	Identification() identification.Service
	Admin() admin.Service
	HealthChecks() map[string]services.HealthCheck
}

var _ Services = (*services.Container)(nil)

type Handler struct {
	services Services
	config   *config.Config
	logger   *observability.Logger
	renderer *render.Renderer
	sessions sessions.Store
	tracer   trace.Tracer
	now      func() time.Time
}

func New(svc Services, renderer *render.Renderer) *Handler {
	cfg := svc.Config()
	logger := svc.Logger()
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	return &Handler{
		services: svc,
		config:   cfg,
		logger:   logger,
		renderer: renderer,
		sessions: newSessionStore(cfg.Auth.SessionSecret, cfg.Auth.SessionMaxAge, cfg.IsProduction()),
		tracer:   observability.GetTracer(),
		now:      time.Now,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(observability.TracingMiddleware(h.tracer))
	if metrics, err := observability.NewHTTPMetrics(observability.GetMeter()); err == nil {
		r.Use(observability.MetricsMiddleware(metrics))
	} else {
		h.logger.Warn(context.Background()).Err(err).Msg("HTTP metrics disabled")
	}

	// Health
	r.Get("/healthz", h.healthzHandler)
	r.Get("/readyz", h.readyzHandler)

	// Public pages
	r.Get("/", h.homeHandler)
	r.Get("/galeria", h.galleryHandler)
	r.Get("/mapa", h.mapHandler)
	r.Get("/suscripcion", h.subscribeFormHandler)
	r.Post("/suscripcion", h.subscribeHandler)

	// Identification
	r.Route("/identificador", func(r chi.Router) {
		r.Get("/", h.identifyStartHandler)
		r.Post("/foto", h.selectPhotoHandler)
		r.Get("/{flow}", h.identifyPageHandler)
		r.Get("/{flow}/foto", h.stagedPhotoHandler)
		r.Post("/{flow}/identificar", h.flowAction(identification.Service.Identify))
		r.Post("/{flow}/guardar", h.flowAction(identification.Service.Save))
		r.Post("/{flow}/guardar-sin-identificar", h.flowAction(identification.Service.SaveUnidentified))
		r.Post("/{flow}/reiniciar", h.flowAction(identification.Service.Reset))
	})
	r.Get("/mis-plantas", h.savedPlantsHandler)
	r.Get("/mis-plantas/{id}/foto", h.savedPlantPhotoHandler)

	// Authentication
	r.Get("/login", h.loginFormHandler)
	r.Post("/login", h.loginHandler)
	r.Post("/login/cambiar-password", h.changePasswordHandler)
	r.Post("/logout", h.logoutHandler)

	// Administration
	r.Route("/admin", func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Get("/", h.adminHandler)
		r.Route("/imagenes/{id}", func(r chi.Router) {
			r.Post("/estado", h.changeStatusHandler)
			r.Post("/editar", h.editImageHandler)
			r.Post("/eliminar", h.deleteImageHandler)
			r.Get("/mapa", h.showOnMapHandler)
		})
		r.Route("/suscriptores", func(r chi.Router) {
			r.Get("/", h.subscribersHandler)
			r.Post("/{id}/eliminar", h.deleteSubscriberHandler)
			r.Post("/eliminar-todos", h.deleteAllSubscribersHandler)
			r.Post("/sincronizar", h.syncSubscribersHandler)
		})
		r.Post("/notificaciones", h.startBroadcastHandler)
		r.Post("/notificaciones/descartar", h.declineBroadcastHandler)
		r.Get("/notificaciones/{id}", h.broadcastStatusHandler)
	})

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Get("/galeria", h.apiGalleryHandler)
		r.Route("/admin", func(r chi.Router) {
			r.Use(h.requireAdminAPI)
			r.Get("/imagenes", h.apiImagesHandler)
			r.Get("/estadisticas", h.apiStatsHandler)
			r.Get("/notificaciones/{id}", h.apiBroadcastHandler)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.fail(w, r, http.StatusNotFound, "Página no encontrada")
	})

	return r
}

// requestLogger logs one line per request through zerolog
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" {
			return
		}
		h.logger.Info(r.Context()).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Request handled")
	})
}

// page renders a full page with the pending toast and the logged-in administrator
func (h *Handler) page(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	h.pageWithToast(w, r, status, name, title, data, moderation.Toast{})
}

// pageWithToast renders a page with toast, or with the pending flash when toast is empty
func (h *Handler) pageWithToast(w http.ResponseWriter, r *http.Request, status int, name, title string, data any, toast moderation.Toast) {
	ctx := r.Context()
	session := h.session(r)
	if flashed := popToast(session); toast.IsZero() {
		toast = flashed
	}
	h.saveSession(w, r, session)

	var buf bytes.Buffer
	err := h.renderer.Page(&buf, name, render.Page{
		Title: title,
		Toast: toast,
		Admin: adminUser(session),
		Data:  data,
	})
	if err != nil {
		h.logger.Error(ctx).Err(err).Str("page", name).Msg("Failed to render page")
		http.Error(w, "Error interno del servidor", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w) //nolint:errcheck // Best effort response
}

// fragment answers an htmx request with a partial
func (h *Handler) fragment(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := h.renderer.Fragment(&buf, name, data); err != nil {
		h.logger.Error(r.Context()).Err(err).Str("fragment", name).Msg("Failed to render fragment")
		http.Error(w, "Error interno del servidor", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w) //nolint:errcheck // Best effort response
}

// cards answers an htmx search with the image grid only
func (h *Handler) cards(w http.ResponseWriter, r *http.Request, records []gallery.ImageRecord, admin bool) {
	html, err := h.renderer.ImageCards(records, admin)
	if err != nil {
		h.logger.Error(r.Context()).Err(err).Msg("Failed to render image cards")
		http.Error(w, "Error interno del servidor", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html)) //nolint:errcheck // Best effort response
}

// fail renders the error page
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.page(w, r, status, "error", "Error", message)
}

// redirect stores toast for the next page and answers 303
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, url string, toast moderation.Toast) {
	if !toast.IsZero() {
		session := h.session(r)
		session.AddFlash(toast)
		h.saveSession(w, r, session)
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// pathID parses a numeric route parameter
func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	return id, err == nil && id > 0
}
