package handlers

import (
	"encoding/gob"
	"net/http"
	"time"

	"cuenca-ubate/internal/domain/gallery"
	"cuenca-ubate/internal/domain/moderation"

	"github.com/gorilla/sessions"
)

const (
	sessionName = "cuenca_ubate"

	keyAdmin          = "admin_user"
	keyAdminSince     = "admin_since"
	keyFlow           = "flow_id"
	keyMarker         = "map_marker"
	keyOfferBroadcast = "offer_broadcast"
)

func init() {
	gob.Register(moderation.Toast{})
	gob.Register(gallery.Marker{})
}

func newSessionStore(secret string, maxAge time.Duration, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(store.Options.MaxAge)
	return store
}

// session returns the visitor's session. An unreadable cookie yields a fresh one.
func (h *Handler) session(r *http.Request) *sessions.Session {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		h.logger.Debug(r.Context()).Err(err).Msg("Discarding unreadable session cookie")
	}
	return session
}

func (h *Handler) saveSession(w http.ResponseWriter, r *http.Request, session *sessions.Session) {
	if err := session.Save(r, w); err != nil {
		h.logger.Error(r.Context()).Err(err).Msg("Failed to save session")
	}
}

// popToast takes the first pending toast, if any
func popToast(session *sessions.Session) moderation.Toast {
	for _, flash := range session.Flashes() {
		if toast, ok := flash.(moderation.Toast); ok {
			return toast
		}
	}
	return moderation.Toast{}
}

func adminUser(session *sessions.Session) string {
	user, _ := session.Values[keyAdmin].(string)
	return user
}

func (h *Handler) isAdmin(r *http.Request) bool {
	return adminUser(h.session(r)) != ""
}

// requireAdmin sends visitors without an admin session to the login page
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.isAdmin(r) {
			next.ServeHTTP(w, r)
			return
		}
		if isHTMX(r) {
			w.Header().Set("HX-Redirect", "/login")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		h.redirect(w, r, "/login", moderation.Info("Inicia sesión para acceder al panel"))
	})
}

// requireAdminAPI answers 401 JSON to requests without an admin session
func (h *Handler) requireAdminAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.isAdmin(r) {
			writeError(w, http.StatusUnauthorized, "Se requiere iniciar sesión")
			return
		}
		next.ServeHTTP(w, r)
	})
}
