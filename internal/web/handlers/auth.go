package handlers

import (
	"errors"
	"net"
	"net/http"

	"cuenca-ubate/internal/domain/admin"
	"cuenca-ubate/internal/domain/moderation"
	"cuenca-ubate/internal/web/render"
)

func (h *Handler) loginFormHandler(w http.ResponseWriter, r *http.Request) {
	if h.isAdmin(r) {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	h.page(w, r, http.StatusOK, "login", "Administración", render.LoginView{})
}

func (h *Handler) loginHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	creds := admin.Credentials{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}

	session, err := h.services.Admin().Login(ctx, creds)
	if err != nil {
		h.logger.Warn(ctx).Err(err).Str("username", creds.Username).Msg("Login failed")
		h.page(w, r, authStatus(err), "login", "Administración", render.LoginView{
			Username: creds.Username,
			Error:    admin.Message(err),
		})
		return
	}

	s := h.session(r)
	s.Values[keyAdmin] = session.Username
	s.Values[keyAdminSince] = session.LoggedAt.Unix()
	h.saveSession(w, r, s)

	h.logger.Info(ctx).Str("username", session.Username).Msg("Administrator logged in")
	h.redirect(w, r, "/admin", moderation.Success("Bienvenido, "+session.Username))
}

func (h *Handler) logoutHandler(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	user := adminUser(s)
	delete(s.Values, keyAdmin)
	delete(s.Values, keyAdminSince)
	delete(s.Values, keyOfferBroadcast)
	delete(s.Values, keyMarker)
	h.saveSession(w, r, s)

	if user != "" {
		h.logger.Info(r.Context()).Str("username", user).Msg("Administrator logged out")
	}
	h.redirect(w, r, "/", moderation.Info("Sesión cerrada"))
}

// changePasswordHandler changes an administrator password; the form asks for the current one
func (h *Handler) changePasswordHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	change := admin.PasswordChange{
		Username:        r.PostFormValue("username"),
		CurrentPassword: r.PostFormValue("actual"),
		NewPassword:     r.PostFormValue("nueva"),
		ConfirmPassword: r.PostFormValue("confirmar"),
		RemoteAddr:      clientIP(r),
	}

	result, err := h.services.Admin().ChangePassword(ctx, change)
	message := result.Message
	if message == "" {
		message = admin.Message(err)
	}

	status := http.StatusOK
	if err != nil {
		status = authStatus(err)
		h.logger.Warn(ctx).Err(err).Str("username", change.Username).Msg("Password change failed")
	}

	h.page(w, r, status, "login", "Administración", render.LoginView{
		Username:      change.Username,
		ChangeMessage: message,
		ChangeOK:      result.Success,
		NoticeError:   result.NoticeError,
	})
}

func authStatus(err error) int {
	switch {
	case errors.Is(err, admin.ErrInvalidCredentials), errors.Is(err, admin.ErrUserNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, admin.ErrFieldsRequired), errors.Is(err, admin.ErrPasswordMismatch), errors.Is(err, admin.ErrPasswordTooShort):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// clientIP is the address reported in the password change notice
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
