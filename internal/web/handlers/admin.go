package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"cuenca-ubate/internal/domain/gallery"
	"cuenca-ubate/internal/domain/moderation"
	"cuenca-ubate/internal/domain/notification"
	"cuenca-ubate/internal/domain/subscriber"
	"cuenca-ubate/internal/web/render"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const (
	confirmField = "confirmado"
	confirmYes   = "si"
)

// adminQuery reads the dashboard filters
func adminQuery(r *http.Request) gallery.Query {
	q := r.URL.Query()
	status := q.Get("estado")
	if status == "" {
		status = gallery.StatusAll
	}
	return gallery.Query{
		Term:   q.Get("q"),
		Status: status,
		Sort:   gallery.ParseSortKey(q.Get("orden")),
	}
}

// adminHandler loads the snapshot and the subscriber list side by side
func (h *Handler) adminHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := adminQuery(r)

	if isHTMX(r) {
		records, err := h.services.Catalog().Records(ctx)
		if err != nil {
			h.logger.Error(ctx).Err(err).Msg("Failed to load images")
			http.Error(w, catalogUnavailable, http.StatusBadGateway)
			return
		}
		h.cards(w, r, gallery.Apply(records, query), true)
		return
	}

	var (
		records []gallery.ImageRecord
		subs    subscriber.ListResult
		subsErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = h.services.Catalog().Records(gctx)
		return err
	})
	g.Go(func() error {
		subs, subsErr = h.services.Subscriptions().List(gctx)
		return nil
	})

	var toast moderation.Toast
	if err := g.Wait(); err != nil {
		h.logger.Error(ctx).Err(err).Msg("Failed to load images")
		toast = moderation.Failure(catalogUnavailable)
		records = nil
	}

	view := render.AdminView{
		Records:         gallery.Apply(records, query),
		Stats:           gallery.ComputeStats(records),
		Term:            query.Term,
		Status:          query.Status,
		Sort:            query.Sort,
		SubscriberCount: len(subscriber.Active(subs.Subscribers)),
	}
	if subsErr != nil {
		h.logger.Warn(ctx).Err(subsErr).Msg("Failed to load subscribers")
		view.SubscribersError = "No disponible"
	}

	session := h.session(r)
	if offer, _ := session.Values[keyOfferBroadcast].(bool); offer {
		view.OfferBroadcast = true
	}

	h.pageWithToast(w, r, http.StatusOK, "admin", "Panel de administración", view, toast)
}

// confirmation reads the confirmado field; asked is false when the form has not been confirmed nor cancelled yet
func confirmation(r *http.Request) (confirmed, asked bool) {
	value := r.PostFormValue(confirmField)
	return value == confirmYes, value != ""
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request, message, cancelURL string, fields map[string]string) {
	h.page(w, r, http.StatusOK, "confirm", "Confirmar operación", render.ConfirmView{
		Message:   message,
		Action:    r.URL.Path,
		Fields:    fields,
		CancelURL: cancelURL,
	})
}

func (h *Handler) changeStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.fail(w, r, http.StatusNotFound, "Imagen no encontrada")
		return
	}
	status := r.PostFormValue("estado")
	parsed, err := gallery.ParseStatus(status)
	if err != nil {
		h.redirect(w, r, "/admin", moderation.Failure(moderation.Message(err)))
		return
	}

	confirmed, asked := confirmation(r)
	if !asked {
		h.confirm(w, r, fmt.Sprintf("¿Cambiar el estado de la imagen a %s?", moderation.StatusLabel(parsed)), "/admin",
			map[string]string{"estado": status})
		return
	}

	outcome, err := h.services.Moderation().ChangeStatus(r.Context(), id, status, confirmed)
	if err != nil && !errors.Is(err, moderation.ErrConfirmationRequired) {
		h.logger.Warn(r.Context()).Err(err).Int("image_id", id).Msg("Status change failed")
	}
	// only the latest status change decides whether the offer stays up
	session := h.session(r)
	if outcome.OfferBroadcast {
		session.Values[keyOfferBroadcast] = true
	} else {
		delete(session.Values, keyOfferBroadcast)
	}
	h.saveSession(w, r, session)
	h.redirect(w, r, "/admin", outcome.Toast)
}

func (h *Handler) editImageHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.fail(w, r, http.StatusNotFound, "Imagen no encontrada")
		return
	}

	outcome, err := h.services.Moderation().EditRecord(r.Context(), id, moderation.EditForm{
		Nombre:          r.PostFormValue("nombre"),
		Descripcion:     r.PostFormValue("descripcion"),
		TipoPublicacion: r.PostFormValue("tipo_publicacion"),
		Lat:             r.PostFormValue("lat"),
		Lng:             r.PostFormValue("lng"),
	})
	if err != nil {
		h.logger.Warn(r.Context()).Err(err).Int("image_id", id).Msg("Image edit failed")
	}
	h.redirect(w, r, "/admin", outcome.Toast)
}

func (h *Handler) deleteImageHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.fail(w, r, http.StatusNotFound, "Imagen no encontrada")
		return
	}

	confirmed, asked := confirmation(r)
	if !asked {
		h.confirm(w, r, "¿Eliminar esta imagen? Esta acción no se puede deshacer.", "/admin", nil)
		return
	}

	outcome, err := h.services.Moderation().DeleteRecord(r.Context(), id, confirmed)
	if err != nil && !errors.Is(err, moderation.ErrConfirmationRequired) {
		h.logger.Warn(r.Context()).Err(err).Int("image_id", id).Msg("Image delete failed")
	}
	h.redirect(w, r, "/admin", outcome.Toast)
}

// showOnMapHandler keeps the record's location in the session and opens the map
func (h *Handler) showOnMapHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.fail(w, r, http.StatusNotFound, "Imagen no encontrada")
		return
	}

	records, toast := h.records(r.Context())
	if !toast.IsZero() {
		h.redirect(w, r, "/admin", toast)
		return
	}
	rec, found := gallery.FindByID(records, id)
	if !found || !rec.HasCoordinates() {
		h.redirect(w, r, "/admin", moderation.Warning("Esta imagen no tiene coordenadas"))
		return
	}

	title := rec.PlantaID
	if title == "" {
		title = render.UntitledAdmin
	}
	session := h.session(r)
	session.Values[keyMarker] = gallery.Marker{Lat: *rec.Lat, Lng: *rec.Lng, Titulo: title, Fecha: h.now()}
	h.saveSession(w, r, session)
	http.Redirect(w, r, "/mapa", http.StatusSeeOther)
}

func (h *Handler) subscribersHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.services.Subscriptions().List(ctx)
	if err != nil {
		h.logger.Error(ctx).Err(err).Msg("Failed to list subscribers")
		h.pageWithToast(w, r, http.StatusOK, "subscribers", "Suscriptores", render.SubscribersView{},
			moderation.Failure("Error al cargar suscriptores"))
		return
	}

	h.page(w, r, http.StatusOK, "subscribers", "Suscriptores", render.SubscribersView{
		Subscribers: result.Subscribers,
		FromMirror:  result.FromMirror,
		Active:      len(subscriber.Active(result.Subscribers)),
	})
}

func (h *Handler) deleteSubscriberHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.fail(w, r, http.StatusNotFound, "Suscriptor no encontrado")
		return
	}

	confirmed, asked := confirmation(r)
	if !asked {
		h.confirm(w, r, "¿Eliminar este suscriptor?", "/admin/suscriptores", nil)
		return
	}

	err := h.services.Subscriptions().Delete(r.Context(), id, confirmed)
	var toast moderation.Toast
	switch {
	case err == nil:
		toast = moderation.Success("Suscriptor eliminado")
	case errors.Is(err, subscriber.ErrConfirmationRequired):
		toast = cancelledToast()
	case errors.Is(err, subscriber.ErrSubscriberNotFound):
		toast = moderation.Failure("Suscriptor no encontrado")
	default:
		h.logger.Error(r.Context()).Err(err).Int("subscriber_id", id).Msg("Failed to delete subscriber")
		toast = moderation.Failure("Error al eliminar suscriptor: " + err.Error())
	}
	h.redirect(w, r, "/admin/suscriptores", toast)
}

func (h *Handler) deleteAllSubscribersHandler(w http.ResponseWriter, r *http.Request) {
	confirmed, asked := confirmation(r)
	if !asked {
		h.confirm(w, r, "¿Eliminar TODOS los suscriptores? Esta acción no se puede deshacer.", "/admin/suscriptores", nil)
		return
	}

	report, err := h.services.Subscriptions().DeleteAll(r.Context(), confirmed)
	var toast moderation.Toast
	switch {
	case errors.Is(err, subscriber.ErrConfirmationRequired):
		toast = cancelledToast()
	case err != nil:
		h.logger.Error(r.Context()).Err(err).Msg("Failed to delete subscribers")
		toast = moderation.Failure("Error al eliminar suscriptores: " + err.Error())
	case report.Failed > 0:
		toast = moderation.Warning(report.Message())
	default:
		toast = moderation.Success(report.Message())
	}
	h.redirect(w, r, "/admin/suscriptores", toast)
}

func (h *Handler) syncSubscribersHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.services.Subscriptions().SyncPending(r.Context())
	var toast moderation.Toast
	switch {
	case err != nil:
		h.logger.Error(r.Context()).Err(err).Msg("Failed to sync subscribers")
		toast = moderation.Failure("Error al sincronizar: " + err.Error())
	case report.Failed > 0:
		toast = moderation.Warning(report.Message())
	case report.Synced == 0:
		toast = moderation.Info(report.Message())
	default:
		toast = moderation.Success(report.Message())
	}
	h.redirect(w, r, "/admin/suscriptores", toast)
}

// startBroadcastHandler launches the newsletter in the background and shows its progress
func (h *Handler) startBroadcastHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := h.session(r)
	delete(session.Values, keyOfferBroadcast)
	h.saveSession(w, r, session)

	job, err := h.services.Broadcaster().Start(ctx)
	switch {
	case errors.Is(err, notification.ErrNoRecipients):
		h.redirect(w, r, "/admin", moderation.Warning("No hay suscriptores activos para notificar"))
	case err != nil:
		h.logger.Error(ctx).Err(err).Msg("Failed to start broadcast")
		h.redirect(w, r, "/admin", moderation.Failure("Error al enviar notificaciones: "+err.Error()))
	default:
		h.redirect(w, r, "/admin/notificaciones/"+job.ID, moderation.Info("Enviando notificaciones a "+strconv.Itoa(job.Progress.Total)+" suscriptores"))
	}
}

// declineBroadcastHandler dismisses the offer to notify subscribers after a publication
func (h *Handler) declineBroadcastHandler(w http.ResponseWriter, r *http.Request) {
	session := h.session(r)
	delete(session.Values, keyOfferBroadcast)
	h.saveSession(w, r, session)
	h.redirect(w, r, "/admin", moderation.Info("No se enviaron notificaciones"))
}

func (h *Handler) broadcastStatusHandler(w http.ResponseWriter, r *http.Request) {
	job, err := h.job(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, http.StatusNotFound, "Envío no encontrado")
		return
	}

	if isHTMX(r) {
		h.fragment(w, r, render.JobProgress, job)
		return
	}

	var toast moderation.Toast
	if job.Summary != nil {
		toast = moderation.Success(job.Summary.Message())
		if !job.Summary.OK() {
			toast = moderation.Failure(job.Summary.Message())
		}
	}
	h.pageWithToast(w, r, http.StatusOK, "job", "Notificaciones", job, toast)
}

func (h *Handler) job(ctx context.Context, id string) (notification.Job, error) {
	job, err := h.services.Broadcaster().Job(ctx, id)
	if err != nil && !errors.Is(err, notification.ErrJobNotFound) {
		h.logger.Error(ctx).Err(err).Str("job_id", id).Msg("Failed to read broadcast job")
	}
	return job, err
}

func cancelledToast() moderation.Toast {
	return moderation.Warning("Operación cancelada: se requiere confirmación")
}
