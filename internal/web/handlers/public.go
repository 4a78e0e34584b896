package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"cuenca-ubate/internal/domain/gallery"
	"cuenca-ubate/internal/domain/moderation"
	"cuenca-ubate/internal/domain/subscriber"
	"cuenca-ubate/internal/web/render"
)

const (
	latestCount        = 3
	catalogUnavailable = "No se pudieron cargar las imágenes. Intenta de nuevo más tarde."
)

// records loads the snapshot; on failure the page still renders, empty and with an error toast
func (h *Handler) records(ctx context.Context) ([]gallery.ImageRecord, moderation.Toast) {
	records, err := h.services.Catalog().Records(ctx)
	if err != nil {
		h.logger.Error(ctx).Err(err).Msg("Failed to load images")
		return nil, moderation.Failure(catalogUnavailable)
	}
	return records, moderation.Toast{}
}

func (h *Handler) homeHandler(w http.ResponseWriter, r *http.Request) {
	records, toast := h.records(r.Context())

	news := gallery.News(records)
	slide, _ := strconv.Atoi(r.URL.Query().Get("noticia"))

	h.pageWithToast(w, r, http.StatusOK, "home", "Inicio", render.HomeView{
		Latest:   gallery.LatestPublished(records, latestCount),
		News:     news,
		Carousel: gallery.NewCarousel(slide, len(news)),
	}, toast)
}

func (h *Handler) galleryHandler(w http.ResponseWriter, r *http.Request) {
	records, toast := h.records(r.Context())

	query := r.URL.Query()
	sortKey := gallery.ParseSortKey(query.Get("orden"))
	visible := gallery.Apply(gallery.PublicGallery(records), gallery.Query{
		Term:        query.Get("q"),
		Status:      gallery.StatusAll,
		Sort:        sortKey,
		MatchAuthor: true,
	})

	if isHTMX(r) {
		h.cards(w, r, visible, false)
		return
	}

	view := render.GalleryView{Records: visible, Term: query.Get("q"), Sort: sortKey}
	if foto, err := strconv.Atoi(query.Get("foto")); err == nil {
		view.Modal = gallery.NewCarousel(foto, len(visible))
	}
	h.pageWithToast(w, r, http.StatusOK, "gallery", "Galería", view, toast)
}

func (h *Handler) mapHandler(w http.ResponseWriter, r *http.Request) {
	records, toast := h.records(r.Context())

	view := render.MapView{Points: []gallery.Marker{}}
	for _, rec := range gallery.MapPoints(records) {
		title := rec.PlantaID
		if title == "" {
			title = render.UntitledPublic
		}
		view.Points = append(view.Points, gallery.Marker{
			Lat:    *rec.Lat,
			Lng:    *rec.Lng,
			Titulo: title,
			Fecha:  rec.UploadedAt(),
		})
	}
	if marker, ok := h.session(r).Values[keyMarker].(gallery.Marker); ok {
		view.Marker = &marker
	}

	h.pageWithToast(w, r, http.StatusOK, "map", "Mapa", view, toast)
}

func (h *Handler) subscribeFormHandler(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusOK, "subscribe", "Suscripción", render.SubscribeView{})
}

func (h *Handler) subscribeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := subscriber.SubscribeRequest{
		Nombre: r.PostFormValue("nombre"),
		Email:  r.PostFormValue("email"),
	}

	result, err := h.services.Subscriptions().Subscribe(ctx, req)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, subscriber.ErrFieldsRequired) || errors.Is(err, subscriber.ErrInvalidEmail) {
			status = http.StatusUnprocessableEntity
		} else {
			h.logger.Error(ctx).Err(err).Msg("Subscription failed")
		}
		h.page(w, r, status, "subscribe", "Suscripción", render.SubscribeView{
			Nombre: req.Nombre,
			Email:  req.Email,
			Error:  subscriber.Message(err),
		})
		return
	}

	h.redirect(w, r, "/suscripcion", moderation.Success(result.Message()))
}
