package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"cuenca-ubate/internal/domain/gallery"
	"cuenca-ubate/internal/domain/notification"

	"github.com/go-chi/chi/v5"
)

// ErrorResponse is the JSON body of a failed API call
type ErrorResponse struct {
	Error string `json:"error"`
}

// ImagesResponse lists image records
type ImagesResponse struct {
	Images []gallery.ImageRecord `json:"images"`
	Count  int                   `json:"count"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // Best effort response
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func (h *Handler) apiGalleryHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := h.services.Catalog().Records(ctx)
	if err != nil {
		h.logger.Error(ctx).Err(err).Msg("Failed to load images")
		writeError(w, http.StatusBadGateway, catalogUnavailable)
		return
	}

	query := r.URL.Query()
	visible := gallery.Apply(gallery.PublicGallery(records), gallery.Query{
		Term:        query.Get("q"),
		Status:      gallery.StatusAll,
		Sort:        gallery.ParseSortKey(query.Get("orden")),
		MatchAuthor: true,
	})
	writeJSON(w, http.StatusOK, ImagesResponse{Images: visible, Count: len(visible)})
}

func (h *Handler) apiImagesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := h.services.Catalog().Records(ctx)
	if err != nil {
		h.logger.Error(ctx).Err(err).Msg("Failed to load images")
		writeError(w, http.StatusBadGateway, catalogUnavailable)
		return
	}

	filtered := gallery.Apply(records, adminQuery(r))
	writeJSON(w, http.StatusOK, ImagesResponse{Images: filtered, Count: len(filtered)})
}

func (h *Handler) apiStatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := h.services.Catalog().Records(ctx)
	if err != nil {
		h.logger.Error(ctx).Err(err).Msg("Failed to load images")
		writeError(w, http.StatusBadGateway, catalogUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, gallery.ComputeStats(records))
}

func (h *Handler) apiBroadcastHandler(w http.ResponseWriter, r *http.Request) {
	job, err := h.job(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, notification.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "Envío no encontrado")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, job)
	}
}
