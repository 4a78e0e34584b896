package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"

	"cuenca-ubate/internal/domain/identification"
	"cuenca-ubate/internal/domain/moderation"
	"cuenca-ubate/internal/platform/storage"
	"cuenca-ubate/internal/web/render"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxMemoryPerUpload = 1 << 20 // 1MB in memory, the rest spills to disk
	sniffLength        = 512
)

// flowOperation is one of the identification service's flow transitions
type flowOperation func(identification.Service, context.Context, string) (identification.Flow, error)

// identifyStartHandler resumes the visitor's flow or opens a new one
func (h *Handler) identifyStartHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	svc := h.services.Identification()
	session := h.session(r)

	if id, ok := session.Values[keyFlow].(string); ok && id != "" {
		if _, err := svc.Get(ctx, id); err == nil {
			http.Redirect(w, r, "/identificador/"+id, http.StatusSeeOther)
			return
		}
	}

	flow, err := svc.Start(ctx)
	if err != nil {
		h.logger.Error(ctx).Err(err).Msg("Failed to start identification flow")
		h.fail(w, r, http.StatusServiceUnavailable, "El identificador no está disponible en este momento")
		return
	}
	session.Values[keyFlow] = flow.ID
	h.saveSession(w, r, session)
	http.Redirect(w, r, "/identificador/"+flow.ID, http.StatusSeeOther)
}

func (h *Handler) identifyPageHandler(w http.ResponseWriter, r *http.Request) {
	flow, err := h.services.Identification().Get(r.Context(), chi.URLParam(r, "flow"))
	if err != nil {
		h.afterFlow(w, r, flow, err)
		return
	}
	h.page(w, r, http.StatusOK, "identify", "Identificador de plantas", render.IdentifyView{Flow: flow})
}

func (h *Handler) stagedPhotoHandler(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := h.services.Identification().Photo(r.Context(), chi.URLParam(r, "flow"))
	h.writePhoto(w, r, data, contentType, err)
}

// selectPhotoHandler stages the uploaded picture in the visitor's flow
func (h *Handler) selectPhotoHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SelectPhoto", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	r.Body = http.MaxBytesReader(w, r.Body, h.config.Storage.MaxUploadSize)
	if err := r.ParseMultipartForm(maxMemoryPerUpload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse multipart form")
		h.logger.Warn(ctx).Err(err).Msg("Failed to parse multipart form")
		h.redirect(w, r, "/identificador", moderation.Failure("No se pudo leer la imagen. El tamaño máximo es "+formatFileSize(h.config.Storage.MaxUploadSize)))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll() //nolint:errcheck // Cleanup operation
		}
	}()

	flowID := r.FormValue("flow")
	file, header, err := r.FormFile("foto")
	if err != nil {
		h.redirect(w, r, flowURL(flowID), moderation.Warning(identification.Message(identification.ErrNoImage)))
		return
	}
	defer file.Close()

	photo, err := h.readPhoto(file, header)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid upload")
		h.logger.Info(ctx).Err(err).Str("filename", header.Filename).Msg("Rejected upload")
		h.redirect(w, r, flowURL(flowID), moderation.Failure(identification.Message(err)))
		return
	}

	span.SetAttributes(
		attribute.String("upload.filename", photo.Filename),
		attribute.String("upload.content_type", photo.ContentType),
		attribute.Int("upload.size", len(photo.Data)),
	)
	h.logger.Info(ctx).
		Str("flow_id", flowID).
		Str("filename", photo.Filename).
		Int("size", len(photo.Data)).
		Msg("Picture received")

	flow, err := h.services.Identification().SelectPhoto(ctx, flowID, photo)
	h.afterFlow(w, r, flow, err)
}

// readPhoto reads an uploaded file, sniffing its type when the client sent none
func (h *Handler) readPhoto(file multipart.File, header *multipart.FileHeader) (identification.PhotoUpload, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return identification.PhotoUpload{}, fmt.Errorf("failed to read file: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data[:min(len(data), sniffLength)])
	}
	if !isAllowedImageType(contentType, h.config.Storage.AllowedTypes) {
		return identification.PhotoUpload{}, fmt.Errorf("%w: unsupported type %s", identification.ErrInvalidImage, contentType)
	}

	return identification.PhotoUpload{
		Data:        data,
		Filename:    header.Filename,
		ContentType: contentType,
	}, nil
}

// flowAction wraps a flow transition in a POST handler
func (h *Handler) flowAction(op flowOperation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flow, err := op(h.services.Identification(), r.Context(), chi.URLParam(r, "flow"))
		h.afterFlow(w, r, flow, err)
	}
}

// afterFlow sends the visitor back to the flow page. Errors the flow already
// shows inline need no toast.
func (h *Handler) afterFlow(w http.ResponseWriter, r *http.Request, flow identification.Flow, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, identification.ErrFlowNotFound):
		session := h.session(r)
		delete(session.Values, keyFlow)
		h.saveSession(w, r, session)
		h.redirect(w, r, "/identificador", moderation.Warning(identification.Message(err)))
	case err != nil && flow.ID == "":
		h.logger.Error(ctx).Err(err).Msg("Identification flow unavailable")
		h.fail(w, r, http.StatusServiceUnavailable, "El identificador no está disponible en este momento")
	case err != nil && flow.Error == "":
		h.logger.Error(ctx).Err(err).Str("flow_id", flow.ID).Msg("Identification step failed")
		h.redirect(w, r, flowURL(flow.ID), moderation.Failure("Error: "+identification.Message(err)))
	default:
		h.redirect(w, r, flowURL(flow.ID), moderation.Toast{})
	}
}

func (h *Handler) savedPlantsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plants, err := h.services.Identification().SavedPlants(ctx)
	if err != nil {
		h.logger.Error(ctx).Err(err).Msg("Failed to list saved plants")
		h.pageWithToast(w, r, http.StatusOK, "plants", "Mis plantas", render.PlantsView{},
			moderation.Failure("No se pudieron cargar tus plantas"))
		return
	}
	h.page(w, r, http.StatusOK, "plants", "Mis plantas", render.PlantsView{Plants: plants})
}

func (h *Handler) savedPlantPhotoHandler(w http.ResponseWriter, r *http.Request) {
	thumb := r.URL.Query().Get("miniatura") == "si"
	data, contentType, err := h.services.Identification().SavedPlantPhoto(r.Context(), chi.URLParam(r, "id"), thumb)
	h.writePhoto(w, r, data, contentType, err)
}

func (h *Handler) writePhoto(w http.ResponseWriter, r *http.Request, data []byte, contentType string, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, identification.ErrFlowNotFound) || errors.Is(err, identification.ErrNoImage) ||
			errors.Is(err, identification.ErrPlantNotFound) || errors.Is(err, storage.ErrObjectNotFound) {
			status = http.StatusNotFound
		} else {
			h.logger.Error(r.Context()).Err(err).Msg("Failed to read picture")
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(data) //nolint:errcheck // Best effort response
}

func flowURL(flowID string) string {
	if flowID == "" {
		return "/identificador"
	}
	return "/identificador/" + flowID
}

// isAllowedImageType checks the content type against the configured list
func isAllowedImageType(contentType string, allowed []string) bool {
	return contentType != "" && slices.Contains(allowed, contentType)
}

// formatFileSize renders a byte count for messages
func formatFileSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
