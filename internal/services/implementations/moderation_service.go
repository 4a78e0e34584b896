package implementations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cuenca-ubate/internal/domain/gallery"
	"cuenca-ubate/internal/domain/moderation"
	"cuenca-ubate/internal/observability"
	"cuenca-ubate/internal/platform/backend"
)

// ModerationService runs admin operations on image records and refetches the list afterwards
type ModerationService struct {
	backend gallery.Backend
	catalog gallery.CatalogService
	logger  *observability.Logger
}

// NewModerationService creates a moderation service
func NewModerationService(b gallery.Backend, catalog gallery.CatalogService, logger *observability.Logger) *ModerationService {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &ModerationService{backend: b, catalog: catalog, logger: logger}
}

var _ moderation.Service = (*ModerationService)(nil)

// ChangeStatus moves a record to another moderation state
func (s *ModerationService) ChangeStatus(ctx context.Context, id int, status string, confirmed bool) (moderation.Outcome, error) {
	st, err := gallery.ParseStatus(status)
	if err != nil {
		return moderation.Outcome{Toast: moderation.Failure(moderation.Message(err))}, err
	}
	if !confirmed {
		return unconfirmed()
	}

	if err := s.backend.ChangeStatus(ctx, id, st); err != nil {
		s.logger.Error(ctx).Err(err).Int("image_id", id).Str("status", string(st)).Msg("Failed to change image status")
		return moderation.Outcome{Toast: moderation.Failure("Error al cambiar estado: " + errorText(err))}, err
	}

	s.logger.Info(ctx).Int("image_id", id).Str("status", string(st)).Msg("Image status changed")
	out := s.refetch(ctx, moderation.Success("Estado cambiado a "+moderation.StatusLabel(st)))
	out.OfferBroadcast = st == gallery.StatusPublished
	return out, nil
}

// EditRecord validates the form and updates the record
func (s *ModerationService) EditRecord(ctx context.Context, id int, form moderation.EditForm) (moderation.Outcome, error) {
	edit, err := form.Validate()
	if err != nil {
		return moderation.Outcome{Toast: moderation.Failure(moderation.Message(err))}, err
	}

	if err := s.backend.EditImage(ctx, id, edit); err != nil {
		s.logger.Error(ctx).Err(err).Int("image_id", id).Msg("Failed to edit image")
		return moderation.Outcome{Toast: moderation.Failure("Error al editar la imagen: " + errorText(err))}, err
	}

	s.logger.Info(ctx).Int("image_id", id).Msg("Image edited")
	return s.refetch(ctx, moderation.Success("Imagen actualizada correctamente")), nil
}

// DeleteRecord removes a record permanently
func (s *ModerationService) DeleteRecord(ctx context.Context, id int, confirmed bool) (moderation.Outcome, error) {
	if !confirmed {
		return unconfirmed()
	}

	if err := s.backend.DeleteImage(ctx, id); err != nil {
		s.logger.Error(ctx).Err(err).Int("image_id", id).Msg("Failed to delete image")
		return moderation.Outcome{Toast: moderation.Failure("Error al eliminar: " + errorText(err))}, err
	}

	s.logger.Info(ctx).Int("image_id", id).Msg("Image deleted")
	return s.refetch(ctx, moderation.Success("Imagen eliminada")), nil
}

// refetch replaces the snapshot after a successful mutation. A failed refetch
// keeps the success toast and leaves Records nil.
func (s *ModerationService) refetch(ctx context.Context, toast moderation.Toast) moderation.Outcome {
	if err := s.catalog.Invalidate(ctx); err != nil {
		s.logger.Warn(ctx).Err(err).Msg("Failed to invalidate image list")
	}
	records, err := s.catalog.Refresh(ctx)
	if err != nil {
		s.logger.Warn(ctx).Err(err).Msg("Failed to reload images after update")
		return moderation.Outcome{Toast: toast}
	}
	return moderation.Outcome{Toast: toast, Records: records}
}

func unconfirmed() (moderation.Outcome, error) {
	return moderation.Outcome{Toast: moderation.Warning("Operación cancelada: se requiere confirmación")},
		moderation.ErrConfirmationRequired
}

// errorText is the message shown after "Error al ...: "
func errorText(err error) string {
	if errors.Is(err, backend.ErrRejected) {
		msg := err.Error()
		if i := strings.Index(msg, backend.ErrRejected.Error()); i >= 0 {
			msg = strings.TrimPrefix(msg[i+len(backend.ErrRejected.Error()):], ": ")
		}
		if strings.TrimSpace(msg) == "" {
			return "Error desconocido"
		}
		return msg
	}
	var httpErr *backend.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Error()
	}
	return fmt.Sprint(err)
}
