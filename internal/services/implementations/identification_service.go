package implementations

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cuenca-ubate/internal/domain/identification"
	"cuenca-ubate/internal/observability"
	"cuenca-ubate/internal/platform/backend"
	"cuenca-ubate/internal/platform/storage"
)

const (
	thumbnailSize = 320

	savedIdentifiedNotice   = "¡Planta guardada correctamente en Supabase! La imagen y los datos se han almacenado exitosamente."
	savedUnidentifiedNotice = "¡Imagen guardada correctamente en Supabase! La imagen se ha almacenado exitosamente."
	uploadFallbackMessage   = "Error al guardar en Supabase"
)

// PhotoProcessor validates pictures and makes thumbnails
type PhotoProcessor interface {
	Inspect(data []byte, contentType string) (storage.ImageInfo, error)
	Thumbnail(data []byte, maxWidth, maxHeight int) ([]byte, string, error)
}

// IdentificationService drives the per-visitor identification flow. Staged
// pictures live in the photo store, flows in the short-lived flow store.
type IdentificationService struct {
	flows      identification.FlowStore
	photos     identification.PhotoStore
	identifier identification.Identifier
	uploader   identification.Uploader
	plants     identification.SavedPlantRepository // can be nil
	processor  PhotoProcessor
	logger     *observability.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// IdentificationDeps groups the collaborators of the identification service
type IdentificationDeps struct {
	Flows      identification.FlowStore
	Photos     identification.PhotoStore
	Identifier identification.Identifier
	Uploader   identification.Uploader
	Plants     identification.SavedPlantRepository
	Processor  PhotoProcessor
	Logger     *observability.Logger
}

// NewIdentificationService creates the identification service
func NewIdentificationService(deps IdentificationDeps) *IdentificationService {
	logger := deps.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &IdentificationService{
		flows:      deps.Flows,
		photos:     deps.Photos,
		identifier: deps.Identifier,
		uploader:   deps.Uploader,
		plants:     deps.Plants,
		processor:  deps.Processor,
		logger:     logger,
		tracer:     otel.Tracer("cuenca-ubate/services"),
		now:        time.Now,
	}
}

var _ identification.Service = (*IdentificationService)(nil)

// Start opens a new idle flow
func (s *IdentificationService) Start(ctx context.Context) (identification.Flow, error) {
	flow := identification.NewFlow(uuid.NewString(), s.now())
	if err := s.flows.Save(ctx, flow); err != nil {
		return identification.Flow{}, fmt.Errorf("failed to start identification: %w", err)
	}
	return flow, nil
}

// Get loads a flow
func (s *IdentificationService) Get(ctx context.Context, flowID string) (identification.Flow, error) {
	return s.flows.Get(ctx, flowID)
}

// SelectPhoto stages a picture and drops any previous result
func (s *IdentificationService) SelectPhoto(ctx context.Context, flowID string, photo identification.PhotoUpload) (identification.Flow, error) {
	flow, err := s.flows.Get(ctx, flowID)
	if err != nil {
		return identification.Flow{}, err
	}

	info, err := s.processor.Inspect(photo.Data, photo.ContentType)
	if err != nil {
		s.logger.Info(ctx).Err(err).Str("flow_id", flowID).Msg("Rejected picture")
		flow.Failed(identification.Message(err), s.now())
		return s.persist(ctx, flow, err)
	}

	key := storage.StagedKey(flow.ID, photo.Filename)
	if flow.Photo != nil && flow.Photo.Key != key {
		s.discard(ctx, flow.Photo.Key)
	}
	if err := s.photos.Put(ctx, key, photo.Data, info.ContentType); err != nil {
		return flow, fmt.Errorf("failed to stage picture: %w", err)
	}

	flow.SelectImage(identification.Photo{
		Key:         key,
		Filename:    photo.Filename,
		ContentType: info.ContentType,
		Size:        int64(len(photo.Data)),
	}, s.now())
	return s.persist(ctx, flow, nil)
}

// Identify sends the staged picture to the identification API
func (s *IdentificationService) Identify(ctx context.Context, flowID string) (identification.Flow, error) {
	ctx, span := s.tracer.Start(ctx, "identification.Identify",
		trace.WithAttributes(attribute.String("flow.id", flowID)))
	defer span.End()

	flow, err := s.flows.Get(ctx, flowID)
	if err != nil {
		return identification.Flow{}, err
	}
	if !flow.CanIdentify() {
		flow.Failed(identification.Message(identification.ErrNoImage), s.now())
		return s.persist(ctx, flow, identification.ErrNoImage)
	}

	data, err := s.photos.Get(ctx, flow.Photo.Key)
	if err != nil {
		return s.fail(ctx, span, flow, fmt.Errorf("failed to read staged picture: %w", err))
	}

	result, err := s.identifier.Identify(ctx, bytes.NewReader(data), flow.Photo.Filename)
	if err != nil {
		return s.fail(ctx, span, flow, err)
	}

	if err := flow.Identified(result, s.now()); err != nil {
		return s.fail(ctx, span, flow, err)
	}
	span.SetAttributes(
		attribute.String("plant.name", result.ScientificName),
		attribute.Float64("plant.score", result.Score),
	)
	s.logger.Info(ctx).Str("flow_id", flowID).Str("plant", result.ScientificName).Float64("score", result.Score).Msg("Plant identified")
	return s.persist(ctx, flow, nil)
}

func (s *IdentificationService) fail(ctx context.Context, span trace.Span, flow identification.Flow, err error) (identification.Flow, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.Warn(ctx).Err(err).Str("flow_id", flow.ID).Msg("Identification failed")
	flow.Failed(identification.Message(err), s.now())
	return s.persist(ctx, flow, err)
}

// Save stores the identified plant in the collection and uploads it for moderation
func (s *IdentificationService) Save(ctx context.Context, flowID string) (identification.Flow, error) {
	flow, err := s.flows.Get(ctx, flowID)
	if err != nil {
		return identification.Flow{}, err
	}
	if !flow.CanSave() {
		flow.Error = identification.Message(identification.ErrNoResult)
		flow.Notice = ""
		return s.persist(ctx, flow, identification.ErrNoResult)
	}

	data, err := s.photos.Get(ctx, flow.Photo.Key)
	if err != nil {
		return flow, fmt.Errorf("failed to read staged picture: %w", err)
	}

	name := flow.Result.ScientificName
	plantaID := name
	if plantaID == "" {
		plantaID = identification.UnknownPlantName
	}

	id := uuid.NewString()
	plant := identification.NewSavedPlant(id, *flow.Result, storage.PlantKey(id, flow.Photo.Filename), s.now())
	s.keep(ctx, plant, data, flow.Photo.ContentType)

	err = s.uploader.Upload(ctx, identification.UploadRequest{
		Data:          data,
		Filename:      flow.Photo.Filename,
		ContentType:   flow.Photo.ContentType,
		PlantaID:      plantaID,
		NombreUsuario: identification.WebUserName,
		Description:   "Planta identificada: " + name,
	})
	if err != nil {
		s.logger.Error(ctx).Err(err).Str("flow_id", flowID).Msg("Failed to upload identified plant")
		flow.Error = "Error al guardar la planta: " + uploadErrorText(err)
		flow.Notice = ""
		flow.UpdatedAt = s.now()
		return s.persist(ctx, flow, err)
	}

	flow.MarkSaved(savedIdentifiedNotice, s.now())
	return s.persist(ctx, flow, nil)
}

// SaveUnidentified stores the staged picture without an identification
func (s *IdentificationService) SaveUnidentified(ctx context.Context, flowID string) (identification.Flow, error) {
	flow, err := s.flows.Get(ctx, flowID)
	if err != nil {
		return identification.Flow{}, err
	}
	if flow.Photo == nil {
		flow.Failed(identification.Message(identification.ErrNoImage), s.now())
		return s.persist(ctx, flow, identification.ErrNoImage)
	}

	data, err := s.photos.Get(ctx, flow.Photo.Key)
	if err != nil {
		return flow, fmt.Errorf("failed to read staged picture: %w", err)
	}

	id := uuid.NewString()
	s.keep(ctx, identification.NewUnidentifiedPlant(id, storage.PlantKey(id, flow.Photo.Filename), s.now()), data, flow.Photo.ContentType)

	err = s.uploader.Upload(ctx, identification.UploadRequest{
		Data:          data,
		Filename:      flow.Photo.Filename,
		ContentType:   flow.Photo.ContentType,
		PlantaID:      identification.UnidentifiedPlantaID,
		NombreUsuario: identification.WebUserName,
		Description:   "Planta sin identificar - guardada desde la galería",
	})
	flow.UpdatedAt = s.now()
	if err != nil {
		s.logger.Error(ctx).Err(err).Str("flow_id", flowID).Msg("Failed to upload unidentified plant")
		flow.Error = "Error al guardar la imagen: " + uploadErrorText(err)
		flow.Notice = ""
		return s.persist(ctx, flow, err)
	}

	flow.Error = ""
	flow.Notice = savedUnidentifiedNotice
	return s.persist(ctx, flow, nil)
}

// keep adds the plant to the local collection. Failures are logged and never fail the save.
func (s *IdentificationService) keep(ctx context.Context, plant identification.SavedPlant, data []byte, contentType string) {
	if s.plants == nil {
		return
	}

	if err := s.photos.Put(ctx, plant.ImageKey, data, contentType); err != nil {
		s.logger.Warn(ctx).Err(err).Str("plant_id", plant.ID).Msg("Failed to store plant picture")
		return
	}

	thumb, thumbType, err := s.processor.Thumbnail(data, thumbnailSize, thumbnailSize)
	if err != nil {
		s.logger.Warn(ctx).Err(err).Str("plant_id", plant.ID).Msg("Failed to make thumbnail")
	} else if err := s.photos.Put(ctx, storage.ThumbnailKey(plant.ID), thumb, thumbType); err != nil {
		s.logger.Warn(ctx).Err(err).Str("plant_id", plant.ID).Msg("Failed to store thumbnail")
	} else {
		plant.ThumbnailKey = storage.ThumbnailKey(plant.ID)
	}

	if err := s.plants.Create(ctx, plant); err != nil {
		s.logger.Warn(ctx).Err(err).Str("plant_id", plant.ID).Msg("Failed to save plant to the collection")
		return
	}
	s.logger.Info(ctx).Str("plant_id", plant.ID).Str("name", plant.Name).Msg("Plant added to the collection")
}

// Reset discards the staged picture and returns the flow to idle
func (s *IdentificationService) Reset(ctx context.Context, flowID string) (identification.Flow, error) {
	flow, err := s.flows.Get(ctx, flowID)
	if err != nil {
		return identification.Flow{}, err
	}
	if flow.Photo != nil {
		s.discard(ctx, flow.Photo.Key)
	}
	flow.Reset(s.now())
	return s.persist(ctx, flow, nil)
}

// Photo returns the staged picture of a flow
func (s *IdentificationService) Photo(ctx context.Context, flowID string) ([]byte, string, error) {
	flow, err := s.flows.Get(ctx, flowID)
	if err != nil {
		return nil, "", err
	}
	if flow.Photo == nil {
		return nil, "", identification.ErrNoImage
	}
	data, err := s.photos.Get(ctx, flow.Photo.Key)
	if err != nil {
		return nil, "", err
	}
	return data, flow.Photo.ContentType, nil
}

// SavedPlants lists the collection, newest first
func (s *IdentificationService) SavedPlants(ctx context.Context) ([]identification.SavedPlant, error) {
	if s.plants == nil {
		return []identification.SavedPlant{}, nil
	}
	return s.plants.List(ctx)
}

// SavedPlantPhoto returns a collection picture, or its thumbnail when thumb is set and one exists
func (s *IdentificationService) SavedPlantPhoto(ctx context.Context, plantID string, thumb bool) ([]byte, string, error) {
	if s.plants == nil {
		return nil, "", identification.ErrPlantNotFound
	}
	plant, err := s.plants.GetByID(ctx, plantID)
	if err != nil {
		return nil, "", err
	}

	key := plant.ImageKey
	if thumb && plant.ThumbnailKey != "" {
		key = plant.ThumbnailKey
	}
	data, err := s.photos.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return data, http.DetectContentType(data), nil
}

func (s *IdentificationService) discard(ctx context.Context, key string) {
	if err := s.photos.Delete(ctx, key); err != nil {
		s.logger.Warn(ctx).Err(err).Str("key", key).Msg("Failed to delete staged picture")
	}
}

// persist saves the flow and returns it with opErr; a store failure wins over opErr
func (s *IdentificationService) persist(ctx context.Context, flow identification.Flow, opErr error) (identification.Flow, error) {
	if err := s.flows.Save(ctx, flow); err != nil {
		return flow, fmt.Errorf("failed to save identification flow: %w", err)
	}
	return flow, opErr
}

// uploadErrorText is the backend's detail, or a fixed message
func uploadErrorText(err error) string {
	var httpErr *backend.HTTPError
	if errors.As(err, &httpErr) {
		if d := httpErr.Detail(); d != "" {
			return d
		}
	}
	if errors.Is(err, backend.ErrRejected) {
		return errorText(err)
	}
	return uploadFallbackMessage
}
