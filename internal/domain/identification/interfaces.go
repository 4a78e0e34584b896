package identification

import (
	"context"
	"io"
)

// Identifier asks an external service what plant is in a picture
type Identifier interface {
	Identify(ctx context.Context, image io.Reader, filename string) (Result, error)
}

// FlowStore keeps flows for a short time; Get returns ErrFlowNotFound when absent
type FlowStore interface {
	Get(ctx context.Context, id string) (Flow, error)
	Save(ctx context.Context, flow Flow) error
	Delete(ctx context.Context, id string) error
}

// PhotoStore keeps staged and saved pictures
type PhotoStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// SavedPlantRepository persists the "Mis plantas" collection
type SavedPlantRepository interface {
	Create(ctx context.Context, plant SavedPlant) error
	List(ctx context.Context) ([]SavedPlant, error)
	GetByID(ctx context.Context, id string) (SavedPlant, error)
}

// UploadRequest is a picture submitted to the backend gallery
type UploadRequest struct {
	Data          []byte
	Filename      string
	ContentType   string
	PlantaID      string
	NombreUsuario string
	Description   string
	Lat           *float64
	Lng           *float64
}

// Uploader sends pictures to the backend for moderation
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) error
}

// PhotoUpload is a picture received from the visitor
type PhotoUpload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Service drives the identification flow
type Service interface {
	Start(ctx context.Context) (Flow, error)
	Get(ctx context.Context, flowID string) (Flow, error)
	SelectPhoto(ctx context.Context, flowID string, photo PhotoUpload) (Flow, error)
	Identify(ctx context.Context, flowID string) (Flow, error)
	Save(ctx context.Context, flowID string) (Flow, error)
	SaveUnidentified(ctx context.Context, flowID string) (Flow, error)
	Reset(ctx context.Context, flowID string) (Flow, error)

	// Photo returns the staged picture of a flow
	Photo(ctx context.Context, flowID string) ([]byte, string, error)

	SavedPlants(ctx context.Context) ([]SavedPlant, error)
	// SavedPlantPhoto returns the thumbnail when thumb is set and one exists
	SavedPlantPhoto(ctx context.Context, plantID string, thumb bool) ([]byte, string, error)
}
