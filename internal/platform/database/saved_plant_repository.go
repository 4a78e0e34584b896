package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cuenca-ubate/internal/domain/identification"
)

// SavedPlantRepository implements identification.SavedPlantRepository on Postgres
type SavedPlantRepository struct {
	db *sql.DB
}

// NewSavedPlantRepository creates a saved plant repository
func NewSavedPlantRepository(db *sql.DB) *SavedPlantRepository {
	return &SavedPlantRepository{db: db}
}

const savedPlantColumns = `id, name, common_name, image_key, thumbnail_key, date_saved, probability, sources, status`

// Create stores a plant
func (r *SavedPlantRepository) Create(ctx context.Context, plant identification.SavedPlant) error {
	query := `
		INSERT INTO saved_plants (` + savedPlantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var thumb sql.NullString
	if plant.ThumbnailKey != "" {
		thumb = sql.NullString{String: plant.ThumbnailKey, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		plant.ID,
		plant.Name,
		plant.CommonName,
		plant.ImageKey,
		thumb,
		plant.DateSaved,
		plant.Probability,
		Sources(plant.Sources),
		plant.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to save plant: %w", err)
	}
	return nil
}

// List returns the collection, most recently saved first
func (r *SavedPlantRepository) List(ctx context.Context) ([]identification.SavedPlant, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+savedPlantColumns+` FROM saved_plants ORDER BY date_saved DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved plants: %w", err)
	}
	defer rows.Close()

	plants := []identification.SavedPlant{}
	for rows.Next() {
		plant, err := scanSavedPlant(rows)
		if err != nil {
			return nil, err
		}
		plants = append(plants, plant)
	}
	return plants, rows.Err()
}

// GetByID returns one plant or identification.ErrPlantNotFound
func (r *SavedPlantRepository) GetByID(ctx context.Context, id string) (identification.SavedPlant, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+savedPlantColumns+` FROM saved_plants WHERE id = $1`, id)
	plant, err := scanSavedPlant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return identification.SavedPlant{}, fmt.Errorf("%w: %s", identification.ErrPlantNotFound, id)
	}
	return plant, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSavedPlant(s scanner) (identification.SavedPlant, error) {
	var (
		plant   identification.SavedPlant
		thumb   sql.NullString
		sources Sources
	)
	err := s.Scan(
		&plant.ID,
		&plant.Name,
		&plant.CommonName,
		&plant.ImageKey,
		&thumb,
		&plant.DateSaved,
		&plant.Probability,
		&sources,
		&plant.Status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return plant, err
		}
		return plant, fmt.Errorf("failed to scan saved plant: %w", err)
	}
	plant.ThumbnailKey = thumb.String
	plant.Sources = []identification.Source(sources)
	return plant, nil
}
