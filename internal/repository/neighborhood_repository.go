package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"rental-marketplace/internal/model"
)

type NeighborhoodRepository struct {
	db *sqlx.DB
}

func NewNeighborhoodRepository(db *sqlx.DB) *NeighborhoodRepository {
	return &NeighborhoodRepository{db: db}
}

func (r *NeighborhoodRepository) ListBoroughs(ctx context.Context) ([]model.Borough, error) {
	var out []model.Borough
	if err := r.db.SelectContext(ctx, &out, `SELECT * FROM boroughs ORDER BY name`); err != nil {
		return nil, fmt.Errorf("NeighborhoodRepository.ListBoroughs: %w", err)
	}
	return out, nil
}

// ListNeighborhoods returns all neighborhoods, or only those in boroughID when set.
func (r *NeighborhoodRepository) ListNeighborhoods(ctx context.Context, boroughID string) ([]model.Neighborhood, error) {
	var out []model.Neighborhood
	var err error
	if boroughID == "" {
		err = r.db.SelectContext(ctx, &out, `SELECT * FROM neighborhoods ORDER BY name`)
	} else {
		err = r.db.SelectContext(ctx, &out,
			`SELECT * FROM neighborhoods WHERE borough_id = $1 ORDER BY name`, boroughID)
	}
	if err != nil {
		return nil, fmt.Errorf("NeighborhoodRepository.ListNeighborhoods: %w", err)
	}
	return out, nil
}

func (r *NeighborhoodRepository) GetNeighborhood(ctx context.Context, id string) (*model.Neighborhood, error) {
	var n model.Neighborhood
	err := r.db.GetContext(ctx, &n, `SELECT * FROM neighborhoods WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("NeighborhoodRepository.GetNeighborhood: %w", err)
	}
	return &n, nil
}

func (r *NeighborhoodRepository) CreateBorough(ctx context.Context, b *model.Borough) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO boroughs (id, name, slug, created_at)
		VALUES (:id, :name, :slug, :created_at)
	`, b)
	if err != nil {
		return fmt.Errorf("NeighborhoodRepository.CreateBorough: %w", err)
	}
	return nil
}

func (r *NeighborhoodRepository) CreateNeighborhood(ctx context.Context, n *model.Neighborhood) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO neighborhoods (id, borough_id, name, slug, latitude, longitude, created_at)
		VALUES (:id, :borough_id, :name, :slug, :latitude, :longitude, :created_at)
	`, n)
	if err != nil {
		return fmt.Errorf("NeighborhoodRepository.CreateNeighborhood: %w", err)
	}
	return nil
}
