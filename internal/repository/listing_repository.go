package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"rental-marketplace/internal/model"
)

// ErrNotFound is returned when a lookup or mutation matches no row.
var ErrNotFound = errors.New("not found")

type ListingRepository struct {
	DB *sqlx.DB
}

func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{DB: db}
}

// Create inserts a listing. ID and timestamps are set by the caller.
func (r *ListingRepository) Create(ctx context.Context, l *model.Listing) error {
	_, err := r.DB.NamedExecContext(ctx, `
        INSERT INTO listings
            (id, owner_id, neighborhood_id, title, description, address, unit, latitude, longitude,
             rent, bedrooms, bathrooms, square_feet, available_from, pets_allowed, amenities,
             photo_file_id, status, created_at, updated_at, published_at)
        VALUES
            (:id, :owner_id, :neighborhood_id, :title, :description, :address, :unit, :latitude, :longitude,
             :rent, :bedrooms, :bathrooms, :square_feet, :available_from, :pets_allowed, :amenities,
             :photo_file_id, :status, :created_at, :updated_at, :published_at)
    `, l)
	if err != nil {
		return fmt.Errorf("ListingRepository.Create: %w", err)
	}
	return nil
}

func (r *ListingRepository) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	var l model.Listing
	err := r.DB.GetContext(ctx, &l, `SELECT * FROM listings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ListingRepository.GetByID: %w", err)
	}
	return &l, nil
}

// List returns listings matching the filter, newest first. An empty
// filter status means published.
func (r *ListingRepository) List(ctx context.Context, f model.ListingFilter) ([]model.Listing, error) {
	f.Normalize()
	status := f.Status
	if status == "" {
		status = model.ListingPublished
	}

	query := `SELECT l.* FROM listings l JOIN neighborhoods n ON n.id = l.neighborhood_id WHERE l.status = $1`
	args := []interface{}{status}
	idx := 2

	if f.NeighborhoodID != "" {
		query += fmt.Sprintf(" AND l.neighborhood_id = $%d", idx)
		args = append(args, f.NeighborhoodID)
		idx++
	}
	if f.BoroughID != "" {
		query += fmt.Sprintf(" AND n.borough_id = $%d", idx)
		args = append(args, f.BoroughID)
		idx++
	}
	if f.MinRent != nil {
		query += fmt.Sprintf(" AND l.rent >= $%d", idx)
		args = append(args, *f.MinRent)
		idx++
	}
	if f.MaxRent != nil {
		query += fmt.Sprintf(" AND l.rent <= $%d", idx)
		args = append(args, *f.MaxRent)
		idx++
	}
	if f.MinBedrooms != nil {
		query += fmt.Sprintf(" AND l.bedrooms >= $%d", idx)
		args = append(args, *f.MinBedrooms)
		idx++
	}
	if f.PetsAllowed != nil {
		query += fmt.Sprintf(" AND l.pets_allowed = $%d", idx)
		args = append(args, *f.PetsAllowed)
		idx++
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		query += fmt.Sprintf(" AND (l.title ILIKE $%d OR l.description ILIKE $%d)", idx, idx)
		args = append(args, "%"+q+"%")
		idx++
	}

	query += fmt.Sprintf(" ORDER BY l.created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, f.Limit, f.Offset)

	var listings []model.Listing
	if err := r.DB.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, fmt.Errorf("ListingRepository.List: %w", err)
	}
	return listings, nil
}

func (r *ListingRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Listing, error) {
	var list []model.Listing
	err := r.DB.SelectContext(ctx, &list, `
		SELECT * FROM listings
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ListingRepository.ListByOwner: %w", err)
	}
	return list, nil
}

func (r *ListingRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM listings WHERE id IN (?) ORDER BY created_at DESC`, ids)
	if err != nil {
		return nil, fmt.Errorf("ListingRepository.GetByIDs: %w", err)
	}
	var list []model.Listing
	if err := r.DB.SelectContext(ctx, &list, r.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("ListingRepository.GetByIDs: %w", err)
	}
	return list, nil
}

// Update saves the editable fields of a listing. Status moves through UpdateStatus.
func (r *ListingRepository) Update(ctx context.Context, l *model.Listing) error {
	res, err := r.DB.NamedExecContext(ctx, `
        UPDATE listings SET
            neighborhood_id = :neighborhood_id,
            title           = :title,
            description     = :description,
            address         = :address,
            unit            = :unit,
            latitude        = :latitude,
            longitude       = :longitude,
            rent            = :rent,
            bedrooms        = :bedrooms,
            bathrooms       = :bathrooms,
            square_feet     = :square_feet,
            available_from  = :available_from,
            pets_allowed    = :pets_allowed,
            amenities       = :amenities,
            updated_at      = :updated_at
        WHERE id = :id
    `, l)
	if err != nil {
		return fmt.Errorf("ListingRepository.Update: %w", err)
	}
	return expectOne(res, "ListingRepository.Update")
}

// UpdateStatus sets the listing status. Publishing stamps published_at.
// Archiving also cancels the listing's pending or active subscriptions so the
// badge stops reporting a paid listing.
func (r *ListingRepository) UpdateStatus(ctx context.Context, id, status string) (err error) {
	if status != model.ListingArchived {
		return updateListingStatus(ctx, r.DB, id, status, time.Now())
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ListingRepository.BeginTxx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now()
	if err = updateListingStatus(ctx, tx, id, status, now); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = $1, updated_at = $2
		WHERE listing_id = $3 AND status IN ($4, $5)
	`, model.SubscriptionCanceled, now, id, model.SubscriptionPending, model.SubscriptionActive)
	if err != nil {
		return fmt.Errorf("ListingRepository.UpdateStatus: cancel subscriptions: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ListingRepository.UpdateStatus: commit: %w", err)
	}
	return nil
}

func updateListingStatus(ctx context.Context, ex sqlx.ExecerContext, id, status string, now time.Time) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE listings
		SET status = $1,
		    updated_at = $2,
		    published_at = CASE WHEN $1 = 'published' THEN $2 ELSE published_at END
		WHERE id = $3
	`, status, now, id)
	if err != nil {
		return fmt.Errorf("ListingRepository.UpdateStatus: %w", err)
	}
	return expectOne(res, "ListingRepository.UpdateStatus")
}

func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ListingRepository.Delete: %w", err)
	}
	return expectOne(res, "ListingRepository.Delete")
}

func (r *ListingRepository) Exists(ctx context.Context, listingID string) (bool, error) {
	var count int
	const q = `SELECT COUNT(1) FROM listings WHERE id = $1`
	if err := r.DB.GetContext(ctx, &count, q, listingID); err != nil {
		return false, fmt.Errorf("ListingRepository.Exists: %w", err)
	}
	return count > 0, nil
}

func (r *ListingRepository) UpdatePhotoFileID(ctx context.Context, listingID string, fileID string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE listings SET photo_file_id = $1, updated_at = NOW() WHERE id = $2`, fileID, listingID)
	if err != nil {
		return fmt.Errorf("ListingRepository.UpdatePhotoFileID: %w", err)
	}
	return expectOne(res, "ListingRepository.UpdatePhotoFileID")
}

func expectOne(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
