package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type SavedListingRepository struct {
	db *sqlx.DB
}

func NewSavedListingRepository(db *sqlx.DB) *SavedListingRepository {
	return &SavedListingRepository{db: db}
}

// Toggle saves the listing for the user, or removes it when already saved.
// It returns the resulting saved state.
func (r *SavedListingRepository) Toggle(ctx context.Context, userID, listingID string) (saved bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("SavedListingRepository.BeginTxx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM saved_listings WHERE user_id = $1 AND listing_id = $2`, userID, listingID)
	if err != nil {
		return false, fmt.Errorf("SavedListingRepository delete: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("SavedListingRepository rows affected: %w", err)
	}

	if removed == 0 {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO saved_listings (user_id, listing_id, created_at) VALUES ($1, $2, $3)`,
			userID, listingID, time.Now()); err != nil {
			return false, fmt.Errorf("SavedListingRepository insert: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("SavedListingRepository commit: %w", err)
	}
	return removed == 0, nil
}

func (r *SavedListingRepository) IsSaved(ctx context.Context, userID, listingID string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(1) FROM saved_listings WHERE user_id = $1 AND listing_id = $2`, userID, listingID)
	if err != nil {
		return false, fmt.Errorf("SavedListingRepository.IsSaved: %w", err)
	}
	return count > 0, nil
}

// ListingIDs returns the ids of the user's saved listings, most recently saved first.
func (r *SavedListingRepository) ListingIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		`SELECT listing_id FROM saved_listings WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("SavedListingRepository.ListingIDs: %w", err)
	}
	return ids, nil
}
