package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"rental-marketplace/internal/model"
)

type ApplicationRepository struct {
	db *sqlx.DB
}

func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Insert saves a new application and fills in the server-side created_at.
func (r *ApplicationRepository) Insert(ctx context.Context, a *model.Application) error {
	const insertQuery = `
        INSERT INTO applications
            (id, listing_id, applicant_id, full_name, email, phone, move_in_date, annual_income, message, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING created_at, updated_at
    `
	err := r.db.QueryRowxContext(ctx, insertQuery,
		a.ID,
		a.ListingID,
		a.ApplicantID,
		a.FullName,
		a.Email,
		a.Phone,
		a.MoveInDate,
		a.AnnualIncome,
		a.Message,
		a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("ApplicationRepository.Insert: %w", err)
	}
	return nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*model.Application, error) {
	var a model.Application
	err := r.db.GetContext(ctx, &a, `SELECT * FROM applications WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ApplicationRepository.GetByID: %w", err)
	}
	return &a, nil
}

// FindByListing returns all applications for a listing, newest first.
func (r *ApplicationRepository) FindByListing(ctx context.Context, listingID string) ([]model.Application, error) {
	var out []model.Application
	err := r.db.SelectContext(ctx, &out, `
		SELECT * FROM applications
		WHERE listing_id = $1
		ORDER BY created_at DESC
	`, listingID)
	if err != nil {
		return nil, fmt.Errorf("ApplicationRepository.FindByListing: %w", err)
	}
	return out, nil
}

func (r *ApplicationRepository) FindByApplicant(ctx context.Context, applicantID string) ([]model.Application, error) {
	var out []model.Application
	err := r.db.SelectContext(ctx, &out, `
		SELECT * FROM applications
		WHERE applicant_id = $1
		ORDER BY created_at DESC
	`, applicantID)
	if err != nil {
		return nil, fmt.Errorf("ApplicationRepository.FindByApplicant: %w", err)
	}
	return out, nil
}

// HasOpen reports whether the applicant already has an undecided application for the listing.
func (r *ApplicationRepository) HasOpen(ctx context.Context, listingID, applicantID string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(1) FROM applications
		WHERE listing_id = $1 AND applicant_id = $2 AND status IN ('submitted', 'reviewing')
	`, listingID, applicantID)
	if err != nil {
		return false, fmt.Errorf("ApplicationRepository.HasOpen: %w", err)
	}
	return count > 0, nil
}

// CountPendingForOwner counts submitted applications across the owner's listings.
func (r *ApplicationRepository) CountPendingForOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(1) FROM applications a
		JOIN listings l ON l.id = a.listing_id
		WHERE l.owner_id = $1 AND a.status = 'submitted'
	`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("ApplicationRepository.CountPendingForOwner: %w", err)
	}
	return count, nil
}

func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("ApplicationRepository.UpdateStatus: %w", err)
	}
	return expectOne(res, "ApplicationRepository.UpdateStatus")
}
