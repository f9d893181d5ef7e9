package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"rental-marketplace/internal/model"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate")

type ProfileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Create(ctx context.Context, p *model.UserProfile) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO profiles
			(id, email, full_name, phone, role, email_verified, password_hash, created_at, updated_at)
		VALUES
			(:id, :email, :full_name, :phone, :role, :email_verified, :password_hash, :created_at, :updated_at)
	`, p)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("ProfileRepository.Create: %w", err)
	}
	return nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*model.UserProfile, error) {
	return r.getOne(ctx, `SELECT * FROM profiles WHERE id = $1`, id)
}

func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	return r.getOne(ctx, `SELECT * FROM profiles WHERE lower(email) = lower($1)`, email)
}

func (r *ProfileRepository) getOne(ctx context.Context, query string, arg string) (*model.UserProfile, error) {
	var p model.UserProfile
	err := r.db.GetContext(ctx, &p, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ProfileRepository.get: %w", err)
	}
	return &p, nil
}

func (r *ProfileRepository) List(ctx context.Context, limit, offset int) ([]model.UserProfile, error) {
	var out []model.UserProfile
	err := r.db.SelectContext(ctx, &out, `
		SELECT * FROM profiles
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ProfileRepository.List: %w", err)
	}
	return out, nil
}

func (r *ProfileRepository) SetPasswordHash(ctx context.Context, id, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET password_hash = $1, updated_at = $2 WHERE id = $3`, hash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("ProfileRepository.SetPasswordHash: %w", err)
	}
	return expectOne(res, "ProfileRepository.SetPasswordHash")
}

func (r *ProfileRepository) MarkEmailVerified(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET email_verified = TRUE, updated_at = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("ProfileRepository.MarkEmailVerified: %w", err)
	}
	return expectOne(res, "ProfileRepository.MarkEmailVerified")
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
