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

type SubscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, s *model.SubscriptionStatus) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO subscriptions
			(id, listing_id, user_id, status, checkout_session_id, amount_cents, currency,
			 current_period_end, created_at, updated_at)
		VALUES
			(:id, :listing_id, :user_id, :status, :checkout_session_id, :amount_cents, :currency,
			 :current_period_end, :created_at, :updated_at)
	`, s)
	if err != nil {
		return fmt.Errorf("SubscriptionRepository.Create: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) SetCheckoutSession(ctx context.Context, id, sessionID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET checkout_session_id = $1, updated_at = $2 WHERE id = $3`,
		sessionID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("SubscriptionRepository.SetCheckoutSession: %w", err)
	}
	return expectOne(res, "SubscriptionRepository.SetCheckoutSession")
}

// LatestForListing returns the most recent subscription record for a listing.
func (r *SubscriptionRepository) LatestForListing(ctx context.Context, listingID string) (*model.SubscriptionStatus, error) {
	var s model.SubscriptionStatus
	err := r.db.GetContext(ctx, &s, `
		SELECT * FROM subscriptions
		WHERE listing_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("SubscriptionRepository.LatestForListing: %w", err)
	}
	return &s, nil
}

// Activate records the payment on the subscription and publishes its listing
// in one transaction. The listing is only published while it is still
// pending; otherwise the subscription is activated and published is false.
func (r *SubscriptionRepository) Activate(ctx context.Context, a model.Activation) (published bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("SubscriptionRepository.BeginTxx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now()
	var listingID string
	err = tx.GetContext(ctx, &listingID, `
		UPDATE subscriptions
		SET status = 'active',
		    checkout_session_id = $1,
		    amount_cents = $2,
		    currency = COALESCE(NULLIF($3, ''), currency),
		    current_period_end = $4,
		    updated_at = $5
		WHERE id = $6
		RETURNING listing_id
	`, a.CheckoutSessionID, a.AmountCents, a.Currency, a.PeriodEnd, now, a.SubscriptionID)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return false, err
	}
	if err != nil {
		return false, fmt.Errorf("SubscriptionRepository activate: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE listings
		SET status = $1, updated_at = $2, published_at = $2
		WHERE id = $3 AND status = $4
	`, model.ListingPublished, now, listingID, model.ListingPending)
	if err != nil {
		return false, fmt.Errorf("SubscriptionRepository publish: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("SubscriptionRepository publish: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("SubscriptionRepository commit: %w", err)
	}
	return n == 1, nil
}

// ExpireDue expires active subscriptions whose period ended before now and
// archives their published listings. It returns the affected listing ids.
func (r *SubscriptionRepository) ExpireDue(ctx context.Context, now time.Time) (listingIDs []string, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("SubscriptionRepository.BeginTxx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	err = tx.SelectContext(ctx, &listingIDs, `
		UPDATE subscriptions
		SET status = 'expired', updated_at = $1
		WHERE status = 'active' AND current_period_end <= $1
		RETURNING listing_id
	`, now)
	if err != nil {
		return nil, fmt.Errorf("SubscriptionRepository expire: %w", err)
	}

	if len(listingIDs) > 0 {
		var query string
		var args []interface{}
		query, args, err = sqlx.In(`
			UPDATE listings SET status = 'archived', updated_at = ?
			WHERE status = 'published' AND id IN (?)
		`, now, listingIDs)
		if err != nil {
			return nil, fmt.Errorf("SubscriptionRepository archive: %w", err)
		}
		if _, err = tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("SubscriptionRepository archive: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("SubscriptionRepository commit: %w", err)
	}
	return listingIDs, nil
}
