package model

import "time"

const (
	SubscriptionPending  = "pending"
	SubscriptionActive   = "active"
	SubscriptionExpired  = "expired"
	SubscriptionCanceled = "canceled"
)

// SubscriptionStatus is the time-bounded payment record that gates whether a
// listing is publicly visible.
type SubscriptionStatus struct {
	ID                string     `db:"id" json:"id"`
	ListingID         string     `db:"listing_id" json:"listing_id"`
	UserID            string     `db:"user_id" json:"user_id"`
	Status            string     `db:"status" json:"status"`
	CheckoutSessionID string     `db:"checkout_session_id" json:"checkout_session_id,omitempty"`
	AmountCents       int64      `db:"amount_cents" json:"amount_cents"`
	Currency          string     `db:"currency" json:"currency"`
	CurrentPeriodEnd  *time.Time `db:"current_period_end" json:"current_period_end,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// ActiveAt reports whether the subscription grants visibility at t.
func (s *SubscriptionStatus) ActiveAt(t time.Time) bool {
	if s.Status != SubscriptionActive || s.CurrentPeriodEnd == nil {
		return false
	}
	return t.Before(*s.CurrentPeriodEnd)
}

// Badge is the summary shown next to a listing owner's listing.
type Badge struct {
	Status           string     `json:"status"`
	Active           bool       `json:"active"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
}

// Activation is a completed payment applied to a pending subscription.
type Activation struct {
	SubscriptionID    string
	CheckoutSessionID string
	AmountCents       int64
	Currency          string
	PeriodEnd         time.Time
}
