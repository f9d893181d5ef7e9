package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type UserProfile struct {
	ID            string    `db:"id" json:"id"`
	Email         string    `db:"email" json:"email"`
	FullName      string    `db:"full_name" json:"full_name"`
	Phone         string    `db:"phone" json:"phone,omitempty"`
	Role          string    `db:"role" json:"role"`
	EmailVerified bool      `db:"email_verified" json:"email_verified"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

func (p *UserProfile) IsAdmin() bool { return p.Role == RoleAdmin }

// SavedListing marks a listing as bookmarked by a user.
type SavedListing struct {
	UserID    string    `db:"user_id" json:"user_id"`
	ListingID string    `db:"listing_id" json:"listing_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
