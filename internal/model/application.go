package model

import "time"

const (
	ApplicationSubmitted = "submitted"
	ApplicationReviewing = "reviewing"
	ApplicationAccepted  = "accepted"
	ApplicationRejected  = "rejected"
	ApplicationWithdrawn = "withdrawn"
)

// Application is a prospective tenant's request to rent a listing.
type Application struct {
	ID           string     `db:"id" json:"id"`
	ListingID    string     `db:"listing_id" json:"listing_id"`
	ApplicantID  string     `db:"applicant_id" json:"applicant_id"`
	FullName     string     `db:"full_name" json:"full_name"`
	Email        string     `db:"email" json:"email"`
	Phone        string     `db:"phone" json:"phone,omitempty"`
	MoveInDate   *time.Time `db:"move_in_date" json:"move_in_date,omitempty"`
	AnnualIncome *float64   `db:"annual_income" json:"annual_income,omitempty"`
	Message      string     `db:"message" json:"message,omitempty"`
	Status       string     `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// IsOpen reports whether the application is still awaiting a decision.
func (a *Application) IsOpen() bool {
	return a.Status == ApplicationSubmitted || a.Status == ApplicationReviewing
}

var applicationTransitions = map[string][]string{
	ApplicationSubmitted: {ApplicationReviewing, ApplicationAccepted, ApplicationRejected, ApplicationWithdrawn},
	ApplicationReviewing: {ApplicationAccepted, ApplicationRejected, ApplicationWithdrawn},
}

// CanTransitionApplication reports whether an application may move from one status to another.
func CanTransitionApplication(from, to string) bool {
	for _, s := range applicationTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
