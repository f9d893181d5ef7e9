package model

import "time"

// Submission wizard steps, in order.
const (
	StepDetails  = "details"
	StepAccount  = "account"
	StepPreview  = "preview"
	StepCheckout = "checkout"
)

// SubmissionDraft is the server-side state of the listing submission wizard
// between the details step and the payment redirect.
type SubmissionDraft struct {
	ID                string    `json:"id"`
	Step              string    `json:"step"`
	Listing           Listing   `json:"listing"`
	UserID            string    `json:"user_id,omitempty"`
	ListingID         string    `json:"listing_id,omitempty"`
	SubscriptionID    string    `json:"subscription_id,omitempty"`
	CheckoutSessionID string    `json:"checkout_session_id,omitempty"`
	CheckoutURL       string    `json:"checkout_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
