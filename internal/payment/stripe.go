package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// EventCheckoutCompleted is the only provider event that changes marketplace state.
const EventCheckoutCompleted = "checkout.session.completed"

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// CheckoutRequest describes the listing being paid for.
type CheckoutRequest struct {
	ListingID      string
	UserID         string
	SubmissionID   string
	SubscriptionID string
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// CompletedCheckout carries the metadata attached at session creation back
// from the provider.
type CompletedCheckout struct {
	SessionID      string
	ListingID      string
	UserID         string
	SubmissionID   string
	SubscriptionID string
	AmountCents    int64
	Currency       string
}

type WebhookEvent struct {
	ID        string
	Type      string
	Completed *CompletedCheckout
}

// StripeGateway creates Checkout sessions and verifies webhook deliveries.
type StripeGateway struct {
	api           *client.API
	priceID       string
	webhookSecret string
}

func NewStripeGateway(secretKey, priceID, webhookSecret string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api, priceID: priceID, webhookSecret: webhookSecret}
}

// CreateCheckoutSession opens a one-off payment session for a listing plan.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(g.priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
	}
	ref := req.SubmissionID
	if ref == "" {
		ref = req.ListingID
	}
	params.ClientReferenceID = stripe.String(ref)
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.AddMetadata("listing_id", req.ListingID)
	params.AddMetadata("user_id", req.UserID)
	params.AddMetadata("submission_id", req.SubmissionID)
	params.AddMetadata("subscription_id", req.SubscriptionID)

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// ParseWebhook verifies the signature header and decodes the event.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	return parseWebhook(payload, signature, g.webhookSecret)
}

func parseWebhook(payload []byte, signature, secret string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if out.Type != EventCheckoutCompleted {
		return out, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("stripe: decode checkout session: %w", err)
	}
	out.Completed = &CompletedCheckout{
		SessionID:      sess.ID,
		ListingID:      sess.Metadata["listing_id"],
		UserID:         sess.Metadata["user_id"],
		SubmissionID:   sess.Metadata["submission_id"],
		SubscriptionID: sess.Metadata["subscription_id"],
		AmountCents:    sess.AmountTotal,
		Currency:       string(sess.Currency),
	}
	return out, nil
}
