package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/email"
	"rental-marketplace/internal/metrics"
	"rental-marketplace/internal/model"
	"rental-marketplace/internal/payment"
)

// PaymentService applies payment provider webhooks to listings and subscriptions.
type PaymentService struct {
	gateway   CheckoutGateway
	subs      SubscriptionStore
	listings  ListingStore
	profiles  ProfileStore
	mailer    Mailer
	plan      time.Duration
	publicURL string
	log       *logrus.Logger
	now       func() time.Time
}

func NewPaymentService(
	gateway CheckoutGateway,
	subs SubscriptionStore,
	listings ListingStore,
	profiles ProfileStore,
	mailer Mailer,
	plan time.Duration,
	publicURL string,
	log *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		gateway:   gateway,
		subs:      subs,
		listings:  listings,
		profiles:  profiles,
		mailer:    mailer,
		plan:      plan,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log,
		now:       time.Now,
	}
}

// HandleWebhook verifies and applies one delivery. Unknown event types are
// acknowledged without effect.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			metrics.RecordWebhook("unknown", "invalid_signature")
		} else {
			metrics.RecordWebhook("unknown", "malformed")
		}
		return err
	}

	entry := s.log.WithFields(logrus.Fields{"event_id": ev.ID, "event_type": ev.Type})
	if ev.Type != payment.EventCheckoutCompleted || ev.Completed == nil {
		metrics.RecordWebhook(ev.Type, "ignored")
		entry.Debug("webhook event ignored")
		return nil
	}

	if err := s.completeCheckout(ctx, ev.Completed); err != nil {
		metrics.RecordWebhook(ev.Type, "failed")
		entry.WithError(err).Error("webhook processing failed")
		return err
	}
	metrics.RecordWebhook(ev.Type, "processed")
	return nil
}

func (s *PaymentService) completeCheckout(ctx context.Context, c *payment.CompletedCheckout) error {
	if c.SubscriptionID == "" || c.ListingID == "" {
		return fmt.Errorf("PaymentService: checkout %s is missing listing metadata", c.SessionID)
	}

	// Redelivered events must not extend the paid period.
	if current, err := s.subs.LatestForListing(ctx, c.ListingID); err == nil &&
		current.ID == c.SubscriptionID && current.Status == model.SubscriptionActive {
		return nil
	}

	periodEnd := s.now().Add(s.plan)
	published, err := s.subs.Activate(ctx, model.Activation{
		SubscriptionID:    c.SubscriptionID,
		CheckoutSessionID: c.SessionID,
		AmountCents:       c.AmountCents,
		Currency:          c.Currency,
		PeriodEnd:         periodEnd,
	})
	if err != nil {
		return fmt.Errorf("PaymentService: activate %s: %w", c.SubscriptionID, err)
	}

	entry := s.log.WithFields(logrus.Fields{
		"listing_id":      c.ListingID,
		"subscription_id": c.SubscriptionID,
		"amount_cents":    c.AmountCents,
	})
	if !published {
		entry.Warn("payment completed for a listing that is no longer pending, left unpublished")
		return nil
	}
	metrics.RecordTransition(model.ListingPublished)
	entry.Info("listing published after payment")

	s.notifyOwner(ctx, c, periodEnd)
	return nil
}

// CheckoutListing starts payment for an owned pending listing that did not
// come through the submission wizard, such as a relisted archive. A pending
// subscription left by an abandoned checkout is reused.
func (s *PaymentService) CheckoutListing(ctx context.Context, v Viewer, listingID string) (*payment.CheckoutSession, error) {
	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("PaymentService.CheckoutListing: %w", err)
	}
	if !v.owns(l) {
		return nil, fmt.Errorf("PaymentService.CheckoutListing: %w", ErrForbidden)
	}
	if l.Status != model.ListingPending {
		return nil, fmt.Errorf("%w: only pending listings can be paid for, listing is %s", ErrInvalidTransition, l.Status)
	}

	owner, err := s.profiles.GetByID(ctx, l.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("PaymentService.CheckoutListing: %w", err)
	}

	now := s.now()
	sub, err := s.subs.LatestForListing(ctx, l.ID)
	switch {
	case err == nil && sub.Status == model.SubscriptionPending:
	case err == nil && sub.ActiveAt(now):
		return nil, fmt.Errorf("%w: listing already has an active subscription", ErrConflict)
	case err == nil || isNotFound(err):
		sub = &model.SubscriptionStatus{
			ID:        uuid.NewString(),
			ListingID: l.ID,
			UserID:    l.OwnerID,
			Status:    model.SubscriptionPending,
			Currency:  "usd",
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.subs.Create(ctx, sub); err != nil {
			return nil, fmt.Errorf("PaymentService.CheckoutListing: %w", err)
		}
	default:
		return nil, fmt.Errorf("PaymentService.CheckoutListing: %w", err)
	}

	link := s.publicURL + "/listings/" + l.ID
	session, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		ListingID:      l.ID,
		UserID:         l.OwnerID,
		SubscriptionID: sub.ID,
		CustomerEmail:  owner.Email,
		// The provider substitutes {CHECKOUT_SESSION_ID} on redirect.
		SuccessURL: link + "?checkout=success&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  link + "?checkout=canceled",
	})
	metrics.RecordExternalCall("payment", err)
	if err != nil {
		return nil, fmt.Errorf("PaymentService.CheckoutListing: %w", err)
	}
	if err := s.subs.SetCheckoutSession(ctx, sub.ID, session.ID); err != nil {
		return nil, fmt.Errorf("PaymentService.CheckoutListing: %w", err)
	}
	return session, nil
}

func (s *PaymentService) notifyOwner(ctx context.Context, c *payment.CompletedCheckout, until time.Time) {
	l, err := s.listings.GetByID(ctx, c.ListingID)
	if err != nil {
		s.log.WithError(err).WithField("listing_id", c.ListingID).Warn("published listing not loaded for email")
		return
	}
	owner, err := s.profiles.GetByID(ctx, l.OwnerID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", l.OwnerID).Warn("listing owner not loaded for email")
		return
	}
	err = s.mailer.Send(ctx, owner.Email, email.TemplateListingPublished, email.Data{
		Name:         owner.FullName,
		ListingTitle: l.Title,
		Link:         s.publicURL + "/listings/" + l.ID,
		Until:        until.Format("January 2, 2006"),
	})
	metrics.RecordExternalCall("email", err)
	if err != nil {
		s.log.WithError(err).WithField("listing_id", l.ID).Warn("listing published email not sent")
	}
}
