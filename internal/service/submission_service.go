package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/metrics"
	"rental-marketplace/internal/model"
	"rental-marketplace/internal/payment"
)

// Registrar creates accounts for the sign-up path of the account step.
type Registrar interface {
	SignUp(ctx context.Context, in SignUpInput) (*Session, error)
}

// SubmissionStatus is reported when the user returns from checkout.
type SubmissionStatus struct {
	SubmissionID string         `json:"submission_id"`
	Listing      *model.Listing `json:"listing"`
	Subscription model.Badge    `json:"subscription"`
	Completed    bool           `json:"completed"`
}

// SubmissionService runs the details → account → preview wizard and hands
// the composed listing off to payment checkout.
type SubmissionService struct {
	drafts    DraftStore
	listings  ListingStore
	subs      SubscriptionStore
	profiles  ProfileStore
	checkout  CheckoutGateway
	accounts  Registrar
	geocoder  Geocoder
	publicURL string
	log       *logrus.Logger
	now       func() time.Time
}

func NewSubmissionService(
	drafts DraftStore,
	listings ListingStore,
	subs SubscriptionStore,
	profiles ProfileStore,
	checkout CheckoutGateway,
	accounts Registrar,
	geocoder Geocoder,
	publicURL string,
	log *logrus.Logger,
) *SubmissionService {
	return &SubmissionService{
		drafts:    drafts,
		listings:  listings,
		subs:      subs,
		profiles:  profiles,
		checkout:  checkout,
		accounts:  accounts,
		geocoder:  geocoder,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log,
		now:       time.Now,
	}
}

// Start validates the details step and opens a draft.
func (s *SubmissionService) Start(ctx context.Context, details model.Listing) (*model.SubmissionDraft, error) {
	if err := details.Validate(); err != nil {
		return nil, err
	}
	d := &model.SubmissionDraft{
		ID:        uuid.NewString(),
		Step:      model.StepAccount,
		Listing:   details,
		CreatedAt: s.now(),
	}
	if err := s.drafts.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("SubmissionService.Start: %w", err)
	}
	return d, nil
}

// AttachAccount completes the account step with the signed-in user or, when
// userID is empty, by registering a new account from signup.
func (s *SubmissionService) AttachAccount(ctx context.Context, id, userID string, signup *SignUpInput) (*model.SubmissionDraft, *Session, error) {
	d, err := s.drafts.Get(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("SubmissionService.AttachAccount: %w", err)
	}
	if d.UserID != "" && d.UserID != userID {
		return nil, nil, fmt.Errorf("SubmissionService.AttachAccount: %w", ErrForbidden)
	}

	var session *Session
	if userID == "" {
		if signup == nil {
			return nil, nil, fmt.Errorf("%w: sign in or sign up to continue", ErrUnauthorized)
		}
		session, err = s.accounts.SignUp(ctx, *signup)
		if err != nil {
			return nil, nil, err
		}
		userID = session.Profile.ID
	}

	d.UserID = userID
	d.Step = model.StepPreview
	if err := s.drafts.Save(ctx, d); err != nil {
		return nil, nil, fmt.Errorf("SubmissionService.AttachAccount: %w", err)
	}
	return d, session, nil
}

// Preview returns the composed listing and unlocks checkout.
func (s *SubmissionService) Preview(ctx context.Context, id, userID string) (*model.SubmissionDraft, error) {
	d, err := s.ownedDraft(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if d.Step == model.StepPreview {
		d.Step = model.StepCheckout
		if err := s.drafts.Save(ctx, d); err != nil {
			return nil, fmt.Errorf("SubmissionService.Preview: %w", err)
		}
	}
	d.Listing.OwnerID = userID
	return d, nil
}

// Checkout persists the listing as pending, opens a pending subscription and
// creates the payment session. Repeated calls return the same session.
func (s *SubmissionService) Checkout(ctx context.Context, id, userID string) (*model.SubmissionDraft, error) {
	d, err := s.ownedDraft(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if d.Step != model.StepCheckout {
		return nil, &model.FieldError{Field: "step", Message: "preview the listing before checkout"}
	}
	if d.CheckoutURL != "" {
		return d, nil
	}

	owner, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("SubmissionService.Checkout: %w", err)
	}

	now := s.now()
	l := d.Listing
	if d.ListingID == "" {
		l.ID = uuid.NewString()
		l.OwnerID = userID
		l.Status = model.ListingPending
		l.PhotoFileID = ""
		l.CreatedAt = now
		l.UpdatedAt = now
		fillCoordinates(ctx, s.geocoder, s.log, &l)
		if err := s.listings.Create(ctx, &l); err != nil {
			return nil, fmt.Errorf("SubmissionService.Checkout: %w", err)
		}
		metrics.RecordTransition(model.ListingPending)

		sub := &model.SubscriptionStatus{
			ID:        uuid.NewString(),
			ListingID: l.ID,
			UserID:    userID,
			Status:    model.SubscriptionPending,
			Currency:  "usd",
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.subs.Create(ctx, sub); err != nil {
			return nil, fmt.Errorf("SubmissionService.Checkout: %w", err)
		}
		d.Listing = l
		d.ListingID = l.ID
		d.SubscriptionID = sub.ID
		if err := s.drafts.Save(ctx, d); err != nil {
			return nil, fmt.Errorf("SubmissionService.Checkout: %w", err)
		}
	}

	session, err := s.checkout.CreateCheckoutSession(ctx, s.checkoutRequest(d, owner.Email))
	metrics.RecordExternalCall("payment", err)
	if err != nil {
		return nil, fmt.Errorf("SubmissionService.Checkout: %w", err)
	}
	if err := s.subs.SetCheckoutSession(ctx, d.SubscriptionID, session.ID); err != nil {
		return nil, fmt.Errorf("SubmissionService.Checkout: %w", err)
	}

	d.CheckoutSessionID = session.ID
	d.CheckoutURL = session.URL
	if err := s.drafts.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("SubmissionService.Checkout: %w", err)
	}
	return d, nil
}

// Resume reports the outcome of a checkout redirect. The draft is dropped
// once the listing is live.
func (s *SubmissionService) Resume(ctx context.Context, id, checkoutSessionID string) (*SubmissionStatus, error) {
	d, err := s.drafts.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("SubmissionService.Resume: %w", err)
	}
	if d.ListingID == "" || d.CheckoutSessionID == "" || d.CheckoutSessionID != checkoutSessionID {
		return nil, fmt.Errorf("SubmissionService.Resume: %w", ErrNotFound)
	}

	l, err := s.listings.GetByID(ctx, d.ListingID)
	if err != nil {
		return nil, fmt.Errorf("SubmissionService.Resume: %w", err)
	}
	out := &SubmissionStatus{SubmissionID: d.ID, Listing: l, Subscription: model.Badge{Status: model.SubscriptionPending}}

	sub, err := s.subs.LatestForListing(ctx, l.ID)
	switch {
	case err == nil:
		out.Subscription = badgeFor(sub, s.now())
	case !isNotFound(err):
		return nil, fmt.Errorf("SubmissionService.Resume: %w", err)
	}

	if l.Status == model.ListingPublished {
		out.Completed = true
		if err := s.drafts.Delete(ctx, d.ID); err != nil {
			s.log.WithError(err).WithField("submission_id", d.ID).Warn("submission draft not removed")
		}
	}
	return out, nil
}

func (s *SubmissionService) ownedDraft(ctx context.Context, id, userID string) (*model.SubmissionDraft, error) {
	d, err := s.drafts.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("SubmissionService: %w", err)
	}
	if d.UserID == "" {
		return nil, &model.FieldError{Field: "account", Message: "complete the account step first"}
	}
	if d.UserID != userID {
		return nil, fmt.Errorf("SubmissionService: %w", ErrForbidden)
	}
	return d, nil
}

func (s *SubmissionService) checkoutRequest(d *model.SubmissionDraft, customerEmail string) payment.CheckoutRequest {
	q := url.Values{"submission_id": {d.ID}}
	return payment.CheckoutRequest{
		ListingID:      d.ListingID,
		UserID:         d.UserID,
		SubmissionID:   d.ID,
		SubscriptionID: d.SubscriptionID,
		CustomerEmail:  customerEmail,
		// The provider substitutes {CHECKOUT_SESSION_ID} on redirect.
		SuccessURL: s.publicURL + "/submit/complete?" + q.Encode() + "&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.publicURL + "/submit/preview?" + q.Encode(),
	}
}
