package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rental-marketplace/internal/model"
	"rental-marketplace/internal/payment"
	"rental-marketplace/internal/store"
)

type submissionFixture struct {
	svc      *SubmissionService
	drafts   *fakeDrafts
	listings *fakeListings
	subs     *fakeSubs
	gateway  *mockGateway
	auth     *authFixture
}

func newSubmissionFixture() *submissionFixture {
	f := &submissionFixture{
		drafts:   newFakeDrafts(),
		listings: newFakeListings(),
		gateway:  &mockGateway{},
		auth:     newAuthFixture(),
	}
	f.subs = newFakeSubs(f.listings)
	f.auth.profiles.byID["u1"] = &model.UserProfile{ID: "u1", Email: "owner@example.com"}
	f.svc = NewSubmissionService(f.drafts, f.listings, f.subs, f.auth.profiles, f.gateway, f.auth.svc, nil, "https://rentals.test", testLog)
	return f
}

func TestSubmission_StartRejectsMissingField(t *testing.T) {
	f := newSubmissionFixture()
	details := *publishedListing("", "")
	details.Rent = 0

	_, err := f.svc.Start(context.Background(), details)
	var fe *model.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "rent", fe.Field)
	assert.Empty(t, f.drafts.byID)
}

func TestSubmission_FullFlow(t *testing.T) {
	f := newSubmissionFixture()
	ctx := context.Background()

	d, err := f.svc.Start(ctx, *publishedListing("", ""))
	require.NoError(t, err)
	assert.Equal(t, model.StepAccount, d.Step)

	_, err = f.svc.Preview(ctx, d.ID, "u1")
	var fe *model.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "account", fe.Field)

	d, sess, err := f.svc.AttachAccount(ctx, d.ID, "u1", nil)
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Equal(t, model.StepPreview, d.Step)

	_, err = f.svc.Checkout(ctx, d.ID, "u1")
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "step", fe.Field)

	_, err = f.svc.Preview(ctx, d.ID, "u2")
	assert.ErrorIs(t, err, ErrForbidden)

	d, err = f.svc.Preview(ctx, d.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.StepCheckout, d.Step)

	f.gateway.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(r payment.CheckoutRequest) bool {
		return r.UserID == "u1" && r.SubmissionID == d.ID && r.CustomerEmail == "owner@example.com" &&
			strings.Contains(r.SuccessURL, "{CHECKOUT_SESSION_ID}")
	})).Return(&payment.CheckoutSession{ID: "cs_1", URL: "https://pay.test/cs_1"}, nil).Once()

	d, err = f.svc.Checkout(ctx, d.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.test/cs_1", d.CheckoutURL)

	l := f.listings.byID[d.ListingID]
	require.NotNil(t, l)
	assert.Equal(t, model.ListingPending, l.Status)
	assert.Equal(t, "u1", l.OwnerID)
	assert.Equal(t, "cs_1", f.subs.byID[d.SubscriptionID].CheckoutSessionID)

	again, err := f.svc.Checkout(ctx, d.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, d.CheckoutURL, again.CheckoutURL)
	f.gateway.AssertNumberOfCalls(t, "CreateCheckoutSession", 1)

	status, err := f.svc.Resume(ctx, d.ID, "cs_1")
	require.NoError(t, err)
	assert.False(t, status.Completed)
	assert.Equal(t, model.SubscriptionPending, status.Subscription.Status)

	_, err = f.svc.Resume(ctx, d.ID, "cs_other")
	assert.ErrorIs(t, err, ErrNotFound)

	published, err := f.subs.Activate(ctx, model.Activation{
		SubscriptionID:    d.SubscriptionID,
		CheckoutSessionID: "cs_1",
		PeriodEnd:         f.svc.now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	require.True(t, published)
	status, err = f.svc.Resume(ctx, d.ID, "cs_1")
	require.NoError(t, err)
	assert.True(t, status.Completed)
	assert.True(t, status.Subscription.Active)

	_, err = f.svc.Resume(ctx, d.ID, "cs_1")
	assert.ErrorIs(t, err, store.ErrDraftNotFound)
}

func TestSubmission_AttachAccountSignUpPath(t *testing.T) {
	f := newSubmissionFixture()
	ctx := context.Background()
	d, err := f.svc.Start(ctx, *publishedListing("", ""))
	require.NoError(t, err)

	_, _, err = f.svc.AttachAccount(ctx, d.ID, "", nil)
	assert.ErrorIs(t, err, ErrUnauthorized)

	d, sess, err := f.svc.AttachAccount(ctx, d.ID, "", &SignUpInput{Email: "new@example.com", Password: "longenough", FullName: "New"})
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, sess.Profile.ID, d.UserID)
}

func TestSubmission_CheckoutGatewayFailureKeepsDraft(t *testing.T) {
	f := newSubmissionFixture()
	ctx := context.Background()
	d, _ := f.svc.Start(ctx, *publishedListing("", ""))
	d, _, _ = f.svc.AttachAccount(ctx, d.ID, "u1", nil)
	d, _ = f.svc.Preview(ctx, d.ID, "u1")

	f.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(nil, errors.New("provider down")).Once()
	_, err := f.svc.Checkout(ctx, d.ID, "u1")
	require.Error(t, err)

	f.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(&payment.CheckoutSession{ID: "cs_2", URL: "u"}, nil).Once()
	d, err = f.svc.Checkout(ctx, d.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "cs_2", d.CheckoutSessionID)
	assert.Len(t, f.listings.byID, 1)
}
