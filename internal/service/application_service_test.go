package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rental-marketplace/internal/email"
	"rental-marketplace/internal/model"
	"rental-marketplace/internal/repository"
)

type applicationFixture struct {
	svc       *ApplicationService
	apps      *fakeApplications
	listings  *fakeListings
	mailer    *mockMailer
	publisher *fakePublisher
}

func newApplicationFixture() *applicationFixture {
	f := &applicationFixture{
		apps:      newFakeApplications(),
		listings:  newFakeListings(publishedListing("l1", "owner")),
		mailer:    &mockMailer{},
		publisher: newFakePublisher(),
	}
	f.mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	profiles := newFakeProfiles(&model.UserProfile{ID: "owner", Email: "owner@example.com", FullName: "Owner"})
	notifier := NewNotifier(&fakeMessages{}, f.apps, f.publisher, testLog)
	f.svc = NewApplicationService(f.apps, f.listings, profiles, f.mailer, notifier, "https://rentals.test", testLog)
	return f
}

func validApplication() ApplicationInput {
	return ApplicationInput{FullName: "Tess Tenant", Email: "tess@example.com"}
}

func TestApplicationService_Submit(t *testing.T) {
	f := newApplicationFixture()

	a, err := f.svc.Submit(context.Background(), "tess", "l1", validApplication())
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationSubmitted, a.Status)
	assert.NotEmpty(t, a.ID)

	f.mailer.AssertCalled(t, "Send", mock.Anything, "owner@example.com", email.TemplateApplicationReceived,
		mock.MatchedBy(func(d email.Data) bool { return d.Applicant == "Tess Tenant" }))

	require.Len(t, f.publisher.published["owner"], 1)
	n := f.publisher.published["owner"][0].(Notification)
	assert.Equal(t, 1, n.Counts.PendingApplications)
}

func TestApplicationService_SubmitRules(t *testing.T) {
	f := newApplicationFixture()
	draft := publishedListing("l2", "owner")
	draft.Status = model.ListingDraft
	f.listings.byID["l2"] = draft
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, "owner", "l1", validApplication())
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Submit(ctx, "tess", "l2", validApplication())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Submit(ctx, "tess", "l1", ApplicationInput{FullName: "Tess", Email: "nope"})
	var fe *model.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "email", fe.Field)

	_, err = f.svc.Submit(ctx, "tess", "l1", validApplication())
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, "tess", "l1", validApplication())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestApplicationService_SubmitLosesInsertRace(t *testing.T) {
	f := newApplicationFixture()
	f.apps.insertErr = repository.ErrDuplicate

	_, err := f.svc.Submit(context.Background(), "tess", "l1", validApplication())
	assert.ErrorIs(t, err, ErrConflict)
	f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApplicationService_UpdateStatus(t *testing.T) {
	f := newApplicationFixture()
	ctx := context.Background()
	a, err := f.svc.Submit(ctx, "tess", "l1", validApplication())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, "tess", a.ID, model.ApplicationAccepted)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.UpdateStatus(ctx, "owner", a.ID, model.ApplicationWithdrawn)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := f.svc.UpdateStatus(ctx, "owner", a.ID, model.ApplicationReviewing)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationReviewing, got.Status)

	got, err = f.svc.UpdateStatus(ctx, "owner", a.ID, model.ApplicationAccepted)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationAccepted, got.Status)

	_, err = f.svc.UpdateStatus(ctx, "tess", a.ID, model.ApplicationWithdrawn)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApplicationService_ForListingOwnerOnly(t *testing.T) {
	f := newApplicationFixture()
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, "tess", "l1", validApplication())
	require.NoError(t, err)

	_, err = f.svc.ForListing(ctx, Viewer{UserID: "tess"}, "l1")
	assert.ErrorIs(t, err, ErrForbidden)

	out, err := f.svc.ForListing(ctx, Viewer{UserID: "owner"}, "l1")
	require.NoError(t, err)
	assert.Len(t, out, 1)

	mine, err := f.svc.Mine(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, mine)
	assert.Empty(t, mine)
}
