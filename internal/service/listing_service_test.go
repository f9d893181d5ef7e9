package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-marketplace/internal/geo"
	"rental-marketplace/internal/model"
)

func TestListingService_BrowseForcesPublished(t *testing.T) {
	listings := newFakeListings(publishedListing("l1", "owner"), &model.Listing{ID: "l2", Status: model.ListingDraft})
	svc := NewListingService(listings, newFakePhotos(), nil, testLog)

	out, err := svc.Browse(context.Background(), model.ListingFilter{Status: model.ListingDraft, Limit: 500})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "l1", out[0].ID)
	assert.Equal(t, model.ListingPublished, listings.lastFilter.Status)
	assert.Equal(t, model.MaxPageSize, listings.lastFilter.Limit)
}

func TestListingService_GetHidesUnpublished(t *testing.T) {
	draft := publishedListing("l1", "owner")
	draft.Status = model.ListingDraft
	svc := NewListingService(newFakeListings(draft), newFakePhotos(), nil, testLog)
	ctx := context.Background()

	_, err := svc.Get(ctx, Viewer{}, "l1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(ctx, Viewer{UserID: "someone"}, "l1")
	assert.ErrorIs(t, err, ErrNotFound)

	l, err := svc.Get(ctx, Viewer{UserID: "owner"}, "l1")
	require.NoError(t, err)
	assert.Equal(t, "l1", l.ID)
	_, err = svc.Get(ctx, Viewer{UserID: "mod", Admin: true}, "l1")
	assert.NoError(t, err)
}

func TestListingService_CreateDraftRejectsMissingField(t *testing.T) {
	svc := NewListingService(newFakeListings(), newFakePhotos(), nil, testLog)
	in := publishedListing("", "")
	in.Address = " "

	_, err := svc.CreateDraft(context.Background(), "owner", in)
	var fe *model.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "address", fe.Field)
}

func TestListingService_CreateDraftGeocodes(t *testing.T) {
	listings := newFakeListings()
	gc := &fakeGeocoder{place: &geo.Place{Latitude: 40.7, Longitude: -73.9}}
	svc := NewListingService(listings, newFakePhotos(), gc, testLog)

	l, err := svc.CreateDraft(context.Background(), "owner", publishedListing("", ""))
	require.NoError(t, err)
	assert.Equal(t, model.ListingDraft, l.Status)
	assert.Equal(t, "owner", l.OwnerID)
	require.NotNil(t, l.Latitude)
	assert.Equal(t, 40.7, *l.Latitude)
	assert.Contains(t, listings.byID, l.ID)
}

func TestListingService_CreateDraftSurvivesGeocodeFailure(t *testing.T) {
	gc := &fakeGeocoder{err: geo.ErrNoMatch}
	svc := NewListingService(newFakeListings(), newFakePhotos(), gc, testLog)

	l, err := svc.CreateDraft(context.Background(), "owner", publishedListing("", ""))
	require.NoError(t, err)
	assert.Nil(t, l.Latitude)
	assert.Equal(t, 1, gc.calls)
}

func TestListingService_UpdateOwnerOnly(t *testing.T) {
	listings := newFakeListings(publishedListing("l1", "owner"))
	svc := NewListingService(listings, newFakePhotos(), nil, testLog)
	in := publishedListing("", "")
	in.Title = "Renovated 2BR"

	_, err := svc.Update(context.Background(), Viewer{UserID: "intruder", Admin: true}, "l1", in)
	assert.ErrorIs(t, err, ErrForbidden)

	l, err := svc.Update(context.Background(), Viewer{UserID: "owner"}, "l1", in)
	require.NoError(t, err)
	assert.Equal(t, "Renovated 2BR", l.Title)
	assert.Equal(t, model.ListingPublished, listings.byID["l1"].Status)
}

func TestListingService_DeleteByAdminRemovesPhoto(t *testing.T) {
	l := publishedListing("l1", "owner")
	l.PhotoFileID = "photo-x"
	listings := newFakeListings(l)
	photos := newFakePhotos()
	svc := NewListingService(listings, photos, nil, testLog)

	assert.ErrorIs(t, svc.Delete(context.Background(), Viewer{UserID: "other"}, "l1"), ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), Viewer{UserID: "mod", Admin: true}, "l1"))
	assert.NotContains(t, listings.byID, "l1")
	assert.Equal(t, []string{"photo-x"}, photos.deleted)
}

func TestListingService_Transition(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		viewer  Viewer
		wantErr error
	}{
		{"owner submits draft", model.ListingDraft, model.ListingPending, Viewer{UserID: "owner"}, nil},
		{"owner archives", model.ListingPublished, model.ListingArchived, Viewer{UserID: "owner"}, nil},
		{"owner cannot self publish", model.ListingPending, model.ListingPublished, Viewer{UserID: "owner"}, ErrForbidden},
		{"admin publishes", model.ListingPending, model.ListingPublished, Viewer{UserID: "mod", Admin: true}, nil},
		{"skip pending", model.ListingDraft, model.ListingPublished, Viewer{UserID: "mod", Admin: true}, ErrInvalidTransition},
		{"archived to draft", model.ListingArchived, model.ListingDraft, Viewer{UserID: "owner"}, ErrInvalidTransition},
		{"stranger", model.ListingDraft, model.ListingPending, Viewer{UserID: "other"}, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := publishedListing("l1", "owner")
			l.Status = tt.from
			listings := newFakeListings(l)
			svc := NewListingService(listings, newFakePhotos(), nil, testLog)

			got, err := svc.Transition(context.Background(), tt.viewer, "l1", tt.to)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, listings.byID["l1"].Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, got.Status)
			assert.Equal(t, tt.to, listings.byID["l1"].Status)
		})
	}
}

func TestListingService_PhotoRoundTrip(t *testing.T) {
	l := publishedListing("l1", "owner")
	l.PhotoFileID = "old"
	listings := newFakeListings(l)
	photos := newFakePhotos()
	photos.files["old"] = []byte("old")
	svc := NewListingService(listings, photos, nil, testLog)
	ctx := context.Background()

	_, err := svc.UploadPhoto(ctx, Viewer{UserID: "other"}, "l1", photoReader("x"), "a.png", "image/png")
	assert.ErrorIs(t, err, ErrForbidden)

	id, err := svc.UploadPhoto(ctx, Viewer{UserID: "owner"}, "l1", photoReader("png-bytes"), "a.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, photos.deleted)

	data, ct, err := svc.Photo(ctx, Viewer{}, "l1")
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, id, listings.byID["l1"].PhotoFileID)
}

func TestListingService_PhotoMissing(t *testing.T) {
	svc := NewListingService(newFakeListings(publishedListing("l1", "owner")), newFakePhotos(), nil, testLog)
	_, _, err := svc.Photo(context.Background(), Viewer{}, "l1")
	assert.ErrorIs(t, err, ErrNotFound)
}
