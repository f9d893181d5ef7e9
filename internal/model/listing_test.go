package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validListing() *Listing {
	return &Listing{
		Title:          "Sunny 2BR",
		Description:    "Walk-up near the park",
		Address:        "12 Elm St",
		NeighborhoodID: "nb-1",
		Rent:           2400,
		Bedrooms:       2,
		Bathrooms:      1,
	}
}

func TestListingValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(l *Listing)
		field  string
	}{
		{"valid", func(l *Listing) {}, ""},
		{"missing title", func(l *Listing) { l.Title = "  " }, "title"},
		{"missing description", func(l *Listing) { l.Description = "" }, "description"},
		{"missing address", func(l *Listing) { l.Address = "" }, "address"},
		{"missing neighborhood", func(l *Listing) { l.NeighborhoodID = "" }, "neighborhood_id"},
		{"zero rent", func(l *Listing) { l.Rent = 0 }, "rent"},
		{"negative bedrooms", func(l *Listing) { l.Bedrooms = -1 }, "bedrooms"},
		{"negative bathrooms", func(l *Listing) { l.Bathrooms = -0.5 }, "bathrooms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := validListing()
			tt.mutate(l)
			err := l.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(ListingDraft, ListingPending))
	assert.True(t, CanTransition(ListingPending, ListingPublished))
	assert.True(t, CanTransition(ListingPublished, ListingArchived))
	assert.True(t, CanTransition(ListingArchived, ListingPending))

	assert.False(t, CanTransition(ListingDraft, ListingPublished))
	assert.False(t, CanTransition(ListingArchived, ListingPublished))
	assert.False(t, CanTransition(ListingPublished, ListingDraft))
	assert.False(t, CanTransition("unknown", ListingDraft))
}

func TestListingFilterNormalize(t *testing.T) {
	f := ListingFilter{Limit: 0, Offset: -3}
	f.Normalize()
	assert.Equal(t, DefaultPageSize, f.Limit)
	assert.Equal(t, 0, f.Offset)

	f = ListingFilter{Limit: 1000}
	f.Normalize()
	assert.Equal(t, MaxPageSize, f.Limit)
}

func TestSubscriptionActiveAt(t *testing.T) {
	now := time.Now()
	end := now.Add(time.Hour)
	s := &SubscriptionStatus{Status: SubscriptionActive, CurrentPeriodEnd: &end}
	assert.True(t, s.ActiveAt(now))
	assert.False(t, s.ActiveAt(end.Add(time.Second)))

	s.Status = SubscriptionPending
	assert.False(t, s.ActiveAt(now))
}

func TestCanTransitionApplication(t *testing.T) {
	assert.True(t, CanTransitionApplication(ApplicationSubmitted, ApplicationReviewing))
	assert.True(t, CanTransitionApplication(ApplicationReviewing, ApplicationWithdrawn))
	assert.False(t, CanTransitionApplication(ApplicationAccepted, ApplicationWithdrawn))
	assert.False(t, CanTransitionApplication(ApplicationReviewing, ApplicationSubmitted))
}
