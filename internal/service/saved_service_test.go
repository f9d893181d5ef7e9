package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-marketplace/internal/model"
)

func TestSavedService_ToggleTwiceReturnsToUnsaved(t *testing.T) {
	svc := NewSavedService(newFakeSaved(), newFakeListings(publishedListing("l1", "owner")))
	ctx := context.Background()

	saved, err := svc.Toggle(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.True(t, saved)

	is, err := svc.IsSaved(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.True(t, is)

	saved, err = svc.Toggle(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.False(t, saved)

	is, err = svc.IsSaved(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.False(t, is)
}

func TestSavedService_ToggleUnknownListing(t *testing.T) {
	svc := NewSavedService(newFakeSaved(), newFakeListings())
	_, err := svc.Toggle(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSavedService_ListSkipsHiddenListings(t *testing.T) {
	archived := publishedListing("l2", "owner")
	archived.Status = model.ListingArchived
	svc := NewSavedService(newFakeSaved(), newFakeListings(publishedListing("l1", "owner"), archived))
	ctx := context.Background()

	empty, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = svc.Toggle(ctx, "u1", "l1")
	require.NoError(t, err)
	_, err = svc.Toggle(ctx, "u1", "l2")
	require.NoError(t, err)

	out, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "l1", out[0].ID)
}
