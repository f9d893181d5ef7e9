package service

import (
	"context"
	"fmt"

	"rental-marketplace/internal/model"
)

type SavedService struct {
	saved    SavedStore
	listings ListingStore
}

func NewSavedService(saved SavedStore, listings ListingStore) *SavedService {
	return &SavedService{saved: saved, listings: listings}
}

// Toggle flips the saved state of a listing and returns the new state.
func (s *SavedService) Toggle(ctx context.Context, userID, listingID string) (bool, error) {
	if _, err := s.listings.GetByID(ctx, listingID); err != nil {
		return false, fmt.Errorf("SavedService.Toggle: %w", err)
	}
	saved, err := s.saved.Toggle(ctx, userID, listingID)
	if err != nil {
		return false, fmt.Errorf("SavedService.Toggle: %w", err)
	}
	return saved, nil
}

func (s *SavedService) IsSaved(ctx context.Context, userID, listingID string) (bool, error) {
	saved, err := s.saved.IsSaved(ctx, userID, listingID)
	if err != nil {
		return false, fmt.Errorf("SavedService.IsSaved: %w", err)
	}
	return saved, nil
}

// List returns the caller's saved listings that are still visible to them.
func (s *SavedService) List(ctx context.Context, userID string) ([]model.Listing, error) {
	ids, err := s.saved.ListingIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("SavedService.List: %w", err)
	}
	out := []model.Listing{}
	if len(ids) == 0 {
		return out, nil
	}
	list, err := s.listings.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("SavedService.List: %w", err)
	}
	v := Viewer{UserID: userID}
	for i := range list {
		if v.canSee(&list[i]) {
			out = append(out, list[i])
		}
	}
	return out, nil
}
