package service

import (
	"context"
	"fmt"

	"rental-marketplace/internal/model"
)

var adminViewer = Viewer{Admin: true}

// AdminService holds moderation operations. Routes using it are admin-only.
type AdminService struct {
	listings   ListingStore
	listingSvc *ListingService
	profiles   ProfileStore
}

func NewAdminService(listings ListingStore, listingSvc *ListingService, profiles ProfileStore) *AdminService {
	return &AdminService{listings: listings, listingSvc: listingSvc, profiles: profiles}
}

// Listings lists listings in one status, pending by default.
func (s *AdminService) Listings(ctx context.Context, status string, limit, offset int) ([]model.Listing, error) {
	if status == "" {
		status = model.ListingPending
	}
	if !model.IsListingStatus(status) {
		return nil, &model.FieldError{Field: "status", Message: "unknown listing status"}
	}
	f := model.ListingFilter{Status: status, Limit: limit, Offset: offset}
	f.Normalize()
	out, err := s.listings.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("AdminService.Listings: %w", err)
	}
	if out == nil {
		out = []model.Listing{}
	}
	return out, nil
}

func (s *AdminService) Publish(ctx context.Context, id string) (*model.Listing, error) {
	return s.listingSvc.Transition(ctx, adminViewer, id, model.ListingPublished)
}

func (s *AdminService) Archive(ctx context.Context, id string) (*model.Listing, error) {
	return s.listingSvc.Transition(ctx, adminViewer, id, model.ListingArchived)
}

func (s *AdminService) DeleteListing(ctx context.Context, id string) error {
	return s.listingSvc.Delete(ctx, adminViewer, id)
}

func (s *AdminService) Users(ctx context.Context, limit, offset int) ([]model.UserProfile, error) {
	f := model.ListingFilter{Limit: limit, Offset: offset}
	f.Normalize()
	out, err := s.profiles.List(ctx, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("AdminService.Users: %w", err)
	}
	if out == nil {
		out = []model.UserProfile{}
	}
	return out, nil
}
