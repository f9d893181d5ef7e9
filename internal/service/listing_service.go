package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/metrics"
	"rental-marketplace/internal/model"
)

type ListingService struct {
	listings ListingStore
	photos   PhotoStore
	geocoder Geocoder
	log      *logrus.Logger
	now      func() time.Time
}

func NewListingService(listings ListingStore, photos PhotoStore, geocoder Geocoder, log *logrus.Logger) *ListingService {
	return &ListingService{
		listings: listings,
		photos:   photos,
		geocoder: geocoder,
		log:      log,
		now:      time.Now,
	}
}

// Browse returns published listings matching the filter, newest first.
func (s *ListingService) Browse(ctx context.Context, f model.ListingFilter) ([]model.Listing, error) {
	f.Status = model.ListingPublished
	f.Normalize()
	list, err := s.listings.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("ListingService.Browse: %w", err)
	}
	if list == nil {
		list = []model.Listing{}
	}
	return list, nil
}

func (s *ListingService) Get(ctx context.Context, v Viewer, id string) (*model.Listing, error) {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ListingService.Get: %w", err)
	}
	if !v.canSee(l) {
		return nil, fmt.Errorf("ListingService.Get: %w", ErrNotFound)
	}
	return l, nil
}

// Mine returns every listing owned by the caller regardless of status.
func (s *ListingService) Mine(ctx context.Context, ownerID string) ([]model.Listing, error) {
	list, err := s.listings.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ListingService.Mine: %w", err)
	}
	if list == nil {
		list = []model.Listing{}
	}
	return list, nil
}

// CreateDraft stores a new listing in draft status.
func (s *ListingService) CreateDraft(ctx context.Context, ownerID string, in *model.Listing) (*model.Listing, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	l := *in
	l.ID = uuid.NewString()
	l.OwnerID = ownerID
	l.Status = model.ListingDraft
	l.PhotoFileID = ""
	l.PublishedAt = nil
	l.CreatedAt = now
	l.UpdatedAt = now
	fillCoordinates(ctx, s.geocoder, s.log, &l)

	if err := s.listings.Create(ctx, &l); err != nil {
		return nil, fmt.Errorf("ListingService.CreateDraft: %w", err)
	}
	return &l, nil
}

// Update replaces the editable fields of a listing. Only the owner may edit.
func (s *ListingService) Update(ctx context.Context, v Viewer, id string, in *model.Listing) (*model.Listing, error) {
	current, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ListingService.Update: %w", err)
	}
	if !v.owns(current) {
		return nil, fmt.Errorf("ListingService.Update: %w", ErrForbidden)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	current.NeighborhoodID = in.NeighborhoodID
	current.Title = in.Title
	current.Description = in.Description
	current.Address = in.Address
	current.Unit = in.Unit
	current.Latitude = in.Latitude
	current.Longitude = in.Longitude
	current.Rent = in.Rent
	current.Bedrooms = in.Bedrooms
	current.Bathrooms = in.Bathrooms
	current.SquareFeet = in.SquareFeet
	current.AvailableFrom = in.AvailableFrom
	current.PetsAllowed = in.PetsAllowed
	current.Amenities = in.Amenities
	current.UpdatedAt = s.now()
	fillCoordinates(ctx, s.geocoder, s.log, current)

	if err := s.listings.Update(ctx, current); err != nil {
		return nil, fmt.Errorf("ListingService.Update: %w", err)
	}
	return current, nil
}

// Delete removes a listing. Owners and admins only.
func (s *ListingService) Delete(ctx context.Context, v Viewer, id string) error {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("ListingService.Delete: %w", err)
	}
	if !v.canManage(l) {
		return fmt.Errorf("ListingService.Delete: %w", ErrForbidden)
	}
	if err := s.listings.Delete(ctx, id); err != nil {
		return fmt.Errorf("ListingService.Delete: %w", err)
	}
	if l.PhotoFileID != "" {
		if err := s.photos.DeletePhoto(l.PhotoFileID); err != nil {
			s.log.WithError(err).WithField("listing_id", id).Warn("orphaned listing photo")
		}
	}
	return nil
}

// Transition moves a listing through its lifecycle. Publishing is reserved
// to admins; owners publish by paying.
func (s *ListingService) Transition(ctx context.Context, v Viewer, id, to string) (*model.Listing, error) {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ListingService.Transition: %w", err)
	}
	if !v.canManage(l) {
		return nil, fmt.Errorf("ListingService.Transition: %w", ErrForbidden)
	}
	if to == model.ListingPublished && !v.Admin {
		return nil, fmt.Errorf("ListingService.Transition: %w", ErrForbidden)
	}
	if !model.CanTransition(l.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, l.Status, to)
	}
	if err := s.listings.UpdateStatus(ctx, id, to); err != nil {
		return nil, fmt.Errorf("ListingService.Transition: %w", err)
	}
	metrics.RecordTransition(to)

	now := s.now()
	l.Status = to
	l.UpdatedAt = now
	if to == model.ListingPublished {
		l.PublishedAt = &now
	}
	return l, nil
}

// UploadPhoto stores a new photo for the listing and drops the previous one.
func (s *ListingService) UploadPhoto(ctx context.Context, v Viewer, id string, file io.Reader, filename, contentType string) (string, error) {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("ListingService.UploadPhoto: %w", err)
	}
	if !v.canManage(l) {
		return "", fmt.Errorf("ListingService.UploadPhoto: %w", ErrForbidden)
	}

	photoID, err := s.photos.UploadPhoto(file, fmt.Sprintf("listing_%s_%s", id, filename), contentType)
	if err != nil {
		return "", fmt.Errorf("ListingService.UploadPhoto: %w", err)
	}
	if err := s.listings.UpdatePhotoFileID(ctx, id, photoID); err != nil {
		return "", fmt.Errorf("ListingService.UploadPhoto: %w", err)
	}
	if l.PhotoFileID != "" {
		if err := s.photos.DeletePhoto(l.PhotoFileID); err != nil {
			s.log.WithError(err).WithField("listing_id", id).Warn("previous photo not removed")
		}
	}
	return photoID, nil
}

// Photo returns the listing photo and its content type.
func (s *ListingService) Photo(ctx context.Context, v Viewer, id string) ([]byte, string, error) {
	l, err := s.Get(ctx, v, id)
	if err != nil {
		return nil, "", err
	}
	if l.PhotoFileID == "" {
		return nil, "", fmt.Errorf("ListingService.Photo: %w", ErrNotFound)
	}
	data, contentType, err := s.photos.DownloadPhoto(l.PhotoFileID)
	if err != nil {
		return nil, "", fmt.Errorf("ListingService.Photo: %w", err)
	}
	return data, contentType, nil
}

// fillCoordinates geocodes the address when coordinates are missing. It never
// fails the caller.
func fillCoordinates(ctx context.Context, geocoder Geocoder, log *logrus.Logger, l *model.Listing) {
	if geocoder == nil || (l.Latitude != nil && l.Longitude != nil) || l.Address == "" {
		return
	}
	place, err := geocoder.Geocode(ctx, l.Address)
	metrics.RecordExternalCall("geo", err)
	if err != nil {
		log.WithError(err).WithField("address", l.Address).Warn("geocoding failed, saving without coordinates")
		return
	}
	lat, lng := place.Latitude, place.Longitude
	l.Latitude = &lat
	l.Longitude = &lng
}
