package model

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// Listing statuses. A listing only becomes publicly visible once payment
// for it has cleared.
const (
	ListingDraft     = "draft"
	ListingPending   = "pending"
	ListingPublished = "published"
	ListingArchived  = "archived"
)

var listingTransitions = map[string][]string{
	ListingDraft:     {ListingPending},
	ListingPending:   {ListingPublished, ListingDraft},
	ListingPublished: {ListingArchived},
	ListingArchived:  {ListingPending},
}

// IsListingStatus reports whether s names a listing status.
func IsListingStatus(s string) bool {
	_, ok := listingTransitions[s]
	return ok
}

type Listing struct {
	ID             string         `db:"id" json:"id"`
	OwnerID        string         `db:"owner_id" json:"owner_id"`
	NeighborhoodID string         `db:"neighborhood_id" json:"neighborhood_id"`
	Title          string         `db:"title" json:"title"`
	Description    string         `db:"description" json:"description"`
	Address        string         `db:"address" json:"address"`
	Unit           string         `db:"unit" json:"unit,omitempty"`
	Latitude       *float64       `db:"latitude" json:"latitude,omitempty"`
	Longitude      *float64       `db:"longitude" json:"longitude,omitempty"`
	Rent           float64        `db:"rent" json:"rent"`
	Bedrooms       int            `db:"bedrooms" json:"bedrooms"`
	Bathrooms      float64        `db:"bathrooms" json:"bathrooms"`
	SquareFeet     int            `db:"square_feet" json:"square_feet,omitempty"`
	AvailableFrom  *time.Time     `db:"available_from" json:"available_from,omitempty"`
	PetsAllowed    bool           `db:"pets_allowed" json:"pets_allowed"`
	Amenities      pq.StringArray `db:"amenities" json:"amenities"`
	PhotoFileID    string         `db:"photo_file_id" json:"-"`
	Status         string         `db:"status" json:"status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
	PublishedAt    *time.Time     `db:"published_at" json:"published_at,omitempty"`
}

// Validate checks the fields a listing needs before it can leave the draft
// stage. The first missing field is reported.
func (l *Listing) Validate() error {
	switch {
	case strings.TrimSpace(l.Title) == "":
		return &FieldError{Field: "title", Message: "title is required"}
	case strings.TrimSpace(l.Description) == "":
		return &FieldError{Field: "description", Message: "description is required"}
	case strings.TrimSpace(l.Address) == "":
		return &FieldError{Field: "address", Message: "address is required"}
	case l.NeighborhoodID == "":
		return &FieldError{Field: "neighborhood_id", Message: "neighborhood is required"}
	case l.Rent <= 0:
		return &FieldError{Field: "rent", Message: "rent must be greater than zero"}
	case l.Bedrooms < 0:
		return &FieldError{Field: "bedrooms", Message: "bedrooms cannot be negative"}
	case l.Bathrooms < 0:
		return &FieldError{Field: "bathrooms", Message: "bathrooms cannot be negative"}
	}
	return nil
}

// CanTransition reports whether a listing may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range listingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ListingFilter narrows the public listing search.
type ListingFilter struct {
	NeighborhoodID string
	BoroughID      string
	MinRent        *float64
	MaxRent        *float64
	MinBedrooms    *int
	PetsAllowed    *bool
	Query          string
	Status         string
	Limit          int
	Offset         int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps paging values into the allowed range.
func (f *ListingFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
