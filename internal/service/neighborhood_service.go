package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"rental-marketplace/internal/model"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

type NeighborhoodService struct {
	store NeighborhoodStore
}

func NewNeighborhoodService(store NeighborhoodStore) *NeighborhoodService {
	return &NeighborhoodService{store: store}
}

func (s *NeighborhoodService) Boroughs(ctx context.Context) ([]model.Borough, error) {
	out, err := s.store.ListBoroughs(ctx)
	if err != nil {
		return nil, fmt.Errorf("NeighborhoodService.Boroughs: %w", err)
	}
	if out == nil {
		out = []model.Borough{}
	}
	return out, nil
}

func (s *NeighborhoodService) Neighborhoods(ctx context.Context, boroughID string) ([]model.Neighborhood, error) {
	out, err := s.store.ListNeighborhoods(ctx, boroughID)
	if err != nil {
		return nil, fmt.Errorf("NeighborhoodService.Neighborhoods: %w", err)
	}
	if out == nil {
		out = []model.Neighborhood{}
	}
	return out, nil
}

func (s *NeighborhoodService) Get(ctx context.Context, id string) (*model.Neighborhood, error) {
	n, err := s.store.GetNeighborhood(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("NeighborhoodService.Get: %w", err)
	}
	return n, nil
}

func (s *NeighborhoodService) CreateBorough(ctx context.Context, name string) (*model.Borough, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &model.FieldError{Field: "name", Message: "is required"}
	}
	b := &model.Borough{ID: uuid.NewString(), Name: name, Slug: slugify(name), CreatedAt: time.Now()}
	if err := s.store.CreateBorough(ctx, b); err != nil {
		return nil, fmt.Errorf("NeighborhoodService.CreateBorough: %w", err)
	}
	return b, nil
}

func (s *NeighborhoodService) CreateNeighborhood(ctx context.Context, in model.Neighborhood) (*model.Neighborhood, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.BoroughID == "" {
		return nil, &model.FieldError{Field: "borough_id", Message: "is required"}
	}
	if in.Name == "" {
		return nil, &model.FieldError{Field: "name", Message: "is required"}
	}
	in.ID = uuid.NewString()
	in.Slug = slugify(in.Name)
	in.CreatedAt = time.Now()
	if err := s.store.CreateNeighborhood(ctx, &in); err != nil {
		return nil, fmt.Errorf("NeighborhoodService.CreateNeighborhood: %w", err)
	}
	return &in, nil
}
