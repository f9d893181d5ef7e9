package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/ai"
	"rental-marketplace/internal/geo"
	"rental-marketplace/internal/metrics"
)

const minAutocompleteQuery = 3

// AssistService fronts the AI copywriter and the geocoder.
type AssistService struct {
	generator     TextGenerator
	geocoder      Geocoder
	neighborhoods NeighborhoodStore
	log           *logrus.Logger
}

func NewAssistService(generator TextGenerator, geocoder Geocoder, neighborhoods NeighborhoodStore, log *logrus.Logger) *AssistService {
	return &AssistService{generator: generator, geocoder: geocoder, neighborhoods: neighborhoods, log: log}
}

// ListingText generates a title and description. Provider failures fall back
// to template copy so the caller always gets text.
func (s *AssistService) ListingText(ctx context.Context, neighborhoodID string, p ai.ListingPrompt) *ai.ListingText {
	if neighborhoodID != "" && p.Neighborhood == "" {
		if n, err := s.neighborhoods.GetNeighborhood(ctx, neighborhoodID); err == nil {
			p.Neighborhood = n.Name
		}
	}

	text, err := s.generator.GenerateListingText(ctx, p)
	metrics.RecordExternalCall("ai", err)
	if err != nil {
		s.log.WithError(err).Warn("listing text generation failed, using fallback")
		return ai.Fallback(p)
	}
	return text
}

func (s *AssistService) Autocomplete(ctx context.Context, query string) ([]geo.Place, error) {
	query = strings.TrimSpace(query)
	if len(query) < minAutocompleteQuery {
		return []geo.Place{}, nil
	}
	places, err := s.geocoder.Autocomplete(ctx, query)
	metrics.RecordExternalCall("geo", err)
	if err != nil {
		return nil, fmt.Errorf("AssistService.Autocomplete: %w", err)
	}
	if places == nil {
		places = []geo.Place{}
	}
	return places, nil
}

func (s *AssistService) Geocode(ctx context.Context, address string) (*geo.Place, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("AssistService.Geocode: %w", geo.ErrNoMatch)
	}
	place, err := s.geocoder.Geocode(ctx, address)
	metrics.RecordExternalCall("geo", err)
	if err != nil {
		return nil, fmt.Errorf("AssistService.Geocode: %w", err)
	}
	return place, nil
}
