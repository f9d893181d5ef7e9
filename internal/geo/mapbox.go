package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ErrNoMatch is returned when the provider finds no place for an address.
var ErrNoMatch = errors.New("geo: no match for address")

type Place struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Client wraps the Mapbox forward geocoding endpoint.
type Client struct {
	BaseURL     string
	AccessToken string
	HTTP        *http.Client
}

func NewClient(baseURL, accessToken string) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		AccessToken: accessToken,
		HTTP:        &http.Client{Timeout: 10 * time.Second},
	}
}

// Autocomplete returns up to five address suggestions for a partial query.
func (c *Client) Autocomplete(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Place{}, nil
	}
	return c.search(ctx, query, true, 5)
}

// Geocode resolves a full address to its best-matching coordinates.
func (c *Client) Geocode(ctx context.Context, address string) (*Place, error) {
	places, err := c.search(ctx, strings.TrimSpace(address), false, 1)
	if err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, ErrNoMatch
	}
	return &places[0], nil
}

func (c *Client) search(ctx context.Context, query string, autocomplete bool, limit int) ([]Place, error) {
	params := url.Values{}
	params.Set("access_token", c.AccessToken)
	params.Set("autocomplete", fmt.Sprintf("%t", autocomplete))
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("types", "address")
	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?%s",
		c.BaseURL, url.PathEscape(query), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("geo: create request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo: call provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("geo: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo: provider returned status %d: %s", resp.StatusCode, gjson.GetBytes(raw, "message").String())
	}

	places := []Place{}
	gjson.GetBytes(raw, "features").ForEach(func(_, f gjson.Result) bool {
		center := f.Get("center").Array()
		if len(center) != 2 {
			return true
		}
		places = append(places, Place{
			Name:      f.Get("place_name").String(),
			Longitude: center[0].Float(),
			Latitude:  center[1].Float(),
		})
		return true
	})
	return places, nil
}
