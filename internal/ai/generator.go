package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ErrEmptyCompletion is returned when the provider answers without usable text.
var ErrEmptyCompletion = errors.New("ai: empty completion")

// ListingPrompt holds the structured facts the copy is generated from.
type ListingPrompt struct {
	Bedrooms     int      `json:"bedrooms"`
	Bathrooms    float64  `json:"bathrooms"`
	SquareFeet   int      `json:"square_feet,omitempty"`
	Rent         float64  `json:"rent"`
	Neighborhood string   `json:"neighborhood,omitempty"`
	Borough      string   `json:"borough,omitempty"`
	PetsAllowed  bool     `json:"pets_allowed"`
	Amenities    []string `json:"amenities,omitempty"`
	Highlights   string   `json:"highlights,omitempty"`
}

type ListingText struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Generated   bool   `json:"generated"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

const systemPrompt = `You write rental listing copy. Reply with a JSON object {"title": string, "description": string}. ` +
	`The title is at most 80 characters. The description is 2 short paragraphs, factual, no invented amenities.`

// Generator calls an OpenAI-compatible chat completions endpoint.
type Generator struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

func NewGenerator(baseURL, apiKey, model string, timeout time.Duration) *Generator {
	return &Generator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: timeout},
	}
}

// GenerateListingText asks the provider for a title and description, retrying once.
func (g *Generator) GenerateListingText(ctx context.Context, p ListingPrompt) (*ListingText, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		text, err := g.generate(ctx, p)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (g *Generator) generate(ctx context.Context, p ListingPrompt) (*ListingText, error) {
	facts, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("ai: marshal prompt: %w", err)
	}
	body, err := json.Marshal(chatRequest{
		Model: g.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Listing facts: " + string(facts)},
		},
		Temperature:    0.7,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("ai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.APIKey)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ai: call provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ai: provider returned status %d: %s", resp.StatusCode, gjson.GetBytes(raw, "error.message").String())
	}

	content := gjson.GetBytes(raw, "choices.0.message.content").String()
	if !gjson.Valid(content) {
		return nil, ErrEmptyCompletion
	}
	title := strings.TrimSpace(gjson.Get(content, "title").String())
	desc := strings.TrimSpace(gjson.Get(content, "description").String())
	if title == "" || desc == "" {
		return nil, ErrEmptyCompletion
	}
	return &ListingText{Title: title, Description: desc, Generated: true}, nil
}

// Fallback builds plain copy from the facts when the provider is unavailable.
func Fallback(p ListingPrompt) *ListingText {
	rooms := "Studio"
	if p.Bedrooms > 0 {
		rooms = fmt.Sprintf("%d-Bedroom", p.Bedrooms)
	}
	where := p.Neighborhood
	if where == "" {
		where = p.Borough
	}

	title := rooms + " Apartment"
	if where != "" {
		title += " in " + where
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s apartment with %s bath", rooms, trimFloat(p.Bathrooms))
	if p.SquareFeet > 0 {
		fmt.Fprintf(&b, ", about %d sq ft", p.SquareFeet)
	}
	fmt.Fprintf(&b, ", renting for $%s per month.", trimFloat(p.Rent))
	if len(p.Amenities) > 0 {
		fmt.Fprintf(&b, " Amenities: %s.", strings.Join(p.Amenities, ", "))
	}
	if p.PetsAllowed {
		b.WriteString(" Pets welcome.")
	}
	if p.Highlights != "" {
		b.WriteString(" " + strings.TrimSpace(p.Highlights))
	}
	return &ListingText{Title: title, Description: b.String()}
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
