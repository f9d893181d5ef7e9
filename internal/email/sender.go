package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Template names.
const (
	TemplateVerifyEmail         = "verify_email"
	TemplatePasswordReset       = "password_reset"
	TemplateApplicationReceived = "application_received"
	TemplateNewMessage          = "new_message"
	TemplateListingPublished    = "listing_published"
)

var subjects = map[string]string{
	TemplateVerifyEmail:         "Verify your email",
	TemplatePasswordReset:       "Reset your password",
	TemplateApplicationReceived: "New application for your listing",
	TemplateNewMessage:          "You have a new message",
	TemplateListingPublished:    "Your listing is live",
}

type payload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Sender renders transactional emails and posts them to the email API.
type Sender struct {
	BaseURL string
	APIKey  string
	From    string
	HTTP    *http.Client
	log     *logrus.Logger
}

func NewSender(baseURL, apiKey, from string, log *logrus.Logger) *Sender {
	return &Sender{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		From:    from,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// Render produces the subject and HTML body for a template.
func Render(name string, data Data) (string, string, error) {
	subject, ok := subjects[name]
	if !ok {
		return "", "", fmt.Errorf("email: unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", "", fmt.Errorf("email: render %s: %w", name, err)
	}
	return subject, buf.String(), nil
}

// Send renders the template and dispatches it to a single recipient. Without
// an API key the email is logged and dropped.
func (s *Sender) Send(ctx context.Context, to, name string, data Data) error {
	subject, html, err := Render(name, data)
	if err != nil {
		return err
	}
	if s.APIKey == "" {
		s.log.WithFields(logrus.Fields{"to": to, "template": name}).Warn("email API key not set, skipping send")
		return nil
	}

	body, err := json.Marshal(payload{From: s.From, To: []string{to}, Subject: subject, HTML: html})
	if err != nil {
		return fmt.Errorf("email: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("email: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("email: call provider: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("email: provider returned status %d: %s", resp.StatusCode, gjson.GetBytes(raw, "message").String())
	}
	s.log.WithFields(logrus.Fields{
		"template": name,
		"email_id": gjson.GetBytes(raw, "id").String(),
	}).Info("email sent")
	return nil
}
