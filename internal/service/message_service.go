package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/email"
	"rental-marketplace/internal/metrics"
	"rental-marketplace/internal/model"
)

type MessageService struct {
	messages  MessageStore
	listings  ListingStore
	profiles  ProfileStore
	mailer    Mailer
	notifier  *Notifier
	publicURL string
	log       *logrus.Logger
	now       func() time.Time
}

func NewMessageService(
	messages MessageStore,
	listings ListingStore,
	profiles ProfileStore,
	mailer Mailer,
	notifier *Notifier,
	publicURL string,
	log *logrus.Logger,
) *MessageService {
	return &MessageService{
		messages:  messages,
		listings:  listings,
		profiles:  profiles,
		mailer:    mailer,
		notifier:  notifier,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log,
		now:       time.Now,
	}
}

// Send delivers a message about a listing. One side of the conversation must
// be the listing owner.
func (s *MessageService) Send(ctx context.Context, senderID, listingID, recipientID, body string) (*model.Message, error) {
	body = strings.TrimSpace(body)
	switch {
	case body == "":
		return nil, &model.FieldError{Field: "body", Message: "is required"}
	case utf8.RuneCountInString(body) > model.MaxMessageLength:
		return nil, &model.FieldError{Field: "body", Message: fmt.Sprintf("must be at most %d characters", model.MaxMessageLength)}
	case recipientID == "":
		return nil, &model.FieldError{Field: "recipient_id", Message: "is required"}
	case recipientID == senderID:
		return nil, &model.FieldError{Field: "recipient_id", Message: "cannot message yourself"}
	}

	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("MessageService.Send: %w", err)
	}
	if l.OwnerID != senderID && l.OwnerID != recipientID {
		return nil, fmt.Errorf("%w: messages must involve the listing owner", ErrForbidden)
	}
	if l.OwnerID == recipientID && l.Status != model.ListingPublished {
		return nil, fmt.Errorf("MessageService.Send: %w", ErrNotFound)
	}

	m := &model.Message{
		ID:          uuid.NewString(),
		ListingID:   listingID,
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
		CreatedAt:   s.now(),
	}
	if err := s.messages.Insert(ctx, m); err != nil {
		return nil, fmt.Errorf("MessageService.Send: %w", err)
	}

	s.notifier.Refresh(ctx, recipientID)
	s.emailRecipient(ctx, l, m)
	return m, nil
}

// Conversation returns the messages between the caller and counterpart about a listing.
func (s *MessageService) Conversation(ctx context.Context, userID, listingID, counterpartID string) ([]model.Message, error) {
	out, err := s.messages.Conversation(ctx, listingID, userID, counterpartID)
	if err != nil {
		return nil, fmt.Errorf("MessageService.Conversation: %w", err)
	}
	if out == nil {
		out = []model.Message{}
	}
	return out, nil
}

// Inbox returns the latest message of each of the caller's threads.
func (s *MessageService) Inbox(ctx context.Context, userID string) ([]model.Thread, error) {
	out, err := s.messages.Threads(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("MessageService.Inbox: %w", err)
	}
	if out == nil {
		out = []model.Thread{}
	}
	return out, nil
}

// MarkRead marks what counterpart sent the caller about a listing as read.
func (s *MessageService) MarkRead(ctx context.Context, userID, listingID, counterpartID string) (int64, error) {
	n, err := s.messages.MarkRead(ctx, listingID, counterpartID, userID)
	if err != nil {
		return 0, fmt.Errorf("MessageService.MarkRead: %w", err)
	}
	if n > 0 {
		s.notifier.Refresh(ctx, userID)
	}
	return n, nil
}

func (s *MessageService) UnreadCount(ctx context.Context, userID string) (int, error) {
	n, err := s.messages.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("MessageService.UnreadCount: %w", err)
	}
	return n, nil
}

func (s *MessageService) emailRecipient(ctx context.Context, l *model.Listing, m *model.Message) {
	recipient, err := s.profiles.GetByID(ctx, m.RecipientID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", m.RecipientID).Warn("recipient not loaded for message email")
		return
	}
	err = s.mailer.Send(ctx, recipient.Email, email.TemplateNewMessage, email.Data{
		Name:         recipient.FullName,
		ListingTitle: l.Title,
		Body:         m.Body,
		Link:         s.publicURL + "/messages?listing_id=" + l.ID + "&with=" + m.SenderID,
	})
	metrics.RecordExternalCall("email", err)
	if err != nil {
		s.log.WithError(err).WithField("message_id", m.ID).Warn("message email not sent")
	}
}
