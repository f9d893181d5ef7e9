package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Counts is the payload of the notification-count channel.
type Counts struct {
	UnreadMessages      int `json:"unread_messages"`
	PendingApplications int `json:"pending_applications"`
}

type Notification struct {
	Type   string `json:"type"`
	Counts Counts `json:"counts"`
}

// Notifier computes a user's notification counts and pushes them to their
// realtime channels.
type Notifier struct {
	messages     MessageStore
	applications ApplicationStore
	publisher    Publisher
	log          *logrus.Logger
}

func NewNotifier(messages MessageStore, applications ApplicationStore, publisher Publisher, log *logrus.Logger) *Notifier {
	return &Notifier{messages: messages, applications: applications, publisher: publisher, log: log}
}

func (n *Notifier) Counts(ctx context.Context, userID string) (Counts, error) {
	unread, err := n.messages.CountUnread(ctx, userID)
	if err != nil {
		return Counts{}, fmt.Errorf("Notifier.Counts: %w", err)
	}
	pending, err := n.applications.CountPendingForOwner(ctx, userID)
	if err != nil {
		return Counts{}, fmt.Errorf("Notifier.Counts: %w", err)
	}
	return Counts{UnreadMessages: unread, PendingApplications: pending}, nil
}

// Refresh recomputes the counts and publishes them. Failures are only logged.
func (n *Notifier) Refresh(ctx context.Context, userID string) {
	counts, err := n.Counts(ctx, userID)
	if err != nil {
		n.log.WithError(err).WithField("user_id", userID).Warn("notification counts unavailable")
		return
	}
	n.publisher.Publish(userID, Notification{Type: "counts", Counts: counts})
}
