package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rental-marketplace/internal/email"
	"rental-marketplace/internal/model"
)

func newMessageFixture() (*MessageService, *fakeMessages, *fakePublisher, *mockMailer) {
	msgs := &fakeMessages{}
	publisher := newFakePublisher()
	mailer := &mockMailer{}
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	profiles := newFakeProfiles(
		&model.UserProfile{ID: "owner", Email: "owner@example.com"},
		&model.UserProfile{ID: "tess", Email: "tess@example.com"},
	)
	notifier := NewNotifier(msgs, newFakeApplications(), publisher, testLog)
	svc := NewMessageService(msgs, newFakeListings(publishedListing("l1", "owner")), profiles, mailer, notifier, "https://rentals.test", testLog)
	return svc, msgs, publisher, mailer
}

func TestMessageService_SendValidation(t *testing.T) {
	svc, _, _, _ := newMessageFixture()

	tests := []struct {
		name      string
		recipient string
		body      string
		field     string
	}{
		{"empty body", "owner", "   ", "body"},
		{"too long", "owner", strings.Repeat("a", model.MaxMessageLength+1), "body"},
		{"to self", "tess", "hi", "recipient_id"},
		{"no recipient", "", "hi", "recipient_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Send(context.Background(), "tess", "l1", tt.recipient, tt.body)
			var fe *model.FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestMessageService_SendMustInvolveOwner(t *testing.T) {
	svc, _, _, _ := newMessageFixture()
	_, err := svc.Send(context.Background(), "tess", "l1", "stranger", "hello")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestMessageService_SendNotifiesAndMarksRead(t *testing.T) {
	svc, _, publisher, mailer := newMessageFixture()
	ctx := context.Background()

	m, err := svc.Send(ctx, "tess", "l1", "owner", "  Is it still available?  ")
	require.NoError(t, err)
	assert.Equal(t, "Is it still available?", m.Body)

	require.Len(t, publisher.published["owner"], 1)
	assert.Equal(t, 1, publisher.published["owner"][0].(Notification).Counts.UnreadMessages)
	mailer.AssertCalled(t, "Send", mock.Anything, "owner@example.com", email.TemplateNewMessage, mock.Anything)

	unread, err := svc.UnreadCount(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	n, err := svc.MarkRead(ctx, "owner", "l1", "tess")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, 0, publisher.published["owner"][1].(Notification).Counts.UnreadMessages)

	convo, err := svc.Conversation(ctx, "owner", "l1", "tess")
	require.NoError(t, err)
	require.Len(t, convo, 1)
	assert.NotNil(t, convo[0].ReadAt)
}
