package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"rental-marketplace/internal/model"
)

type MessageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Insert(ctx context.Context, m *model.Message) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO messages (id, listing_id, sender_id, recipient_id, body, created_at)
		VALUES (:id, :listing_id, :sender_id, :recipient_id, :body, :created_at)
	`, m)
	if err != nil {
		return fmt.Errorf("MessageRepository.Insert: %w", err)
	}
	return nil
}

// Conversation returns the messages exchanged between two users about a listing, oldest first.
func (r *MessageRepository) Conversation(ctx context.Context, listingID, userA, userB string) ([]model.Message, error) {
	var out []model.Message
	err := r.db.SelectContext(ctx, &out, `
		SELECT * FROM messages
		WHERE listing_id = $1
		  AND ((sender_id = $2 AND recipient_id = $3) OR (sender_id = $3 AND recipient_id = $2))
		ORDER BY created_at ASC
	`, listingID, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("MessageRepository.Conversation: %w", err)
	}
	return out, nil
}

// Threads returns one row per (listing, counterpart) with the latest message.
func (r *MessageRepository) Threads(ctx context.Context, userID string) ([]model.Thread, error) {
	var out []model.Thread
	err := r.db.SelectContext(ctx, &out, `
		WITH mine AS (
			SELECT m.*,
			       CASE WHEN m.sender_id = $1 THEN m.recipient_id ELSE m.sender_id END AS counterpart_id
			FROM messages m
			WHERE m.sender_id = $1 OR m.recipient_id = $1
		)
		SELECT DISTINCT ON (listing_id, counterpart_id)
		       listing_id,
		       counterpart_id,
		       id         AS last_message_id,
		       body       AS last_body,
		       created_at AS last_sent_at,
		       (SELECT COUNT(1) FROM mine u
		         WHERE u.listing_id = mine.listing_id
		           AND u.counterpart_id = mine.counterpart_id
		           AND u.recipient_id = $1
		           AND u.read_at IS NULL) AS unread_messages
		FROM mine
		ORDER BY listing_id, counterpart_id, created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("MessageRepository.Threads: %w", err)
	}
	return out, nil
}

// MarkRead marks every unread message from sender to recipient about a listing as read.
func (r *MessageRepository) MarkRead(ctx context.Context, listingID, senderID, recipientID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET read_at = $1
		WHERE listing_id = $2 AND sender_id = $3 AND recipient_id = $4 AND read_at IS NULL
	`, time.Now(), listingID, senderID, recipientID)
	if err != nil {
		return 0, fmt.Errorf("MessageRepository.MarkRead: %w", err)
	}
	return res.RowsAffected()
}

func (r *MessageRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(1) FROM messages WHERE recipient_id = $1 AND read_at IS NULL`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("MessageRepository.CountUnread: %w", err)
	}
	return count, nil
}
