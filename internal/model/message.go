package model

import "time"

const MaxMessageLength = 5000

type Message struct {
	ID          string     `db:"id" json:"id"`
	ListingID   string     `db:"listing_id" json:"listing_id"`
	SenderID    string     `db:"sender_id" json:"sender_id"`
	RecipientID string     `db:"recipient_id" json:"recipient_id"`
	Body        string     `db:"body" json:"body"`
	ReadAt      *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Thread summarizes the latest message exchanged with one counterpart about one listing.
type Thread struct {
	ListingID      string    `db:"listing_id" json:"listing_id"`
	CounterpartID  string    `db:"counterpart_id" json:"counterpart_id"`
	LastMessageID  string    `db:"last_message_id" json:"last_message_id"`
	LastBody       string    `db:"last_body" json:"last_body"`
	LastSentAt     time.Time `db:"last_sent_at" json:"last_sent_at"`
	UnreadMessages int       `db:"unread_messages" json:"unread_messages"`
}
