package service

import (
	"context"
	"io"
	"time"

	"rental-marketplace/internal/ai"
	"rental-marketplace/internal/email"
	"rental-marketplace/internal/geo"
	"rental-marketplace/internal/model"
	"rental-marketplace/internal/payment"
)

type ListingStore interface {
	Create(ctx context.Context, l *model.Listing) error
	GetByID(ctx context.Context, id string) (*model.Listing, error)
	List(ctx context.Context, f model.ListingFilter) ([]model.Listing, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Listing, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Listing, error)
	Update(ctx context.Context, l *model.Listing) error
	UpdateStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
	UpdatePhotoFileID(ctx context.Context, listingID string, fileID string) error
}

type PhotoStore interface {
	UploadPhoto(file io.Reader, filename, contentType string) (string, error)
	DownloadPhoto(photoID string) ([]byte, string, error)
	DeletePhoto(photoID string) error
}

type ProfileStore interface {
	Create(ctx context.Context, p *model.UserProfile) error
	GetByID(ctx context.Context, id string) (*model.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (*model.UserProfile, error)
	List(ctx context.Context, limit, offset int) ([]model.UserProfile, error)
	SetPasswordHash(ctx context.Context, id, hash string) error
	MarkEmailVerified(ctx context.Context, id string) error
}

type NeighborhoodStore interface {
	ListBoroughs(ctx context.Context) ([]model.Borough, error)
	ListNeighborhoods(ctx context.Context, boroughID string) ([]model.Neighborhood, error)
	GetNeighborhood(ctx context.Context, id string) (*model.Neighborhood, error)
	CreateBorough(ctx context.Context, b *model.Borough) error
	CreateNeighborhood(ctx context.Context, n *model.Neighborhood) error
}

type ApplicationStore interface {
	Insert(ctx context.Context, a *model.Application) error
	GetByID(ctx context.Context, id string) (*model.Application, error)
	FindByListing(ctx context.Context, listingID string) ([]model.Application, error)
	FindByApplicant(ctx context.Context, applicantID string) ([]model.Application, error)
	HasOpen(ctx context.Context, listingID, applicantID string) (bool, error)
	CountPendingForOwner(ctx context.Context, ownerID string) (int, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

type MessageStore interface {
	Insert(ctx context.Context, m *model.Message) error
	Conversation(ctx context.Context, listingID, userA, userB string) ([]model.Message, error)
	Threads(ctx context.Context, userID string) ([]model.Thread, error)
	MarkRead(ctx context.Context, listingID, senderID, recipientID string) (int64, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
}

type SavedStore interface {
	Toggle(ctx context.Context, userID, listingID string) (bool, error)
	IsSaved(ctx context.Context, userID, listingID string) (bool, error)
	ListingIDs(ctx context.Context, userID string) ([]string, error)
}

type SubscriptionStore interface {
	Create(ctx context.Context, s *model.SubscriptionStatus) error
	SetCheckoutSession(ctx context.Context, id, sessionID string) error
	LatestForListing(ctx context.Context, listingID string) (*model.SubscriptionStatus, error)
	// Activate reports whether the listing was published; a listing that
	// left pending before payment completed stays where it is.
	Activate(ctx context.Context, a model.Activation) (published bool, err error)
	ExpireDue(ctx context.Context, now time.Time) ([]string, error)
}

type DraftStore interface {
	Save(ctx context.Context, d *model.SubmissionDraft) error
	Get(ctx context.Context, id string) (*model.SubmissionDraft, error)
	Delete(ctx context.Context, id string) error
}

type TokenStore interface {
	Issue(ctx context.Context, purpose, userID string, ttl time.Duration) (string, error)
	Consume(ctx context.Context, purpose, token string) (string, error)
	RevokeSession(ctx context.Context, sessionID string, ttl time.Duration) error
}

// TokenIssuer signs access tokens and returns the token with its session id.
type TokenIssuer interface {
	Issue(userID, email string, roles []string) (string, string, error)
}

type Mailer interface {
	Send(ctx context.Context, to, name string, data email.Data) error
}

type Geocoder interface {
	Autocomplete(ctx context.Context, query string) ([]geo.Place, error)
	Geocode(ctx context.Context, address string) (*geo.Place, error)
}

type TextGenerator interface {
	GenerateListingText(ctx context.Context, p ai.ListingPrompt) (*ai.ListingText, error)
}

type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error)
}

// Publisher pushes realtime messages to a user's open channels.
type Publisher interface {
	Publish(userID string, msg interface{})
	Close(sessionID string)
}
