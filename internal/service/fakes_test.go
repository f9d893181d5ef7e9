package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"rental-marketplace/internal/ai"
	"rental-marketplace/internal/email"
	"rental-marketplace/internal/geo"
	"rental-marketplace/internal/logger"
	"rental-marketplace/internal/model"
	"rental-marketplace/internal/payment"
	"rental-marketplace/internal/repository"
	"rental-marketplace/internal/store"
)

var testLog = logger.Discard()

type fakeListings struct {
	byID       map[string]*model.Listing
	lastFilter model.ListingFilter
}

func newFakeListings(ls ...*model.Listing) *fakeListings {
	f := &fakeListings{byID: map[string]*model.Listing{}}
	for _, l := range ls {
		f.byID[l.ID] = l
	}
	return f
}

func (f *fakeListings) Create(_ context.Context, l *model.Listing) error {
	cp := *l
	f.byID[l.ID] = &cp
	return nil
}

func (f *fakeListings) GetByID(_ context.Context, id string) (*model.Listing, error) {
	l, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeListings) List(_ context.Context, filter model.ListingFilter) ([]model.Listing, error) {
	f.lastFilter = filter
	var out []model.Listing
	for _, l := range f.byID {
		if l.Status == filter.Status {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeListings) ListByOwner(_ context.Context, ownerID string) ([]model.Listing, error) {
	var out []model.Listing
	for _, l := range f.byID {
		if l.OwnerID == ownerID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeListings) GetByIDs(_ context.Context, ids []string) ([]model.Listing, error) {
	var out []model.Listing
	for _, id := range ids {
		if l, ok := f.byID[id]; ok {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeListings) Update(_ context.Context, l *model.Listing) error {
	if _, ok := f.byID[l.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *l
	f.byID[l.ID] = &cp
	return nil
}

func (f *fakeListings) UpdateStatus(_ context.Context, id, status string) error {
	l, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	l.Status = status
	return nil
}

func (f *fakeListings) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeListings) UpdatePhotoFileID(_ context.Context, id, fileID string) error {
	l, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	l.PhotoFileID = fileID
	return nil
}

type fakePhotos struct {
	files   map[string][]byte
	deleted []string
	next    int
}

func newFakePhotos() *fakePhotos { return &fakePhotos{files: map[string][]byte{}} }

func (f *fakePhotos) UploadPhoto(file io.Reader, _, _ string) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	f.next++
	id := fmt.Sprintf("photo-%d", f.next)
	f.files[id] = data
	return id, nil
}

func (f *fakePhotos) DownloadPhoto(id string) ([]byte, string, error) {
	data, ok := f.files[id]
	if !ok {
		return nil, "", repository.ErrNotFound
	}
	return data, "image/png", nil
}

func (f *fakePhotos) DeletePhoto(id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.files, id)
	return nil
}

type fakeProfiles struct {
	byID map[string]*model.UserProfile
}

func newFakeProfiles(ps ...*model.UserProfile) *fakeProfiles {
	f := &fakeProfiles{byID: map[string]*model.UserProfile{}}
	for _, p := range ps {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakeProfiles) Create(_ context.Context, p *model.UserProfile) error {
	for _, existing := range f.byID {
		if existing.Email == p.Email {
			return repository.ErrDuplicate
		}
	}
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (*model.UserProfile, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) GetByEmail(_ context.Context, email string) (*model.UserProfile, error) {
	for _, p := range f.byID {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeProfiles) List(_ context.Context, limit, offset int) ([]model.UserProfile, error) {
	var out []model.UserProfile
	for _, p := range f.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeProfiles) SetPasswordHash(_ context.Context, id, hash string) error {
	p, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.PasswordHash = hash
	return nil
}

func (f *fakeProfiles) MarkEmailVerified(_ context.Context, id string) error {
	p, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.EmailVerified = true
	return nil
}

type fakeTokens struct {
	tokens  map[string]string
	revoked map[string]time.Duration
	next    int
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{tokens: map[string]string{}, revoked: map[string]time.Duration{}}
}

func (f *fakeTokens) Issue(_ context.Context, purpose, userID string, _ time.Duration) (string, error) {
	f.next++
	token := fmt.Sprintf("%s-%d", purpose, f.next)
	f.tokens[token] = userID
	return token, nil
}

func (f *fakeTokens) Consume(_ context.Context, _ string, token string) (string, error) {
	userID, ok := f.tokens[token]
	if !ok {
		return "", store.ErrTokenInvalid
	}
	delete(f.tokens, token)
	return userID, nil
}

func (f *fakeTokens) RevokeSession(_ context.Context, sessionID string, ttl time.Duration) error {
	f.revoked[sessionID] = ttl
	return nil
}

type fakeIssuer struct{ n int }

func (f *fakeIssuer) Issue(userID, _ string, roles []string) (string, string, error) {
	f.n++
	return fmt.Sprintf("jwt-%s-%d-%d", userID, len(roles), f.n), fmt.Sprintf("sid-%d", f.n), nil
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(ctx context.Context, to, name string, data email.Data) error {
	return m.Called(ctx, to, name, data).Error(0)
}

type fakePublisher struct {
	mu        sync.Mutex
	published map[string][]interface{}
	closed    []string
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{published: map[string][]interface{}{}}
}

func (f *fakePublisher) Publish(userID string, msg interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[userID] = append(f.published[userID], msg)
}

func (f *fakePublisher) Close(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, sessionID)
}

type fakeApplications struct {
	byID      map[string]*model.Application
	insertErr error
}

func newFakeApplications() *fakeApplications {
	return &fakeApplications{byID: map[string]*model.Application{}}
}

func (f *fakeApplications) Insert(_ context.Context, a *model.Application) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeApplications) GetByID(_ context.Context, id string) (*model.Application, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeApplications) FindByListing(_ context.Context, listingID string) ([]model.Application, error) {
	var out []model.Application
	for _, a := range f.byID {
		if a.ListingID == listingID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeApplications) FindByApplicant(_ context.Context, applicantID string) ([]model.Application, error) {
	var out []model.Application
	for _, a := range f.byID {
		if a.ApplicantID == applicantID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeApplications) HasOpen(_ context.Context, listingID, applicantID string) (bool, error) {
	for _, a := range f.byID {
		if a.ListingID == listingID && a.ApplicantID == applicantID && a.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeApplications) CountPendingForOwner(_ context.Context, _ string) (int, error) {
	n := 0
	for _, a := range f.byID {
		if a.Status == model.ApplicationSubmitted {
			n++
		}
	}
	return n, nil
}

func (f *fakeApplications) UpdateStatus(_ context.Context, id, status string) error {
	a, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	return nil
}

type fakeMessages struct {
	msgs []model.Message
}

func (f *fakeMessages) Insert(_ context.Context, m *model.Message) error {
	f.msgs = append(f.msgs, *m)
	return nil
}

func (f *fakeMessages) Conversation(_ context.Context, listingID, a, b string) ([]model.Message, error) {
	var out []model.Message
	for _, m := range f.msgs {
		if m.ListingID == listingID &&
			((m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a)) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessages) Threads(_ context.Context, _ string) ([]model.Thread, error) {
	return nil, nil
}

func (f *fakeMessages) MarkRead(_ context.Context, listingID, senderID, recipientID string) (int64, error) {
	var n int64
	now := time.Now()
	for i := range f.msgs {
		m := &f.msgs[i]
		if m.ListingID == listingID && m.SenderID == senderID && m.RecipientID == recipientID && m.ReadAt == nil {
			m.ReadAt = &now
			n++
		}
	}
	return n, nil
}

func (f *fakeMessages) CountUnread(_ context.Context, recipientID string) (int, error) {
	n := 0
	for _, m := range f.msgs {
		if m.RecipientID == recipientID && m.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

type fakeSaved struct {
	saved map[string]bool
	order []string
}

func newFakeSaved() *fakeSaved { return &fakeSaved{saved: map[string]bool{}} }

func (f *fakeSaved) Toggle(_ context.Context, userID, listingID string) (bool, error) {
	key := userID + "/" + listingID
	if f.saved[key] {
		delete(f.saved, key)
		return false, nil
	}
	f.saved[key] = true
	f.order = append(f.order, listingID)
	return true, nil
}

func (f *fakeSaved) IsSaved(_ context.Context, userID, listingID string) (bool, error) {
	return f.saved[userID+"/"+listingID], nil
}

func (f *fakeSaved) ListingIDs(_ context.Context, userID string) ([]string, error) {
	var out []string
	for _, id := range f.order {
		if f.saved[userID+"/"+id] {
			out = append(out, id)
		}
	}
	return out, nil
}

type fakeSubs struct {
	byID      map[string]*model.SubscriptionStatus
	listings  *fakeListings
	activated int
	expireIDs []string
}

func newFakeSubs(listings *fakeListings) *fakeSubs {
	return &fakeSubs{byID: map[string]*model.SubscriptionStatus{}, listings: listings}
}

func (f *fakeSubs) Create(_ context.Context, s *model.SubscriptionStatus) error {
	cp := *s
	f.byID[s.ID] = &cp
	return nil
}

func (f *fakeSubs) SetCheckoutSession(_ context.Context, id, sessionID string) error {
	s, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.CheckoutSessionID = sessionID
	return nil
}

func (f *fakeSubs) LatestForListing(_ context.Context, listingID string) (*model.SubscriptionStatus, error) {
	var latest *model.SubscriptionStatus
	for _, s := range f.byID {
		if s.ListingID == listingID && (latest == nil || s.CreatedAt.After(latest.CreatedAt)) {
			latest = s
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeSubs) Activate(ctx context.Context, a model.Activation) (bool, error) {
	s, ok := f.byID[a.SubscriptionID]
	if !ok {
		return false, repository.ErrNotFound
	}
	f.activated++
	s.Status = model.SubscriptionActive
	s.CheckoutSessionID = a.CheckoutSessionID
	s.AmountCents = a.AmountCents
	if a.Currency != "" {
		s.Currency = a.Currency
	}
	end := a.PeriodEnd
	s.CurrentPeriodEnd = &end

	l, ok := f.listings.byID[s.ListingID]
	if !ok || l.Status != model.ListingPending {
		return false, nil
	}
	return true, f.listings.UpdateStatus(ctx, s.ListingID, model.ListingPublished)
}

func (f *fakeSubs) ExpireDue(_ context.Context, _ time.Time) ([]string, error) {
	return f.expireIDs, nil
}

type fakeDrafts struct {
	byID map[string]model.SubmissionDraft
}

func newFakeDrafts() *fakeDrafts { return &fakeDrafts{byID: map[string]model.SubmissionDraft{}} }

func (f *fakeDrafts) Save(_ context.Context, d *model.SubmissionDraft) error {
	f.byID[d.ID] = *d
	return nil
}

func (f *fakeDrafts) Get(_ context.Context, id string) (*model.SubmissionDraft, error) {
	d, ok := f.byID[id]
	if !ok {
		return nil, store.ErrDraftNotFound
	}
	return &d, nil
}

func (f *fakeDrafts) Delete(_ context.Context, id string) error {
	delete(f.byID, id)
	return nil
}

type fakeGeocoder struct {
	place *geo.Place
	err   error
	calls int
}

func (f *fakeGeocoder) Autocomplete(_ context.Context, _ string) ([]geo.Place, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []geo.Place{*f.place}, nil
}

func (f *fakeGeocoder) Geocode(_ context.Context, _ string) (*geo.Place, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p := *f.place
	return &p, nil
}

type fakeGenerator struct {
	text   *ai.ListingText
	err    error
	prompt ai.ListingPrompt
}

func (f *fakeGenerator) GenerateListingText(_ context.Context, p ai.ListingPrompt) (*ai.ListingText, error) {
	f.prompt = p
	return f.text, f.err
}

type mockGateway struct{ mock.Mock }

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(*payment.CheckoutSession)
	return s, args.Error(1)
}

func (m *mockGateway) ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	args := m.Called(payload, signature)
	ev, _ := args.Get(0).(*payment.WebhookEvent)
	return ev, args.Error(1)
}

func publishedListing(id, ownerID string) *model.Listing {
	return &model.Listing{
		ID:             id,
		OwnerID:        ownerID,
		NeighborhoodID: "nb-1",
		Title:          "Sunny 2BR",
		Description:    "Walk-up near the park",
		Address:        "12 Elm St",
		Rent:           2400,
		Bedrooms:       2,
		Bathrooms:      1,
		Status:         model.ListingPublished,
	}
}

func photoReader(s string) io.Reader { return bytes.NewBufferString(s) }
