package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rental-marketplace/internal/model"
)

// ErrDraftNotFound is returned for unknown or expired submission drafts.
var ErrDraftNotFound = errors.New("submission draft not found")

// DraftStore keeps submission wizard drafts in Redis with a sliding TTL.
type DraftStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDraftStore(rdb *redis.Client, ttl time.Duration) *DraftStore {
	return &DraftStore{rdb: rdb, ttl: ttl}
}

func draftKey(id string) string { return "submission:draft:" + id }

func (s *DraftStore) Save(ctx context.Context, d *model.SubmissionDraft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("DraftStore.Save: marshal: %w", err)
	}
	if err := s.rdb.Set(ctx, draftKey(d.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("DraftStore.Save: %w", err)
	}
	return nil
}

func (s *DraftStore) Get(ctx context.Context, id string) (*model.SubmissionDraft, error) {
	data, err := s.rdb.Get(ctx, draftKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("DraftStore.Get: %w", err)
	}
	var d model.SubmissionDraft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("DraftStore.Get: unmarshal: %w", err)
	}
	return &d, nil
}

func (s *DraftStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, draftKey(id)).Err(); err != nil {
		return fmt.Errorf("DraftStore.Delete: %w", err)
	}
	return nil
}
