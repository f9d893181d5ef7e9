package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/metrics"
	"rental-marketplace/internal/model"
)

// BadgeNone is reported for listings that never started a subscription.
const BadgeNone = "none"

type SubscriptionService struct {
	subs SubscriptionStore
	log  *logrus.Logger
	now  func() time.Time
}

func NewSubscriptionService(subs SubscriptionStore, log *logrus.Logger) *SubscriptionService {
	return &SubscriptionService{subs: subs, log: log, now: time.Now}
}

// Badge summarizes the latest subscription of a listing.
func (s *SubscriptionService) Badge(ctx context.Context, listingID string) (model.Badge, error) {
	sub, err := s.subs.LatestForListing(ctx, listingID)
	if isNotFound(err) {
		return model.Badge{Status: BadgeNone}, nil
	}
	if err != nil {
		return model.Badge{}, fmt.Errorf("SubscriptionService.Badge: %w", err)
	}
	return badgeFor(sub, s.now()), nil
}

// ExpireDue expires lapsed subscriptions and archives their listings.
func (s *SubscriptionService) ExpireDue(ctx context.Context) (int, error) {
	ids, err := s.subs.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("SubscriptionService.ExpireDue: %w", err)
	}
	metrics.RecordExpired(len(ids))
	for range ids {
		metrics.RecordTransition(model.ListingArchived)
	}
	if len(ids) > 0 {
		s.log.WithField("listings", ids).Info("expired subscriptions, listings archived")
	}
	return len(ids), nil
}

func badgeFor(sub *model.SubscriptionStatus, now time.Time) model.Badge {
	return model.Badge{
		Status:           sub.Status,
		Active:           sub.ActiveAt(now),
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
