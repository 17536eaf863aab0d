package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soundrift/billingsync/app/models"
	"github.com/soundrift/billingsync/internal/pkg/cache"
	"gorm.io/gorm"
)

const statusCacheTTL = 15 * time.Minute

// StatusCache stores the effective subscription status per user so the
// subscription read endpoint can answer without a DB round-trip.
type StatusCache interface {
	SetUserStatus(userID uint, status string) error
	GetUserStatus(userID uint) (string, error)
}

type redisStatusCache struct{}

func (redisStatusCache) SetUserStatus(userID uint, status string) error {
	return cache.Set(cache.UserSubscriptionStatusKey(userID), status, statusCacheTTL)
}

func (redisStatusCache) GetUserStatus(userID uint) (string, error) {
	return cache.Get(cache.UserSubscriptionStatusKey(userID))
}

// Service synchronizes Stripe-side billing state into local storage.
type Service struct {
	repo        Repository
	provider    Provider
	statusCache StatusCache
}

// NewService creates a billing service from injected collaborators. A nil
// statusCache disables status caching (used by tests).
func NewService(repo Repository, provider Provider, statusCache StatusCache) *Service {
	return &Service{repo: repo, provider: provider, statusCache: statusCache}
}

// NewServiceFromDB creates a billing service from a GORM DB handle, backed by
// the shared Redis status cache.
func NewServiceFromDB(db *gorm.DB, provider Provider) *Service {
	return NewService(NewRepository(db), provider, redisStatusCache{})
}

// RecordWebhookEvent persists webhook payloads idempotently. The returned
// bool is false when the event ID was already seen.
func (s *Service) RecordWebhookEvent(ctx context.Context, eventID, eventType, payloadJSON string) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	id := strings.TrimSpace(eventID)
	if id == "" {
		sum := sha256.Sum256([]byte(payloadJSON))
		id = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: id,
		EventType:       strings.TrimSpace(eventType),
		PayloadJSON:     payloadJSON,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// GetUserSubscription returns the stored subscription for a user.
func (s *Service) GetUserSubscription(ctx context.Context, userID uint) (*models.Subscription, error) {
	_ = ctx
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}
	return s.repo.GetSubscriptionByUser(userID)
}

// EffectiveStatus returns the user's subscription status, cache-first.
func (s *Service) EffectiveStatus(ctx context.Context, userID uint) (string, error) {
	if s.statusCache != nil {
		if status, err := s.statusCache.GetUserStatus(userID); err == nil && status != "" {
			return status, nil
		}
	}
	sub, err := s.GetUserSubscription(ctx, userID)
	if err != nil {
		return "", err
	}
	s.cacheStatus(sub.UserID, sub.Status)
	return sub.Status, nil
}

// CreatePortalLink returns a provider-hosted subscription management URL for
// the user's mapped customer.
func (s *Service) CreatePortalLink(ctx context.Context, userID uint, returnURL string) (string, error) {
	c, err := s.repo.GetCustomerByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: user %d", ErrUnknownCustomer, userID)
		}
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return s.provider.CreatePortalSession(ctx, c.ProviderCustomerID, returnURL)
}

func (s *Service) cacheStatus(userID uint, status string) {
	if s.statusCache == nil {
		return
	}
	// Best effort: a cache miss later just falls through to MySQL.
	_ = s.statusCache.SetUserStatus(userID, status)
}
