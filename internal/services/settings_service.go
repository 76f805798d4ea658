package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"membership-api/internal/config"
	"membership-api/internal/database"
	"membership-api/pkg/logging"

	"github.com/redis/go-redis/v9"
)

// Redis keys for runtime membership configuration. Admins update these
// without a redeploy.
const (
	settingKeyFeeCents = "membership:fee_cents"
	settingKeyPriceID  = "membership:stripe_price_id"
)

// ErrPlanNotConfigured is returned when the Stripe recurring price id is
// missing from the configuration store. The checkout path fails fast on
// it; nothing else needs the plan reference.
var ErrPlanNotConfigured = errors.New("membership plan price id is not configured")

// MembershipSettings is the typed snapshot of the runtime configuration
type MembershipSettings struct {
	MembershipFeeCents int64  `json:"membership_fee_cents"`
	StripePriceID      string `json:"stripe_price_id"`
}

// SettingsService loads membership fee and plan configuration from the
// redis key-value store, with a short-lived cached snapshot and an
// explicit reload boundary.
type SettingsService struct {
	client   *redis.Client
	cacheTTL time.Duration

	mu        sync.RWMutex
	cached    *MembershipSettings
	fetchedAt time.Time
}

// NewSettingsService creates a new settings service
func NewSettingsService() *SettingsService {
	return &SettingsService{
		client:   database.GetRedis(),
		cacheTTL: time.Minute,
	}
}

// Load returns the current settings, refetching when the cached snapshot
// is older than the cache TTL. The fee falls back to the env default
// when the key is unset; the price id has no fallback.
func (s *SettingsService) Load(ctx context.Context) (*MembershipSettings, error) {
	s.mu.RLock()
	if s.cached != nil && time.Since(s.fetchedAt) < s.cacheTTL {
		settings := *s.cached
		s.mu.RUnlock()
		return &settings, nil
	}
	s.mu.RUnlock()

	return s.Reload(ctx)
}

// Reload forces a refetch from the configuration store
func (s *SettingsService) Reload(ctx context.Context) (*MembershipSettings, error) {
	settings := &MembershipSettings{
		MembershipFeeCents: config.AppConfig.DefaultMembershipFeeCents,
	}

	feeVal, err := s.client.Get(ctx, settingKeyFeeCents).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read membership fee: %w", err)
	}
	if err == nil {
		fee, parseErr := strconv.ParseInt(feeVal, 10, 64)
		if parseErr != nil || fee < 0 {
			logging.Errorf("Invalid membership fee in settings store: %q, using default", feeVal)
		} else {
			settings.MembershipFeeCents = fee
		}
	}

	priceID, err := s.client.Get(ctx, settingKeyPriceID).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read plan price id: %w", err)
	}
	if err == nil {
		settings.StripePriceID = priceID
	}

	s.mu.Lock()
	s.cached = settings
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	snapshot := *settings
	return &snapshot, nil
}

// Update writes new settings to the store and refreshes the snapshot.
// A zero fee or empty price id leaves the respective key untouched.
func (s *SettingsService) Update(ctx context.Context, feeCents int64, priceID string) (*MembershipSettings, error) {
	if feeCents > 0 {
		if err := s.client.Set(ctx, settingKeyFeeCents, strconv.FormatInt(feeCents, 10), 0).Err(); err != nil {
			return nil, fmt.Errorf("failed to update membership fee: %w", err)
		}
	}
	if priceID != "" {
		if err := s.client.Set(ctx, settingKeyPriceID, priceID, 0).Err(); err != nil {
			return nil, fmt.Errorf("failed to update plan price id: %w", err)
		}
	}
	return s.Reload(ctx)
}
