package services

import (
	"context"
	"time"

	"membership-api/internal/database"
	"membership-api/pkg/logging"

	"github.com/redis/go-redis/v9"
)

// ReplayGuard filters duplicate webhook deliveries before they reach the
// database. It is a fast first line only; the payment_event table inside
// the reconciliation transaction is the authority, so the guard fails
// open when redis is unavailable.
type ReplayGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReplayGuard creates a new replay guard
func NewReplayGuard() *ReplayGuard {
	return &ReplayGuard{
		client: database.GetRedis(),
		ttl:    48 * time.Hour,
	}
}

// IsDuplicate reports whether the event id was already fully processed
// within the TTL window. It only reads; a delivery is recorded by
// MarkProcessed once reconciliation has committed, so a failed delivery
// stays retryable.
func (g *ReplayGuard) IsDuplicate(ctx context.Context, eventID string) bool {
	if eventID == "" || g.client == nil {
		return false
	}

	seen, err := g.client.Exists(ctx, replayKey(eventID)).Result()
	if err != nil {
		logging.Errorf("Replay guard unavailable, processing event %s anyway: %v", eventID, err)
		return false
	}
	return seen > 0
}

// MarkProcessed records the event id after the membership grant has
// committed. A failed write only costs the redelivery one trip to the
// payment_event table, so it is logged and ignored.
func (g *ReplayGuard) MarkProcessed(ctx context.Context, eventID string) {
	if eventID == "" || g.client == nil {
		return
	}

	if err := g.client.Set(ctx, replayKey(eventID), time.Now().Unix(), g.ttl).Err(); err != nil {
		logging.Errorf("Failed to record processed event %s: %v", eventID, err)
	}
}

func replayKey(eventID string) string {
	return "stripe_event:" + eventID
}
