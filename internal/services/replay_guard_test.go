package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func testReplayGuard(t *testing.T) *ReplayGuard {
	t.Helper()
	mr := miniredis.RunT(t)
	return &ReplayGuard{
		client: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		ttl:    time.Hour,
	}
}

func TestIsDuplicateDoesNotRecordTheEvent(t *testing.T) {
	g := testReplayGuard(t)
	ctx := context.Background()

	// Checking must never record; a delivery whose reconciliation fails
	// has to stay retryable.
	assert.False(t, g.IsDuplicate(ctx, "evt_1"))
	assert.False(t, g.IsDuplicate(ctx, "evt_1"))
}

func TestMarkProcessedMakesLaterDeliveriesDuplicates(t *testing.T) {
	g := testReplayGuard(t)
	ctx := context.Background()

	g.MarkProcessed(ctx, "evt_1")
	assert.True(t, g.IsDuplicate(ctx, "evt_1"))
	assert.False(t, g.IsDuplicate(ctx, "evt_2"))
}

func TestReplayGuardFailsOpenWithoutRedis(t *testing.T) {
	g := &ReplayGuard{}
	ctx := context.Background()

	assert.False(t, g.IsDuplicate(ctx, "evt_1"))
	g.MarkProcessed(ctx, "evt_1")
	assert.False(t, g.IsDuplicate(ctx, "evt_1"))
}
