package webhooks

import (
	"context"
	"fmt"
	"time"

	"github.com/arjunmehra/swiftkart-backend/pkg/logger"
	"github.com/arjunmehra/swiftkart-backend/pkg/redis"
)

// Guard deduplicates provider deliveries with a TTL-bounded claim. Providers
// redeliver aggressively; a claimed key means the delivery is already being
// processed and must resolve to a no-op.
type Guard struct {
	store  redis.IdempotencyStore
	ttl    time.Duration
	logger *logger.Logger
}

// NewGuard builds the idempotency guard.
func NewGuard(store redis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) (*Guard, error) {
	if store == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Guard{store: store, ttl: ttl, logger: logg}, nil
}

// Claim marks the delivery as seen; it reports false for a duplicate. A
// store outage fails open: processing a duplicate is recoverable, dropping a
// live event is not.
func (g *Guard) Claim(ctx context.Context, scope, key string) bool {
	claimed, err := g.store.SetNX(ctx, g.store.IdempotencyKey(scope, key), "1", g.ttl)
	if err != nil {
		g.logger.Error(ctx, "idempotency claim failed, processing anyway", err)
		return true
	}
	return claimed
}

// Release frees a claim after a processing failure so the provider's
// redelivery can try again.
func (g *Guard) Release(ctx context.Context, scope, key string) {
	if err := g.store.Del(ctx, g.store.IdempotencyKey(scope, key)); err != nil {
		g.logger.Error(ctx, "idempotency release failed", err)
	}
}
