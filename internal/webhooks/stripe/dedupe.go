package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Redeliveries older than this are treated as new events.
const defaultDedupeTTL = 30 * 24 * time.Hour

var errEventIDRequired = errors.New("event id is required")

// DedupeStore is the redis surface the guard needs.
type DedupeStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// IdempotencyGuard remembers processed Stripe event ids so redeliveries are
// acknowledged without touching the database again.
type IdempotencyGuard struct {
	store DedupeStore
	ttl   time.Duration
	scope string
	now   func() time.Time
}

// NewIdempotencyGuard returns a guard keyed under scope. A zero ttl falls back
// to thirty days.
func NewIdempotencyGuard(store DedupeStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	switch {
	case store == nil:
		return nil, errors.New("dedupe store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	case strings.TrimSpace(scope) == "":
		return nil, errors.New("scope is required")
	}
	if ttl == 0 {
		ttl = defaultDedupeTTL
	}
	return &IdempotencyGuard{store: store, ttl: ttl, scope: scope, now: time.Now}, nil
}

// CheckAndMark claims eventID and reports true when it had already been claimed.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errEventIDRequired
	}
	claimed, err := g.store.SetNX(ctx, g.store.IdempotencyKey(g.scope, eventID), g.now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim webhook event %s: %w", eventID, err)
	}
	return !claimed, nil
}

// Release forgets eventID so Stripe's retry is processed again.
func (g *IdempotencyGuard) Release(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errEventIDRequired
	}
	if err := g.store.Del(ctx, g.store.IdempotencyKey(g.scope, eventID)); err != nil {
		return fmt.Errorf("release webhook event %s: %w", eventID, err)
	}
	return nil
}
