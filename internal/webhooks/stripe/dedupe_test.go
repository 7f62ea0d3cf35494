package stripewebhook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memoryStore struct {
	mu   sync.Mutex
	keys map[string]any
	ttls map[string]time.Duration
	err  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]any{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = value
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "academy:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func TestIdempotencyGuardMarksOnce(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, "stripe-webhook")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	ctx := context.Background()

	seen, err := guard.CheckAndMark(ctx, "evt_1")
	if err != nil || seen {
		t.Fatalf("first delivery should be new, seen=%v err=%v", seen, err)
	}
	seen, err = guard.CheckAndMark(ctx, "evt_1")
	if err != nil || !seen {
		t.Fatalf("second delivery should be a duplicate, seen=%v err=%v", seen, err)
	}

	if err := guard.Release(ctx, "evt_1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	seen, _ = guard.CheckAndMark(ctx, "evt_1")
	if seen {
		t.Fatalf("released events are processed again")
	}
	if _, ok := store.keys["academy:idempotency:stripe-webhook:evt_1"]; !ok {
		t.Fatalf("expected scoped key, got %v", store.keys)
	}
	if store.ttls["academy:idempotency:stripe-webhook:evt_1"] != time.Hour {
		t.Fatalf("expected configured ttl, got %v", store.ttls)
	}
}

func TestIdempotencyGuardDefaultsTTL(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewIdempotencyGuard(store, 0, "stripe-webhook")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	if _, err := guard.CheckAndMark(context.Background(), "evt_2"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if got := store.ttls["academy:idempotency:stripe-webhook:evt_2"]; got != defaultDedupeTTL {
		t.Fatalf("expected default ttl, got %v", got)
	}
}

func TestIdempotencyGuardErrors(t *testing.T) {
	if _, err := NewIdempotencyGuard(nil, time.Hour, "s"); err == nil {
		t.Fatalf("expected store error")
	}
	if _, err := NewIdempotencyGuard(newMemoryStore(), -time.Second, "s"); err == nil {
		t.Fatalf("expected ttl error")
	}
	if _, err := NewIdempotencyGuard(newMemoryStore(), time.Hour, "  "); err == nil {
		t.Fatalf("expected scope error")
	}

	store := newMemoryStore()
	store.err = errors.New("redis down")
	guard, _ := NewIdempotencyGuard(store, time.Hour, "s")
	if _, err := guard.CheckAndMark(context.Background(), "evt"); err == nil {
		t.Fatalf("expected store error to surface")
	}
	if _, err := guard.CheckAndMark(context.Background(), ""); err == nil {
		t.Fatalf("expected empty id error")
	}
	if err := guard.Release(context.Background(), ""); err == nil {
		t.Fatalf("expected empty id error")
	}
	if err := guard.Release(context.Background(), "evt"); err == nil {
		t.Fatalf("expected release error to surface")
	}
}
