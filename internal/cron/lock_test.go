package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memoryRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
	setErr error
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryRedis) DelIfValue(_ context.Context, key, value string) (bool, error) {
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockExclusiveAndOwnerScopedRelease(t *testing.T) {
	store := newMemoryRedis()
	ctx := context.Background()

	first, err := NewRedisLock(store, "academy:lock:cron", 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewRedisLock(store, "academy:lock:cron", time.Minute)

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire should win: ok=%v err=%v", ok, err)
	}
	if store.ttls["academy:lock:cron"] != defaultLockTTL {
		t.Fatalf("expected default ttl, got %v", store.ttls["academy:lock:cron"])
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatalf("second acquire must fail while held")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release without ownership is a no-op: %v", err)
	}
	if _, held := store.values["academy:lock:cron"]; !held {
		t.Fatalf("non-owner release must not delete the key")
	}

	store.values["academy:lock:cron"] = "someone-else"
	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values["academy:lock:cron"] != "someone-else" {
		t.Fatalf("stolen lease must be left alone")
	}

	delete(store.values, "academy:lock:cron")
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatalf("expected acquire after expiry")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, held := store.values["academy:lock:cron"]; held {
		t.Fatalf("owner release should delete the key")
	}
}

func TestRedisLockErrors(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", 0); err == nil {
		t.Fatalf("expected client error")
	}
	if _, err := NewRedisLock(newMemoryRedis(), "", 0); err == nil {
		t.Fatalf("expected key error")
	}
	store := newMemoryRedis()
	store.setErr = errors.New("redis down")
	lock, _ := NewRedisLock(store, "k", 0)
	if _, err := lock.Acquire(context.Background()); err == nil {
		t.Fatalf("expected acquire error")
	}
}
