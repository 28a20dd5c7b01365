package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) *RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, "test")
}

func TestSetGetRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	got, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(got) != "v1" {
		t.Fatalf("got %q, want v1", got)
	}
}

func TestGetMiss(t *testing.T) {
	c := newTestCache(t)
	_, err := c.Get(context.Background(), "absent")
	if !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
}

func TestInvalidateRemovesKeys(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k1", []byte("v1"), 0); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := c.Invalidate(ctx, "k1", "never-existed"); err != nil {
		t.Fatalf("Invalidate returned error: %v", err)
	}
	if _, err := c.Get(ctx, "k1"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss after invalidate, got %v", err)
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	for _, k := range []string{"districts:1", "districts:2", "divisions"} {
		if err := c.Set(ctx, k, []byte("x"), 0); err != nil {
			t.Fatalf("Set returned error: %v", err)
		}
	}
	if err := c.InvalidatePrefix(ctx, "districts:"); err != nil {
		t.Fatalf("InvalidatePrefix returned error: %v", err)
	}
	if _, err := c.Get(ctx, "districts:1"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss for districts:1, got %v", err)
	}
	if _, err := c.Get(ctx, "divisions"); err != nil {
		t.Fatalf("divisions should survive a districts flush: %v", err)
	}
}

func TestKeysAreNamespaced(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	c := NewRedisCache(client, "locations")
	if err := c.Set(context.Background(), "divisions", []byte("[]"), 0); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if !mr.Exists("locations:divisions") {
		t.Fatalf("expected namespaced key locations:divisions")
	}
}
