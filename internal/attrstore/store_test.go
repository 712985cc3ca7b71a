package attrstore

import (
	"context"
	"testing"
	"time"

	"attribution_backend/internal/attribution"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, ttl), mr
}

func TestSaveAndLookup(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)
	ctx := context.Background()

	snap := Snapshot{
		Params:      attribution.TrackingParams{UTMSource: "google", UTMMedium: "cpc"},
		LandingPage: "https://example.com/es/demo",
		Referrer:    "https://google.com",
		CapturedAt:  time.Now().UTC(),
	}
	if err := store.Save(ctx, "Lead@Example.com", snap); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, ok, err := store.Lookup(ctx, "lead@example.com")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a snapshot for the same email in different case")
	}
	if got.Params.UTMSource != "google" || got.LandingPage != snap.LandingPage {
		t.Fatalf("snapshot round trip mismatch: %+v", got)
	}
}

func TestLookupMissingEmail(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)

	_, ok, err := store.Lookup(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if ok {
		t.Fatal("expected no snapshot")
	}
}

func TestSnapshotExpires(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, "lead@example.com", Snapshot{
		Params: attribution.TrackingParams{UTMSource: "facebook"},
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Lookup(ctx, "lead@example.com")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if ok {
		t.Fatal("expected the snapshot to have expired")
	}
}

func TestCorruptSnapshotIsDropped(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	mr.Set(keyPrefix+"lead@example.com", "{not json")

	_, ok, err := store.Lookup(ctx, "lead@example.com")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if ok {
		t.Fatal("corrupt snapshot must not be returned")
	}
	if mr.Exists(keyPrefix + "lead@example.com") {
		t.Fatal("corrupt snapshot must be deleted")
	}
}
