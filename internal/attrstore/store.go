// Package attrstore keeps the most recent attribution snapshot per email.
// Contacts record a snapshot on submission; webhook-driven corrections look
// it up later when the CRM has already wiped the analytics source. Records
// expire on a TTL because stale attribution is worse than none.
package attrstore

import (
	"context"
	"encoding/json"
	"time"

	"attribution_backend/internal/attribution"
	"attribution_backend/platform/apperr"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "attribution:email:"

// Snapshot is the attribution context captured at submission time.
type Snapshot struct {
	Params      attribution.TrackingParams `json:"utmParams"`
	LandingPage string                     `json:"landingPage"`
	Referrer    string                     `json:"referrer"`
	CapturedAt  time.Time                  `json:"capturedAt"`
}

// Store persists attribution snapshots keyed by lowercase email.
type Store interface {
	Save(ctx context.Context, email string, snap Snapshot) error
	// Lookup returns the stored snapshot, or ok=false when none exists
	// or it has expired.
	Lookup(ctx context.Context, email string) (Snapshot, bool, error)
}

// RedisStore is the Redis-backed Store.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore wires a store over an existing Redis client.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) Save(ctx context.Context, email string, snap Snapshot) error {
	if email == "" {
		return apperr.BadRequest("email is required")
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "encode attribution snapshot", err)
	}
	if err := s.rdb.Set(ctx, key(email), raw, s.ttl).Err(); err != nil {
		return apperr.Network("store attribution snapshot", err)
	}
	return nil
}

func (s *RedisStore) Lookup(ctx context.Context, email string) (Snapshot, bool, error) {
	if email == "" {
		return Snapshot{}, false, apperr.BadRequest("email is required")
	}

	raw, err := s.rdb.Get(ctx, key(email)).Result()
	if err == redis.Nil {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, apperr.Network("read attribution snapshot", err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		// Corrupt records never resolve; drop so the key can be rewritten.
		_ = s.rdb.Del(ctx, key(email)).Err()
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}

func key(email string) string {
	return keyPrefix + normalizeEmail(email)
}
