package cache

import (
	"context"
	"strings"
	"time"

	"creaza/internal/observability"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
)

// Cached documents are BSON encoded so stored timestamps survive the round
// trip; the models' JSON form renders dates for the wire only.

// GetDoc attempts to get the key from Redis and decode it into dest.
// Returns (true, nil) if found and decoded, (false, nil) if not found.
func GetDoc(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	b, err := client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := bson.Unmarshal(b, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetDoc encodes v and sets the key with TTL.
func SetDoc(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := bson.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// CacheAside tries Redis first, on miss it calls fetch (which should populate dest),
// then stores the result in Redis with ttl. fetch must write into dest.
// A fetch reporting found=false is not cached.
func CacheAside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() (bool, error)) (bool, error) {
	prefix, _, _ := strings.Cut(key, ":")

	found, err := GetDoc(ctx, key, dest)
	if err != nil {
		// A broken cache entry or an unreachable server falls through to the source.
		observability.CacheLookups.WithLabelValues(prefix, "error").Inc()
	} else if found {
		observability.CacheLookups.WithLabelValues(prefix, "hit").Inc()
		return true, nil
	} else if client != nil {
		observability.CacheLookups.WithLabelValues(prefix, "miss").Inc()
	}

	ok, err := fetch()
	if err != nil || !ok {
		return ok, err
	}

	// Best-effort store.
	_ = SetDoc(ctx, key, dest, ttl)
	return true, nil
}
