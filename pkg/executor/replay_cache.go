package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/itsneelabh/orchestron/pkg/config"
)

// ReplayCache looks up a tool result by step signature before a handler
// runs, and records a successful result after one runs, so a retried
// step with identical tool args doesn't repeat a real side-effecting
// call within the same trace (spec §1's "idempotent replay via
// signatures"). Grounded on original_source/execution/executor.py's
// signature-keyed short-term memory, extended here to an optional
// out-of-process cache so replay detection survives a process restart
// within the same trace id. Nil is a valid, always-miss ReplayCache.
type ReplayCache interface {
	Get(ctx context.Context, traceID, signature string) (map[string]any, bool)
	Set(ctx context.Context, traceID, signature string, result map[string]any)
}

// RedisReplayCache backs ReplayCache with go-redis, namespacing keys the
// way the teacher's RedisClient does (core/redis_client.go's
// "gomind:<concern>:<key>" prefixing) so this cache can share a Redis
// instance with other deployments without key collisions.
type RedisReplayCache struct {
	client *redis.Client
	ttl    time.Duration
}

const replayCacheTTL = 1 * time.Hour

// NewReplayCacheFromConfig returns a RedisReplayCache when cfg.RedisURL is
// set, or nil (disabled) otherwise — replay detection still works from
// the in-process ShortTermMemory signature counters either way.
func NewReplayCacheFromConfig(cfg *config.Config) (ReplayCache, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return &RedisReplayCache{client: redis.NewClient(opts), ttl: replayCacheTTL}, nil
}

func (c *RedisReplayCache) key(traceID, signature string) string {
	return fmt.Sprintf("orchestron:replay:%s:%s", traceID, signature)
}

// Get returns the cached result for a trace/signature pair, or false if
// absent or the Redis round trip itself fails — a cache miss is always
// safe, it just means the step runs for real.
func (c *RedisReplayCache) Get(ctx context.Context, traceID, signature string) (map[string]any, bool) {
	raw, err := c.client.Get(ctx, c.key(traceID, signature)).Bytes()
	if err != nil {
		return nil, false
	}
	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false
	}
	return result, true
}

// Set stores result under the trace/signature pair with a bounded TTL.
// Errors are swallowed: the cache is an optimization, not a durability
// guarantee.
func (c *RedisReplayCache) Set(ctx context.Context, traceID, signature string, result map[string]any) {
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(traceID, signature), raw, c.ttl).Err()
}
