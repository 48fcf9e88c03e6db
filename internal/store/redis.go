package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// MarkQueueKey is the redis list the API publishes mark events to and
// the audit worker drains.
const MarkQueueKey = "attendance:marks"

// Redis wraps the client shared by the mark-event queue and the health
// probe. The record store itself never lives in redis.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts; a slow redis must not
// stall attendance marking.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity. A nil receiver reads as
// unhealthy so callers can skip nil checks.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}
