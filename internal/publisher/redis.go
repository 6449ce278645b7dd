package publisher

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisBus adapts a redis.Client to the BusClient interface, grounded on
// the same Publish-based pub/sub pattern the rest of the pack uses as
// its message-bus abstraction.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus wraps an existing Redis client. Callers own its lifecycle.
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

// Publish implements BusClient.
func (r *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	return r.client.Publish(ctx, channel, payload).Err()
}
