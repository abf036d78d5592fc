package redis

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"escrow-auction/internal/domain"
)

const eventChannel = "auction_events"

// RedisEventPublisher is the notification sink: lifecycle events are
// JSON-encoded onto a pub/sub channel for the feed gateway and any other
// listener.
type RedisEventPublisher struct {
	client *redis.Client
}

func NewRedisEventPublisher(client *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{client: client}
}

func (r *RedisEventPublisher) Publish(ctx context.Context, event *domain.AuctionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return r.client.Publish(ctx, eventChannel, payload).Err()
}
