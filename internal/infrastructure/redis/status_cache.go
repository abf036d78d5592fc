package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"escrow-auction/internal/domain"
)

// RedisStatusCache mirrors auction status for observers (the feed gateway,
// dashboards). The engine itself never reads it; in-memory state stays
// authoritative.
type RedisStatusCache struct {
	client *redis.Client
}

func NewRedisStatusCache(client *redis.Client) *RedisStatusCache {
	return &RedisStatusCache{client: client}
}

func (r *RedisStatusCache) SetAuctionStatus(ctx context.Context, auctionID uint64, status domain.AuctionStatus) error {
	key := fmt.Sprintf("auction:%d:status", auctionID)
	return r.client.Set(ctx, key, int(status), 0).Err()
}

func (r *RedisStatusCache) GetAuctionStatus(ctx context.Context, auctionID uint64) (domain.AuctionStatus, bool, error) {
	key := fmt.Sprintf("auction:%d:status", auctionID)

	result, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return domain.AuctionOpen, false, nil
		}
		return domain.AuctionOpen, false, err
	}

	status, err := strconv.Atoi(result)
	if err != nil {
		return domain.AuctionOpen, false, err
	}

	return domain.AuctionStatus(status), true, nil
}
