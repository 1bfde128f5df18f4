package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const notificationQueueKey = "wms:notifications"

// Client wraps the Redis connection used for the in-app notification queue.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and verifies connectivity.
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// EnqueueNotification pushes a notification payload onto the delivery queue
// consumed by the push gateway.
func (c *Client) EnqueueNotification(ctx context.Context, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := c.rdb.LPush(ctx, notificationQueueKey, data).Err(); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// DequeueNotification pops the oldest queued notification, blocking up to
// timeout. Returns redis.Nil when the queue stays empty.
func (c *Client) DequeueNotification(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := c.rdb.BRPop(ctx, timeout, notificationQueueKey).Result()
	if err != nil {
		return nil, err
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected brpop result length %d", len(res))
	}
	return []byte(res[1]), nil
}
