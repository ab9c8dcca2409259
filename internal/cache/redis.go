package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the redis connection used for presence flags and the
// fixed-window rate limiter.
type Client struct {
	Cli *redis.Client
}

func NewRedis(ctx context.Context, addr, password string, db int) (*Client, error) {
	r := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Client{Cli: r}, nil
}

func (c *Client) Close() error { return c.Cli.Close() }

func (c *Client) SetPresence(ctx context.Context, profileID string, online bool) error {
	key := "presence:" + profileID
	if !online {
		return c.Cli.Del(ctx, key).Err()
	}
	return c.Cli.Set(ctx, key, "1", 0).Err()
}

func (c *Client) GetPresence(ctx context.Context, profileID string) (bool, error) {
	s, err := c.Cli.Get(ctx, "presence:"+profileID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s == "1", nil
}

// Allow implements a fixed-window counter. The first hit in a window sets
// the expiry; hits beyond limit are rejected until the window rolls over.
func (c *Client) Allow(ctx context.Context, prefix, key string, limit int, window time.Duration) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", prefix, key)
	count, err := c.Cli.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		c.Cli.Expire(ctx, redisKey, window)
	}
	return count <= int64(limit), nil
}
