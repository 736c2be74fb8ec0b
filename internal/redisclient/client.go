package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/cart"
	"marketplace/internal/util"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client wraps Redis for cart persistence, cross-instance change
// notification and short-lived locks
type Client struct {
	rdb     *redis.Client
	channel string
	origin  string
	cartTTL time.Duration
	logger  *zap.Logger
}

// NewClient creates a new Redis client and verifies the connection. Carts
// expire cartTTL after their last write; zero keeps them forever.
func NewClient(addr, password string, db int, channel string, cartTTL time.Duration) (*Client, error) {
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

	return NewWithClient(rdb, channel, cartTTL), nil
}

// NewWithClient wraps an existing connection
func NewWithClient(rdb *redis.Client, channel string, cartTTL time.Duration) *Client {
	return &Client{
		rdb:     rdb,
		channel: channel,
		origin:  uuid.New().String(),
		cartTTL: cartTTL,
		logger:  util.Named("redis"),
	}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Origin identifies this process in published cart changes
func (c *Client) Origin() string {
	return c.origin
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Get implements cart.Storage
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cart.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, nil
}

// Set implements cart.Storage; the write and its change notice go out in one pipeline
func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	notice, err := c.notice(key)
	if err != nil {
		return err
	}

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, key, value, c.cartTTL)
	pipe.Publish(ctx, c.channel, notice)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete implements cart.Storage
func (c *Client) Delete(ctx context.Context, key string) error {
	notice, err := c.notice(key)
	if err != nil {
		return err
	}

	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.Publish(ctx, c.channel, notice)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Watch implements cart.ChangeFeed. Notices published by this process are skipped.
func (c *Client) Watch(ctx context.Context, fn func(cart.Change)) error {
	sub := c.rdb.Subscribe(ctx, c.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", c.channel, err)
	}
	c.logger.Info("Watching cart changes", zap.String("channel", c.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var change cart.Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				c.logger.Warn("Malformed cart change notice", zap.String("payload", msg.Payload), zap.Error(err))
				continue
			}
			if change.Origin == c.origin {
				continue
			}
			fn(change)
		}
	}
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), c.origin, ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}

func (c *Client) notice(key string) (string, error) {
	raw, err := json.Marshal(cart.Change{Key: key, Origin: c.origin})
	if err != nil {
		return "", fmt.Errorf("failed to encode change notice: %w", err)
	}
	return string(raw), nil
}

var (
	_ cart.Storage    = (*Client)(nil)
	_ cart.ChangeFeed = (*Client)(nil)
)
