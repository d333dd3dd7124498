package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SESSION STORE AND CACHE

// ErrNotFound is returned when a key or session does not exist.
var ErrNotFound = errors.New("key not found")

type Client struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a new Redis client. ttl applies to saved sessions.
func New(addr, password string, db int, ttl time.Duration) *Client {
	return &Client{
		client: redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			PoolSize:     100, // Increase connection pool size
			MinIdleConns: 10,  // Keep minimum connections ready
		}),
		ttl: ttl,
	}
}

// Close closes the Redis connection
func (c *Client) Close() {
	if c.client != nil {
		_ = c.client.Close()
	}
}

// Get retrieves a key's value
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

// Set sets a key's value with TTL
func (c *Client) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Del deletes a key
func (c *Client) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// SaveSession stores a session record under its id, refreshing the TTL.
func (c *Client) SaveSession(ctx context.Context, sessionID string, session any) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return c.client.Set(ctx, buildSessionKey(sessionID), data, c.ttl).Err()
}

// GetSession loads a session record into the given value.
func (c *Client) GetSession(ctx context.Context, sessionID string, session any) error {
	data, err := c.client.Get(ctx, buildSessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}

	return json.Unmarshal(data, session)
}

// DropSession removes a session record on logout or expiry.
func (c *Client) DropSession(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, buildSessionKey(sessionID)).Err()
}

func buildSessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}
