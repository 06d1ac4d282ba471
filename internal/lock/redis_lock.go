// Package lock provides the per-work cooperative session lock backed
// by Redis. The lock serializes multi-device writes to one work; a
// crashed client's lock drains away after the TTL.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionLock is a per-work mutual-exclusion token keyed by device id.
type SessionLock struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New creates a session lock store from a Redis URL and verifies the
// connection.
func New(redisURL string, ttl time.Duration) (*SessionLock, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewWithClient(client, ttl), nil
}

// NewWithClient creates a session lock store from an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *SessionLock {
	return &SessionLock{
		client: client,
		prefix: "work_lock:",
		ttl:    ttl,
	}
}

func (l *SessionLock) key(workID string) string {
	return l.prefix + workID
}

// Acquire takes the lock for deviceID. It succeeds when no lock exists
// (SET NX with TTL) or when the caller already holds it, in which case
// the TTL is refreshed. Another device holding the lock means false.
func (l *SessionLock) Acquire(ctx context.Context, workID, deviceID string) (bool, error) {
	key := l.key(workID)

	acquired, err := l.client.SetNX(ctx, key, deviceID, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if acquired {
		return true, nil
	}

	holder, err := l.client.Get(ctx, key).Result()
	if err == redis.Nil {
		// Lock expired between SETNX and GET; retry the set once.
		acquired, err := l.client.SetNX(ctx, key, deviceID, l.ttl).Result()
		if err != nil {
			return false, fmt.Errorf("acquire lock: %w", err)
		}
		return acquired, nil
	}
	if err != nil {
		return false, fmt.Errorf("read lock holder: %w", err)
	}

	if holder == deviceID {
		if err := l.client.Expire(ctx, key, l.ttl).Err(); err != nil {
			return false, fmt.Errorf("refresh lock: %w", err)
		}
		return true, nil
	}
	return false, nil
}

// Refresh extends the TTL only when deviceID is the current holder.
func (l *SessionLock) Refresh(ctx context.Context, workID, deviceID string) (bool, error) {
	key := l.key(workID)

	holder, err := l.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read lock holder: %w", err)
	}
	if holder != deviceID {
		return false, nil
	}

	ok, err := l.client.Expire(ctx, key, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("refresh lock: %w", err)
	}
	return ok, nil
}

// Release deletes the lock only when deviceID is the current holder.
func (l *SessionLock) Release(ctx context.Context, workID, deviceID string) (bool, error) {
	key := l.key(workID)

	holder, err := l.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read lock holder: %w", err)
	}
	if holder != deviceID {
		return false, nil
	}

	deleted, err := l.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("release lock: %w", err)
	}
	return deleted > 0, nil
}

// Holder returns the current holder's device id, or "" when unlocked.
func (l *SessionLock) Holder(ctx context.Context, workID string) (string, error) {
	holder, err := l.client.Get(ctx, l.key(workID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read lock holder: %w", err)
	}
	return holder, nil
}

// Close closes the Redis connection.
func (l *SessionLock) Close() error {
	return l.client.Close()
}

// Ping checks if Redis is reachable.
func (l *SessionLock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
