package task

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "active:"

// Locker guarantees at most one active execution per task id
type Locker interface {
	// TryAcquire returns false without error when the lock is already held
	TryAcquire(ctx context.Context, taskID string, ttl time.Duration) (bool, error)
	// Release is idempotent
	Release(ctx context.Context, taskID string) error
}

// RedisLocker stores locks as active:{task_id} keys that expire after the TTL
type RedisLocker struct {
	client redis.Cmdable
}

func NewRedisLocker(client redis.Cmdable) *RedisLocker {
	return &RedisLocker{client: client}
}

func LockKey(taskID string) string {
	return lockKeyPrefix + taskID
}

// TryAcquire issues SET key 1 NX EX ttl, so check and set are one atomic step
func (l *RedisLocker) TryAcquire(ctx context.Context, taskID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}

	ok, err := l.client.SetNX(ctx, LockKey(taskID), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock for %s: %w", taskID, err)
	}
	return ok, nil
}

func (l *RedisLocker) Release(ctx context.Context, taskID string) error {
	if err := l.client.Del(ctx, LockKey(taskID)).Err(); err != nil {
		return fmt.Errorf("failed to release lock for %s: %w", taskID, err)
	}
	return nil
}
