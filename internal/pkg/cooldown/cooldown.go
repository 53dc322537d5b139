// Package cooldown rate-limits repeated actions on the same key with a
// fixed window held in Redis.
package cooldown

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cooldown reports whether an action keyed by key may run now.
type Cooldown interface {
	// Acquire opens a window of length window for key. It returns false, and
	// the time left, when a previous window is still open.
	Acquire(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error)
	// Release closes the window early, e.g. when the guarded action failed.
	Release(ctx context.Context, key string) error
}

// Redis implements Cooldown with SET NX PX.
type Redis struct {
	client redis.Cmdable
	prefix string
}

// New returns a Redis backed Cooldown; keys are stored under "cooldown:".
func New(client redis.Cmdable) *Redis {
	return &Redis{client: client, prefix: "cooldown:"}
}

// Acquire opens a window for key. A non-positive window always succeeds
// without touching Redis.
func (r *Redis) Acquire(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	if window <= 0 {
		return true, 0, nil
	}

	fk := r.prefix + key
	acquired, err := r.client.SetNX(ctx, fk, "1", window).Result()
	if err != nil {
		return false, 0, err
	}
	if acquired {
		return true, 0, nil
	}

	left, err := r.client.PTTL(ctx, fk).Result()
	if err != nil {
		return false, 0, err
	}
	if left < 0 {
		// key vanished or lost its ttl between the two calls
		left = 0
	}

	return false, left, nil
}

// Release deletes the window for key.
func (r *Redis) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}
