package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "accounting:lock:"

// RedisLocker holds locks in Redis through redsync so the server and any
// number of workers share one view of which scopes are busy.
type RedisLocker struct {
	rs  *redsync.Redsync
	ttl time.Duration
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		rs:  redsync.New(goredis.NewPool(client)),
		ttl: ttl,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, scope string) (func(), error) {
	mutex := l.rs.NewMutex(keyPrefix+scope,
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return nil, ErrLockHeld
		}
		return nil, fmt.Errorf("acquiring lock %s: %w", scope, err)
	}

	return func() {
		// The job context may already be cancelled; unlock must still reach Redis.
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if _, err := mutex.UnlockContext(unlockCtx); err != nil {
			slog.WarnContext(ctx, "failed to release lock", "scope", scope, "error", err)
		}
	}, nil
}
