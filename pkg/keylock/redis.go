package keylock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/mockview/backend/pkg/logger"
)

const (
	// DefaultLease is how long a lock survives a crashed holder.
	DefaultLease = 30 * time.Second

	retryMin       = 10 * time.Millisecond
	retryMax       = 200 * time.Millisecond
	commandTimeout = 3 * time.Second
)

// 只有持有者（token一致）才能释放或续期
const (
	releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`
	extendScript  = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("PEXPIRE", KEYS[1], ARGV[2]) end return 0`
)

// RedisLocker is a Locker shared by every process using the same Redis. A lock is a key set
// with SET NX PX holding a random token; the lease is renewed while the lock is held.
type RedisLocker struct {
	client redis.Cmdable
	prefix string
	lease  time.Duration
	log    logger.Logger
}

// NewRedisLocker stores lock keys under prefix. A lease <= 0 uses DefaultLease.
func NewRedisLocker(client redis.Cmdable, prefix string, lease time.Duration) *RedisLocker {
	if lease <= 0 {
		lease = DefaultLease
	}
	return &RedisLocker{client: client, prefix: prefix, lease: lease, log: logger.Named("keylock")}
}

// Lock polls until the key is acquired or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	name := l.prefix + key
	token := uuid.NewString()

	wait := retryMin
	for {
		ok, err := l.client.SetNX(ctx, name, token, l.lease).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", name, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		wait = min(wait*2, retryMax)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(name, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done

			// the caller's context may already be cancelled
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()
			if err := l.client.Eval(ctx, releaseScript, []string{name}, token).Err(); err != nil {
				l.log.Warn(ctx, "redis unlock failed, lock expires with its lease",
					logger.String("key", name), logger.Error(err))
			}
		})
	}, nil
}

func (l *RedisLocker) keepAlive(name, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.lease / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			err := l.client.Eval(ctx, extendScript, []string{name}, token, l.lease.Milliseconds()).Err()
			cancel()
			if err != nil {
				l.log.Warn(ctx, "redis lock renewal failed", logger.String("key", name), logger.Error(err))
			}
		}
	}
}
