package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	model "github.com/zhouzirui/mockview/backend/internal/model/interview"
	"github.com/zhouzirui/mockview/backend/pkg/keylock"
)

const (
	defaultKeyPrefix  = "mockview:session:"
	defaultLockPrefix = "mockview:lock:session:"
)

// RedisStore shares sessions between backend instances. Sessions are stored as JSON, and
// the store also hands out the per-session lock so turns stay serialized across instances.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	// 过期时间，0 表示不过期
	ttl   time.Duration
	locks *keylock.RedisLocker
}

// NewRedisStore wraps client. A zero ttl keeps sessions until they are removed.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: defaultKeyPrefix,
		ttl:    ttl,
		locks:  keylock.NewRedisLocker(client, defaultLockPrefix, keylock.DefaultLease),
	}
}

// Lock takes the distributed lock for session id.
func (r *RedisStore) Lock(ctx context.Context, id string) (func(), error) {
	return r.locks.Lock(ctx, id)
}

func (r *RedisStore) Get(ctx context.Context, id string) (model.Session, bool, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Session{}, false, nil
	}
	if err != nil {
		return model.Session{}, false, fmt.Errorf("redis get session %s: %w", id, err)
	}

	var s model.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return model.Session{}, false, fmt.Errorf("decode session %s: %w", id, err)
	}
	return s, true, nil
}

func (r *RedisStore) Put(ctx context.Context, s model.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	if err := r.client.Set(ctx, r.key(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisStore) Remove(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del session %s: %w", id, err)
	}
	return nil
}

func (r *RedisStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists session %s: %w", id, err)
	}
	return n > 0, nil
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}
