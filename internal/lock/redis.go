package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Снимаем ключ, только если он всё ещё наш.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis — распределённая блокировка на SET NX PX.
//
// Особенности:
//   - значение ключа — случайный токен владельца;
//   - TTL страхует от владельца, упавшего без release;
//   - release удаляет ключ только при совпадении токена.
type Redis struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewRedis создаёт блокировку из URL (например, redis://:pass@host:6379/0).
func NewRedis(ctx context.Context, redisURL, key string, ttl time.Duration) (*Redis, error) {
	const op = "lock.NewRedis"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Redis{rdb: rdb, key: key, ttl: ttl}, nil
}

func (r *Redis) TryAcquire(ctx context.Context) (func(), bool, error) {
	const op = "lock.Redis.TryAcquire"

	token := uuid.NewString()

	ok, err := r.rdb.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// ctx цикла к этому моменту может быть отменён.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := releaseScript.Run(ctx, r.rdb, []string{r.key}, token).Err(); err != nil {
				slog.Default().Warn("ingest_lock_release_failed",
					slog.String("op", op),
					slog.String("key", r.key),
					slog.String("err", err.Error()),
				)
			}
		})
	}

	return release, true, nil
}

func (r *Redis) Close() error { return r.rdb.Close() }
