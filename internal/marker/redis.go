package marker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/russianllm/ruterm/internal/model"
)

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
	// Clock measures the key TTL against the expiry. Defaults to the real clock.
	Clock clockwork.Clock
}

// Redis stores the marker in redis so several terminals share one session.
// The key expires together with the session.
type Redis struct {
	client *redis.Client
	key    string
	clock  clockwork.Clock
}

// NewRedis connects to redis and verifies the connection.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("marker: redis address required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("marker: redis ping: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = model.DefaultMarkerRedisKey
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Redis{client: client, key: prefix + Key, clock: clock}, nil
}

func (r *Redis) Load(ctx context.Context) (time.Time, bool, error) {
	raw, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("marker: redis get: %w", err)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("marker: parse %q: %w", raw, err)
	}
	return time.UnixMilli(ms), true, nil
}

func (r *Redis) Save(ctx context.Context, expireAt time.Time) error {
	ttl := expireAt.Sub(r.clock.Now())
	if ttl <= 0 {
		return r.Clear(ctx)
	}
	if err := r.client.Set(ctx, r.key, strconv.FormatInt(expireAt.UnixMilli(), 10), ttl).Err(); err != nil {
		return fmt.Errorf("marker: redis set: %w", err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("marker: redis del: %w", err)
	}
	return nil
}

// Close releases the redis connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
