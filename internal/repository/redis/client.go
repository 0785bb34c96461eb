package redis

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect dials Redis and pings it. A nil client with a nil error means Redis
// is unavailable and the caller should run without a cache.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[REDIS] Warning: Could not connect to Redis: %v. Running without cache.", err)
		client.Close()
		return nil, nil // Don't fail startup if Redis is unavailable
	}

	log.Println("[REDIS] Connected successfully")
	return client, nil
}

// RedisCache acts as a wrapper around redis.Client to implement the game
// service's CacheRepository interface. Each entry is a hash holding the
// value and its version.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// KEYS[1] entry; ARGV[1] version, ARGV[2] value, ARGV[3] ttl in milliseconds.
// Returns 1 when written, 0 when the stored version is not older.
var setIfNewer = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'version')
if current and tonumber(current) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'value', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// SetIfNewer stores value with expiration unless the key already holds an
// equal or higher version. The compare and the write run as one script.
func (r *RedisCache) SetIfNewer(ctx context.Context, key, value string, version int64, expiration time.Duration) error {
	return setIfNewer.Run(ctx, r.client, []string{key}, version, value, expiration.Milliseconds()).Err()
}

// Get retrieves a value by key. A missing key is an empty string, not an error.
func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.HGet(ctx, key, "value").Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

// Del deletes keys
func (r *RedisCache) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}
