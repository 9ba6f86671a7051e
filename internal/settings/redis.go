package settings

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKey is the hash holding the settings fields
const RedisKey = "ciphertrack:settings"

// Redis stores settings as fields of one hash
type Redis struct {
	rdb *redis.Client
	key string
}

// NewRedisClient creates a client for addr, defaulting to the in-cluster service
func NewRedisClient(addr string) *redis.Client {
	if addr == "" {
		addr = "redis:6379"
	}
	return redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
}

// NewRedis stores settings under key, or RedisKey when key is empty
func NewRedis(rdb *redis.Client, key string) *Redis {
	if key == "" {
		key = RedisKey
	}
	return &Redis{rdb: rdb, key: key}
}

func (r *Redis) Load(ctx context.Context) (Settings, error) {
	values, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return decode(values), nil
}

func (r *Redis) Save(ctx context.Context, s Settings) error {
	values, err := encode(s)
	if err != nil {
		return err
	}
	fields := make(map[string]interface{}, len(values))
	for k, v := range values {
		fields[k] = v
	}
	if err := r.rdb.HSet(ctx, r.key, fields).Err(); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Close closes the underlying client
func (r *Redis) Close() error {
	return r.rdb.Close()
}
