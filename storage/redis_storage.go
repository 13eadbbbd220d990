package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dauTT/astroport-dca/internal/contexthelper"
)

// RedisConfig holds the connection parameters of the Redis instance backing
// the task queue and the keeper's attempt cache.
type RedisConfig struct {
	Host     string `mapstructure:"host" json:"host,omitempty"`
	Port     string `mapstructure:"port" json:"port,omitempty"`
	User     string `mapstructure:"user" json:"user,omitempty"`
	Password string `mapstructure:"password" json:"password,omitempty"`
	DB       int    `mapstructure:"db" json:"db,omitempty"`
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type RedisStorage struct {
	cfg    RedisConfig
	client *redis.Client
}

func NewRedisStorage(cfg RedisConfig) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Username: cfg.User,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	status := client.Ping(context.Background())
	if status.Err() != nil {
		return nil, status.Err()
	}
	return &RedisStorage{
		cfg:    cfg,
		client: client,
	}, nil
}

// SetNX sets the key only if it does not exist and reports whether it did.
// The keeper uses it to avoid enqueueing the same order twice per sweep.
func (r *RedisStorage) SetNX(ctx context.Context, key string, value string, expiry time.Duration) (bool, error) {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return false, err
	}
	return r.client.SetNX(ctx, key, value, expiry).Result()
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
