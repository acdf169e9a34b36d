package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/store"
	redisCache "github.com/eko/gocache/store/redis/v4"
	ristrettoCache "github.com/eko/gocache/store/ristretto/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Config struct {
	NumCounters int64
	MaxCost     int64

	// RedisAddr switches to a shared redis store when set, so several
	// instances see the same entries.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func NewStore(cfg Config) (store.StoreInterface, error) {
	if len(cfg.RedisAddr) > 0 {
		return newRedisStore(cfg)
	}

	if cfg.NumCounters <= 0 {
		cfg.NumCounters = 1e7
	}
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = 1 << 27
	}

	ristrettoInstance, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create ristretto cache: %v", err)
	}

	return ristrettoCache.NewRistretto(ristrettoInstance), nil
}

func newRedisStore(cfg Config) (store.StoreInterface, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to reach redis at %s: %v", cfg.RedisAddr, err)
	}

	log.Info().Str("addr", cfg.RedisAddr).Msg("Using redis as cache store.")
	return redisCache.NewRedis(client), nil
}
