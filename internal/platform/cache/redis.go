package cache

import (
	"context"
	"log"

	"shoplist/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

func Connect(cfg *config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Could not connect to Redis: %v", err)
	}

	return rdb
}

func Close(rdb *redis.Client) {
	if rdb != nil {
		rdb.Close()
	}
}
