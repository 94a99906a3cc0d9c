package config

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

func InitRedis(s RedisSettings) error {
	if s.Addr == "" {
		return errors.New("redis address is not set")
	}

	if strings.HasPrefix(s.Addr, "redis://") || strings.HasPrefix(s.Addr, "rediss://") {
		opt, err := redis.ParseURL(s.Addr)
		if err != nil {
			return err
		}
		RedisClient = redis.NewClient(opt)
	} else {
		RedisClient = redis.NewClient(&redis.Options{Addr: s.Addr})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return RedisClient.Ping(ctx).Err()
}
