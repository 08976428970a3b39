package infrastructure

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisOptions makes go-redis apply the caller's context deadline to socket
// reads and writes, so the per-call store timeout bounds a stalled round trip.
func redisOptions(addr, password string, db int) *redis.Options {
	return &redis.Options{
		Addr:                  addr,
		Password:              password,
		DB:                    db,
		ContextTimeoutEnabled: true,
	}
}

func connectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(redisOptions(addr, password, db))

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return rdb, nil
}
