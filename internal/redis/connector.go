// Package redis connects the optional liveness cache. The monitor runs fine
// without it; callers treat connection failure as "no cache".
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/subwatch/subwatch/internal/logger"
)

// ConnectOptions defines Redis connection behavior.
type ConnectOptions struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
	PingTimeout time.Duration
}

// New connects to Redis and verifies the connection with a ping.
func New(opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.PingTimeout == 0 {
		opts.PingTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opts.PingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}

	log.Info("connected to redis", logger.String("addr", opts.Addr))
	return client, nil
}
