// Package redis opens the go-redis client backing the session store.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	options "github.com/kart-io/catalog-chat/pkg/options/redis"
)

// Open builds a client from opts and pings it once, so that a wrong
// address fails at startup instead of on the first chat turn. The caller
// owns the returned client and must Close it.
func Open(ctx context.Context, opts *options.Options) (*goredis.Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("redis options cannot be nil")
	}
	if err := utilerrors.NewAggregate(opts.Validate()); err != nil {
		return nil, fmt.Errorf("invalid redis options: %w", err)
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr(),
		Password:     opts.Password,
		DB:           opts.Database,
		MaxRetries:   opts.MaxRetries,
		PoolSize:     opts.PoolSize,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr(), err)
	}
	return rdb, nil
}
