// Package cache provides Redis connectivity and JSON cache-aside helpers.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"bookswap/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// slowCommand is the latency above which a command is logged.
const slowCommand = 50 * time.Millisecond

// instrumentation counts failed commands and logs slow ones. A cache miss
// (redis.Nil) is not a failure.
type instrumentation struct{}

func (instrumentation) DialHook(next redis.DialHook) redis.DialHook { return next }

func (instrumentation) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		observe(ctx, cmd.Name(), time.Since(start), err)
		return err
	}
}

func (instrumentation) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		observe(ctx, "pipeline", time.Since(start), err)
		return err
	}
}

func observe(ctx context.Context, op string, took time.Duration, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		middleware.RedisErrors.WithLabelValues(op).Inc()
	}
	if took > slowCommand {
		middleware.Logger.WarnContext(ctx, "slow redis command",
			slog.String("op", op), slog.Duration("took", took))
	}
}

// NewClient dials addr (host:port or a redis:// URL) and pings it. An
// unreachable server is an error and no client is returned.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opts = parsed
	}
	client := redis.NewClient(opts)
	client.AddHook(instrumentation{})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
