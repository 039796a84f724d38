// Package cache holds the shared Redis client, the key layout of everything
// the gallery keeps in Redis and a cache-aside helper for pins and users.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"creaza/internal/observability"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

var client *redis.Client

// keyNamespace returns the prefix of the key a command touches ("pin",
// "likecache", "rl"), or "" for keyless commands.
func keyNamespace(cmd redis.Cmder) string {
	args := cmd.Args()
	if len(args) < 2 {
		return ""
	}
	key, ok := args[1].(string)
	if !ok {
		return ""
	}
	ns, _, found := strings.Cut(key, ":")
	if !found {
		return ""
	}
	return ns
}

func operationLabel(cmd redis.Cmder) string {
	if ns := keyNamespace(cmd); ns != "" {
		return ns + "." + cmd.Name()
	}
	return cmd.Name()
}

// errorHook counts failed commands. A cache miss (redis.Nil) is not a failure.
type errorHook struct{}

func (errorHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues(operationLabel(cmd)).Inc()
		}
		return err
	}
}

func (errorHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err == nil || errors.Is(err, redis.Nil) {
			return err
		}
		for _, cmd := range cmds {
			if cerr := cmd.Err(); cerr != nil && !errors.Is(cerr, redis.Nil) {
				observability.RedisErrorRate.WithLabelValues(operationLabel(cmd)).Inc()
			}
		}
		return err
	}
}

// NewClient accepts a redis:// URL or a bare host:port.
func NewClient(addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}
	c := redis.NewClient(opts)
	c.AddHook(errorHook{})
	return c, nil
}

// Connect builds a client and pings it.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	c, err := NewClient(addr)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return c, nil
}

// InitRedis connects the shared client. Without Redis the gallery still
// serves: pin and user reads skip the cache, sessions cannot be revoked
// early and the like cache falls back to files.
func InitRedis(addr string) {
	c, err := Connect(context.Background(), addr)
	if err != nil {
		observability.GlobalLogger.Warn("redis unavailable, continuing without it", "addr", addr, "error", err)
		client = nil
		return
	}
	observability.GlobalLogger.Info("redis connected", "addr", c.Options().Addr)
	client = c
}

// SetClient swaps the shared client; nil disables caching.
func SetClient(c *redis.Client) {
	client = c
}

func GetClient() *redis.Client {
	return client
}
