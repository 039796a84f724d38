package likecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"creaza/internal/cache"
	"creaza/internal/observability"

	"github.com/redis/go-redis/v9"
)

// KV is device-local string storage. Get returns nil, nil for a missing key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// FileKV keeps every key in one JSON object on disk.
type FileKV struct {
	mu   sync.Mutex
	path string
}

// NewFileKV stores data at path, creating parent directories on first write.
func NewFileKV(path string) *FileKV {
	return &FileKV{path: path}
}

func (f *FileKV) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	entries := map[string]string{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return entries, nil
}

func (f *FileKV) write(entries map[string]string) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.read()
	if err != nil {
		return nil, err
	}
	v, ok := entries[key]
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

func (f *FileKV) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.read()
	if err != nil {
		// an unreadable file is replaced rather than blocking every write
		entries = map[string]string{}
	}
	entries[key] = string(value)
	return f.write(entries)
}

func (f *FileKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.read()
	if err != nil {
		return f.write(map[string]string{})
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return f.write(entries)
}

// RedisKV keeps a device's keys as fields of one Redis hash.
type RedisKV struct {
	rdb    *redis.Client
	hash   string
	tracer *observability.TraceLayer
}

// NewRedisKV scopes storage to deviceID.
func NewRedisKV(rdb *redis.Client, deviceID string) *RedisKV {
	return &RedisKV{rdb: rdb, hash: cache.LikeCacheKey(deviceID), tracer: observability.GetTraceLayer()}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := r.tracer.TraceRedisOperation(ctx, "hget")
	v, err := r.rdb.HGet(ctx, r.hash, key).Bytes()
	if errors.Is(err, redis.Nil) {
		err = nil
		v = nil
	}
	observability.EndSpan(span, err)
	return v, err
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	ctx, span := r.tracer.TraceRedisOperation(ctx, "hset")
	err := r.rdb.HSet(ctx, r.hash, key, value).Err()
	observability.EndSpan(span, err)
	return err
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	ctx, span := r.tracer.TraceRedisOperation(ctx, "hdel")
	err := r.rdb.HDel(ctx, r.hash, key).Err()
	observability.EndSpan(span, err)
	return err
}
