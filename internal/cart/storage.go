package cart

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"qrmenu/internal/cache"
)

// ErrNotFound is returned by Storage.Get when nothing is stored under a key.
var ErrNotFound = errors.New("cart: nothing stored")

// Storage is a scoped key to JSON document store.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// memoryStorage keeps carts in process memory.
type memoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStorage creates an in-process Storage.
func NewMemoryStorage() Storage {
	return &memoryStorage{data: make(map[string][]byte)}
}

func (m *memoryStorage) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *memoryStorage) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *memoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// fileStorage keeps one JSON file per key under a directory.
type fileStorage struct {
	dir string
}

// NewFileStorage creates a Storage rooted at dir, creating it if needed.
func NewFileStorage(dir string) (Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cart directory %s: %w", dir, err)
	}
	return &fileStorage{dir: dir}, nil
}

func (f *fileStorage) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

func (f *fileStorage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart file: %w", err)
	}
	return data, nil
}

// Set replaces the file atomically.
func (f *fileStorage) Set(ctx context.Context, key string, value []byte) error {
	tmp, err := os.CreateTemp(f.dir, ".cart-*")
	if err != nil {
		return fmt.Errorf("failed to create temp cart file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cart file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cart file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("failed to replace cart file: %w", err)
	}
	return nil
}

func (f *fileStorage) Delete(ctx context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete cart file: %w", err)
	}
	return nil
}

// KeyValue is the subset of the Redis client the cart needs.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(scope string) string
}

// redisStorage keeps carts in Redis with a sliding TTL.
type redisStorage struct {
	kv  KeyValue
	ttl time.Duration
}

// NewRedisStorage creates a Storage backed by Redis. A zero ttl keeps carts forever.
func NewRedisStorage(kv KeyValue, ttl time.Duration) Storage {
	return &redisStorage{kv: kv, ttl: ttl}
}

func (r *redisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.kv.Get(ctx, r.kv.CartKey(key))
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart from redis: %w", err)
	}
	return []byte(v), nil
}

func (r *redisStorage) Set(ctx context.Context, key string, value []byte) error {
	if err := r.kv.Set(ctx, r.kv.CartKey(key), string(value), r.ttl); err != nil {
		return fmt.Errorf("failed to write cart to redis: %w", err)
	}
	return nil
}

func (r *redisStorage) Delete(ctx context.Context, key string) error {
	if err := r.kv.Del(ctx, r.kv.CartKey(key)); err != nil {
		return fmt.Errorf("failed to delete cart from redis: %w", err)
	}
	return nil
}
