// Package redis stores blobs in Redis through go-redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-patient-monitor/internal/domain"
	"github.com/redis/go-redis/v9"
)

var (
	ErrFailedToParseConnString = errors.New("failed to parse redis connection string")
	ErrNotReady                = errors.New("redis did not become ready")
)

// Connect parses url and pings the server up to attempts times, waiting
// interval between tries, within timeout overall.
func Connect(ctx context.Context, url string, attempts int, interval, timeout time.Duration) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseConnString, err)
	}

	for range attempts {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotReady, ctx.Err())
		case <-time.After(interval):
		}
	}
	return nil, ErrNotReady
}

// kv is the subset of the go-redis client the store needs.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type Store struct {
	db kv
}

func NewStore(db kv) *Store {
	return &Store{db: db}
}

// Get returns the value under key; a missing key wraps domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.db.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis key %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

// Put stores data under key without expiration.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := s.db.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
