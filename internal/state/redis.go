package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one hash per namespace, field = record key.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, prefix: "state:"}
}

func (s *RedisStore) hash(namespace string) string {
	return s.prefix + namespace
}

func (s *RedisStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	data, err := s.client.HGet(ctx, s.hash(namespace), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis hget: %w", err)
	}
	return data, nil
}

func (s *RedisStore) Set(ctx context.Context, namespace, key string, value []byte) error {
	if err := s.client.HSet(ctx, s.hash(namespace), key, value).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, namespace, key string) error {
	if err := s.client.HDel(ctx, s.hash(namespace), key).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, namespace string) ([][]byte, error) {
	vals, err := s.client.HVals(ctx, s.hash(namespace)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hvals: %w", err)
	}
	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		out = append(out, []byte(v))
	}
	return out, nil
}
