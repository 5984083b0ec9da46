package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV is the production correlation store. TTL enforcement is delegated
// to redis key expiry.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (s *RedisKV) Put(ctx context.Context, kind Kind, messageID string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", kind, err)
	}
	if err := s.client.Set(ctx, kind.Key(messageID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", kind.Key(messageID), err)
	}
	return nil
}

func (s *RedisKV) Get(ctx context.Context, kind Kind, messageID string, out any) error {
	payload, err := s.client.Get(ctx, kind.Key(messageID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("get %s: %w", kind.Key(messageID), err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s record: %w", kind, err)
	}
	return nil
}

func (s *RedisKV) Take(ctx context.Context, kind Kind, messageID string, out any) error {
	payload, err := s.client.GetDel(ctx, kind.Key(messageID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("getdel %s: %w", kind.Key(messageID), err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s record: %w", kind, err)
	}
	return nil
}

func (s *RedisKV) Delete(ctx context.Context, kind Kind, messageID string) error {
	if err := s.client.Del(ctx, kind.Key(messageID)).Err(); err != nil {
		return fmt.Errorf("del %s: %w", kind.Key(messageID), err)
	}
	return nil
}

func (s *RedisKV) ListIDs(ctx context.Context, kind Kind) ([]string, error) {
	var (
		ids    []string
		cursor uint64
	)
	prefix := kind.Prefix()
	for {
		keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", prefix, err)
		}
		for _, key := range keys {
			ids = append(ids, strings.TrimPrefix(key, prefix))
		}
		cursor = next
		if cursor == 0 {
			return ids, nil
		}
	}
}

func (s *RedisKV) FlushAll(ctx context.Context) error {
	if err := s.client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("flushdb: %w", err)
	}
	return nil
}
