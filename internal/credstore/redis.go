package credstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisTimeout = 3 * time.Second

// RedisStore keeps tokens in Redis under
// clinicflow:<origin>:access_token and clinicflow:<origin>:refresh_token.
type RedisStore struct {
	rdb     redis.UniversalClient
	access  string
	refresh string
	timeout time.Duration
}

// NewRedisStore returns a store using rdb, scoped to origin.
func NewRedisStore(rdb redis.UniversalClient, origin string) *RedisStore {
	prefix := "clinicflow:" + origin + ":"
	return &RedisStore{
		rdb:     rdb,
		access:  prefix + AccessKey,
		refresh: prefix + RefreshKey,
		timeout: defaultRedisTimeout,
	}
}

// Save writes both keys in one MULTI/EXEC so readers never observe a mixed
// pair.
func (s *RedisStore) Save(access, refresh string) error {
	ctx, cancel := s.context()
	defer cancel()

	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		setOrDel(ctx, p, s.access, access)
		setOrDel(ctx, p, s.refresh, refresh)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *RedisStore) SaveAccess(access string) error {
	ctx, cancel := s.context()
	defer cancel()

	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		setOrDel(ctx, p, s.access, access)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save access token: %w", err)
	}
	return nil
}

func (s *RedisStore) Read() (Tokens, error) {
	ctx, cancel := s.context()
	defer cancel()

	values, err := s.rdb.MGet(ctx, s.access, s.refresh).Result()
	if err != nil {
		return Tokens{}, fmt.Errorf("read credentials: %w", err)
	}
	var tokens Tokens
	if len(values) == 2 {
		tokens.Access, _ = values[0].(string)
		tokens.Refresh, _ = values[1].(string)
	}
	return tokens, nil
}

func (s *RedisStore) Clear() error {
	ctx, cancel := s.context()
	defer cancel()

	if err := s.rdb.Del(ctx, s.access, s.refresh).Err(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func setOrDel(ctx context.Context, p redis.Pipeliner, key, value string) {
	if value == "" {
		p.Del(ctx, key)
		return
	}
	p.Set(ctx, key, value, 0)
}
