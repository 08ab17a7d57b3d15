package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenIndex is a lookup accelerator mapping session tokens to user ids.
// It is a cache: the token column on the user row stays authoritative, and
// every lookup result is re-verified against it.
type TokenIndex interface {
	Put(ctx context.Context, token, userID string) error
	Lookup(ctx context.Context, token string) (string, error)
	Drop(ctx context.Context, token string) error
}

const tokenKeyPrefix = "token:"

// RedisTokenIndex keeps the token index in Redis.
type RedisTokenIndex struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisTokenIndex creates the index. ttl = 0 means entries never expire
// on their own; they die when the token is reissued or signed out.
func NewRedisTokenIndex(rdb *redis.Client, ttl time.Duration) *RedisTokenIndex {
	return &RedisTokenIndex{rdb: rdb, ttl: ttl}
}

func (s *RedisTokenIndex) Put(ctx context.Context, token, userID string) error {
	return s.rdb.Set(ctx, tokenKeyPrefix+token, userID, s.ttl).Err()
}

// Lookup returns the userID for a token, or "" if not indexed.
func (s *RedisTokenIndex) Lookup(ctx context.Context, token string) (string, error) {
	val, err := s.rdb.Get(ctx, tokenKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (s *RedisTokenIndex) Drop(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, tokenKeyPrefix+token).Err()
}
