package service

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "foodgram:revoked:"

// RedisRevocationStore shares revoked token ids between API instances
type RedisRevocationStore struct {
	client *redis.Client
}

func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err()
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := s.client.Get(ctx, revokedKeyPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MemoryRevocationStore is the single-instance fallback used without Redis
type MemoryRevocationStore struct {
	cache *gocache.Cache
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{cache: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.cache.Set(tokenID, struct{}{}, ttl)
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, found := s.cache.Get(tokenID)
	return found, nil
}
