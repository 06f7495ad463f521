package database

import (
	"context"
	"fmt"
	"time"

	"collab-server/shared/interfaces"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check
var _ interfaces.IdempotencyStore = (*redisIdempotencyStore)(nil)

// inFlightMarker is stored while the first request with a key is still being
// processed. A replay that reads it gets an empty prior result, which the
// service maps to DuplicateRequest.
const inFlightMarker = "__in_flight__"

type redisIdempotencyStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisIdempotencyStore creates a Redis-backed IdempotencyStore.
func NewRedisIdempotencyStore(client *redis.Client, logger *zap.Logger) interfaces.IdempotencyStore {
	return &redisIdempotencyStore{
		client: client,
		logger: logger.Named("RedisIdempotencyStore"),
	}
}

func (s *redisIdempotencyStore) key(k string) string {
	return fmt.Sprintf("idempotency:%s", k)
}

func (s *redisIdempotencyStore) Begin(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
	claimed, err := s.client.SetNX(ctx, s.key(key), inFlightMarker, ttl).Result()
	if err != nil {
		return false, nil, fmt.Errorf("claiming idempotency key: %w", err)
	}
	if claimed {
		s.logger.Debug("Idempotency key claimed", zap.String("key", key))
		return true, nil, nil
	}

	prior, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		// Key expired between SetNX and Get; treat as a fresh replay with no
		// stored result rather than failing the request.
		if err == redis.Nil {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("reading prior result for idempotency key: %w", err)
	}
	if string(prior) == inFlightMarker {
		return false, nil, nil
	}
	return false, prior, nil
}

func (s *redisIdempotencyStore) Complete(ctx context.Context, key string, result []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), result, ttl).Err(); err != nil {
		return fmt.Errorf("storing idempotency result: %w", err)
	}
	return nil
}

func (s *redisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("releasing idempotency key: %w", err)
	}
	return nil
}
