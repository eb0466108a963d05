package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist tracks revoked JWT ids until they would have expired anyway.
type TokenBlacklist interface {
	IsBlacklisted(ctx context.Context, tenantID, jti string) (bool, error)
	AddToBlacklist(ctx context.Context, tenantID, jti string, ttl time.Duration) error
}

type RedisBlacklist struct {
	client redis.Cmdable
}

func NewRedisBlacklist(client redis.Cmdable) *RedisBlacklist {
	return &RedisBlacklist{client: client}
}

func blacklistKey(tenantID, jti string) string {
	return fmt.Sprintf("blacklist:%s:%s", tenantID, jti)
}

func (r *RedisBlacklist) IsBlacklisted(ctx context.Context, tenantID, jti string) (bool, error) {
	exists, err := r.client.Exists(ctx, blacklistKey(tenantID, jti)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// AddToBlacklist is a no-op for a non-positive ttl; the token has already expired.
func (r *RedisBlacklist) AddToBlacklist(ctx context.Context, tenantID, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, blacklistKey(tenantID, jti), "revoked", ttl).Err()
}
