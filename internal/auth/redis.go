package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisBlocklist is a Blocklist shared across service instances. Entries are
// plain keys with a TTL equal to the revoked token's remaining lifetime, so
// Redis expires them on its own and a logout is observed by every instance.
type RedisBlocklist struct {
	client *redis.Client
	prefix string
}

// NewRedisBlocklist connects to Redis and verifies the connection.
func NewRedisBlocklist(addr, password string, db int) (*RedisBlocklist, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis blocklist: %w", err)
	}
	return &RedisBlocklist{client: client, prefix: "askhub:revoked:"}, nil
}

// key stores the SHA-256 of the token, never the raw token string.
func (b *RedisBlocklist) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return b.prefix + hex.EncodeToString(sum[:])
}

// Revoke marks the token revoked for ttl.
func (b *RedisBlocklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" || ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, b.key(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token has an unexpired revocation entry.
func (b *RedisBlocklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := b.client.Exists(ctx, b.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

// Close releases the underlying Redis connection pool.
func (b *RedisBlocklist) Close() error {
	return b.client.Close()
}
