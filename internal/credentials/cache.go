package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/restock-systems/stockwatch/internal/models"
)

// TokenCache stores access tokens by credential identity. Get returns nil
// without error on a miss.
type TokenCache interface {
	Get(ctx context.Context, key string) (*models.AccessToken, error)
	Set(ctx context.Context, key string, tok *models.AccessToken) error
}

// MemoryTokenCache is a process-local TokenCache.
type MemoryTokenCache struct {
	mu     sync.RWMutex
	tokens map[string]models.AccessToken
}

// NewMemoryTokenCache creates an empty in-memory cache.
func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{tokens: make(map[string]models.AccessToken)}
}

func (c *MemoryTokenCache) Get(_ context.Context, key string) (*models.AccessToken, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tok, ok := c.tokens[key]
	if !ok {
		return nil, nil
	}
	return &tok, nil
}

func (c *MemoryTokenCache) Set(_ context.Context, key string, tok *models.AccessToken) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[key] = *tok
	return nil
}

// RedisTokenCache shares tokens between replicas.
type RedisTokenCache struct {
	redis  *redis.Client
	prefix string
}

// NewRedisTokenCache creates a Redis-backed cache.
func NewRedisTokenCache(client *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{redis: client, prefix: "stockwatch:token:"}
}

func (c *RedisTokenCache) Get(ctx context.Context, key string) (*models.AccessToken, error) {
	data, err := c.redis.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached token: %w", err)
	}

	var tok models.AccessToken
	if err := json.Unmarshal([]byte(data), &tok); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached token: %w", err)
	}
	return &tok, nil
}

func (c *RedisTokenCache) Set(ctx context.Context, key string, tok *models.AccessToken) error {
	ttl := time.Until(tok.Expiry)
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := c.redis.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache token: %w", err)
	}
	return nil
}
