package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zaptalk/zaptalk/pkg/models"
)

const redisKeyPrefix = "zaptalk:template:"

// RedisCache is the template cache for multi-instance deployments, where
// a per-process cache would serve stale templates after an edit on
// another instance.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, logger *slog.Logger, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &RedisCache{
		client: client,
		logger: logger.With("module", "template_cache"),
		ttl:    ttl,
	}
}

func (c *RedisCache) Get(ctx context.Context, id string) (*models.MessageTemplate, bool) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		return nil, false
	}

	var template models.MessageTemplate

	err = json.Unmarshal(raw, &template)
	if err != nil {
		c.logger.WarnContext(ctx, "Dropping undecodable cached template", "template_id", id, "error", err)
		c.client.Del(ctx, redisKeyPrefix+id)

		return nil, false
	}

	return &template, true
}

func (c *RedisCache) Set(ctx context.Context, template *models.MessageTemplate) {
	raw, err := json.Marshal(template)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to marshal template for cache", "template_id", template.ID, "error", err)

		return
	}

	err = c.client.Set(ctx, redisKeyPrefix+template.ID, raw, c.ttl).Err()
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to cache template", "template_id", template.ID, "error", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, id string) {
	err := c.client.Del(ctx, redisKeyPrefix+id).Err()
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to invalidate cached template", "template_id", id, "error", err)
	}
}
