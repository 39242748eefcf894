package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nurpe/orderflow/internal/model"
)

const tokenKeyPrefix = "orderflow:token:"

// RedisTokenCache keeps resolved tokens in redis. Redis being unavailable
// degrades to a cache miss.
type RedisTokenCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewRedisTokenCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *RedisTokenCache {
	return &RedisTokenCache{client: client, ttl: ttl, log: log}
}

func (c *RedisTokenCache) Get(ctx context.Context, id string) (*model.Token, bool) {
	raw, err := c.client.Get(ctx, tokenKeyPrefix+id).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn().Err(err).Msg("token cache get failed")
		}
		return nil, false
	}
	var token model.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, false
	}
	return &token, true
}

func (c *RedisTokenCache) Set(ctx context.Context, token model.Token) {
	raw, err := json.Marshal(token)
	if err != nil {
		return
	}
	ttl := c.ttl
	if token.ExpiresAt != nil {
		if untilExpiry := time.Until(*token.ExpiresAt); untilExpiry > 0 && untilExpiry < ttl {
			ttl = untilExpiry
		}
	}
	if err := c.client.Set(ctx, tokenKeyPrefix+token.ID, raw, ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("token cache set failed")
	}
}

func (c *RedisTokenCache) Delete(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, tokenKeyPrefix+id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn().Err(err).Msg("token cache delete failed")
	}
}
