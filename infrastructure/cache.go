package infrastructure

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"staffable/domain"
)

// CachedGenerator serves repeated prompts from Redis. Cache failures never
// fail a generation.
type CachedGenerator struct {
	next   domain.Generator
	redis  *redis.Client
	prefix string
	ttl    time.Duration
	log    *logrus.Logger
}

func NewCachedGenerator(next domain.Generator, client *redis.Client, ttl time.Duration, log *logrus.Logger) *CachedGenerator {
	return &CachedGenerator{next: next, redis: client, prefix: "staffable:ai:", ttl: ttl, log: log}
}

func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

func promptKey(p domain.Prompt) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func (c *CachedGenerator) Generate(ctx context.Context, p domain.Prompt) (string, error) {
	key, err := promptKey(p)
	if err != nil {
		return c.next.Generate(ctx, p)
	}
	key = c.prefix + key

	cached, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		c.log.WithField("key", key).Debug("serving cached AI response")
		return cached, nil
	case !errors.Is(err, redis.Nil):
		c.log.WithError(err).Warn("read AI cache")
	}

	out, err := c.next.Generate(ctx, p)
	if err != nil {
		return "", err
	}
	if err := c.redis.Set(ctx, key, out, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("write AI cache")
	}
	return out, nil
}
