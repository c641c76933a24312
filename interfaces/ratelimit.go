package interfaces

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"staffable/domain"
)

// NewLimiterStore returns the rate-limit counter store: "redis" shares
// counters across instances through client, anything else stays in memory.
func NewLimiterStore(kind string, client *redis.Client) (limiter.Store, error) {
	if kind != "redis" {
		return memory.NewStore(), nil
	}
	if client == nil {
		return nil, errors.New("redis rate-limit store needs a redis client")
	}
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "staffable:limiter", MaxRetry: 3})
	if err != nil {
		return nil, fmt.Errorf("create redis limiter store: %w", err)
	}
	return store, nil
}

// RateLimit limits each signed-in user, or each IP before sign-in, to rate,
// a formatted limiter rate such as "30-M".
func RateLimit(rate string, store limiter.Store) (gin.HandlerFunc, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rate, err)
	}
	return mgin.NewMiddleware(limiter.New(store, r),
		mgin.WithKeyGetter(func(c *gin.Context) string {
			if p, ok := domain.PrincipalFrom(c.Request.Context()); ok {
				return "user:" + p.UserID
			}
			return "ip:" + c.ClientIP()
		}),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			respondError(c, fmt.Errorf("%w: slow down and try again in a minute", errRateLimited))
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			respondError(c, fmt.Errorf("rate limiter: %w", err))
		}),
	), nil
}
