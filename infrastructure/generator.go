package infrastructure

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"staffable/config"
	"staffable/domain"
)

// NewGenerator builds the configured AI provider, wrapped in the Redis cache
// when a client is given. The returned close func releases SDK resources.
func NewGenerator(ctx context.Context, opts config.AIOptions, cache *redis.Client, log *logrus.Logger) (domain.Generator, func() error, error) {
	var (
		gen     domain.Generator
		closeFn = func() error { return nil }
	)

	switch opts.Provider {
	case config.ProviderGemini:
		gen = NewGeminiGenerator(opts.GeminiAPIKey, opts.GeminiBaseURL, opts.GeminiModels, log)
	case config.ProviderVertex:
		v, err := NewVertexGenerator(ctx, opts.VertexProject, opts.VertexLocation, opts.VertexModel, opts.VertexCredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		gen, closeFn = v, v.Close
	case config.ProviderOpenAI:
		gen = NewOpenAIGenerator(opts.OpenAIAPIKey, opts.OpenAIBaseURL, opts.OpenAIModel)
	default:
		return nil, nil, fmt.Errorf("unknown AI provider %q", opts.Provider)
	}

	log.WithField("provider", opts.Provider).Info("AI generator ready")
	if cache != nil && opts.CacheTTL > 0 {
		gen = NewCachedGenerator(gen, cache, opts.CacheTTL, log)
	}
	return gen, closeFn, nil
}
