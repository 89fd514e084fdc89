package worker

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/goatcheese98/career-constellation/internal/chat"
	"github.com/goatcheese98/career-constellation/internal/config"
	"github.com/goatcheese98/career-constellation/internal/embedding"
)

// NewEmbedder builds the embedding service named by cfg. Any provider that
// cannot be created leaves the tf-idf fallback as the only strategy.
func NewEmbedder(ctx context.Context, cfg *config.Config) *embedding.Service {
	var primary embedding.Provider
	switch cfg.EmbeddingProvider {
	case config.ProviderHTTP:
		primary = embedding.NewHTTPProvider(cfg.EmbeddingURL, 0)
	case config.ProviderGemini:
		p, err := embedding.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
		if err != nil {
			log.Warn().Err(err).Msg("Gemini embeddings unavailable, using tf-idf")
		} else {
			primary = p
		}
	case config.ProviderTFIDF, "":
	default:
		log.Warn().Str("provider", cfg.EmbeddingProvider).Msg("Unknown embedding provider, using tf-idf")
	}

	if primary != nil {
		log.Info().Str("provider", string(primary.Name())).Msg("Embedding provider configured")
	}
	return embedding.NewService(primary, embedding.NewTFIDFProvider())
}

// NewGenerator returns a Gemini generator when a key is configured, or nil
// for limited-mode chat.
func NewGenerator(ctx context.Context, cfg *config.Config) chat.Generator {
	if cfg.GeminiAPIKey == "" {
		log.Info().Msg("No Gemini API key, chat runs in limited mode")
		return nil
	}
	gen, err := chat.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Warn().Err(err).Msg("Gemini generator unavailable, chat runs in limited mode")
		return nil
	}
	return gen
}
