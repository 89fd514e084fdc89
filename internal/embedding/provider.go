// Package embedding maps job texts to fixed-dimension vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Strategy names the provider that produced an embedding matrix.
// Vectors are only comparable within one matrix of one strategy.
type Strategy string

const (
	StrategyHTTP   Strategy = "http"
	StrategyGemini Strategy = "gemini"
	StrategyTFIDF  Strategy = "tfidf"
)

var (
	// ErrNoTexts is returned when Embed is called with an empty batch.
	ErrNoTexts = errors.New("embedding: no texts")
	// ErrDimensionMismatch is returned when rows of one batch differ in length.
	ErrDimensionMismatch = errors.New("embedding: inconsistent vector dimension")
)

// Provider turns an ordered batch of texts into one vector per text.
type Provider interface {
	Name() Strategy
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Result is an embedding matrix plus the strategy that produced it.
type Result struct {
	Strategy Strategy
	Vectors  [][]float64
	Dim      int
	// Degraded is set when the primary provider failed and the fallback ran.
	Degraded bool
}

// Service embeds with a primary provider and falls back when it fails.
type Service struct {
	primary  Provider
	fallback Provider
}

// NewService creates a service. primary may be nil, in which case only the
// fallback is used.
func NewService(primary, fallback Provider) *Service {
	if fallback == nil {
		fallback = NewTFIDFProvider()
	}
	return &Service{primary: primary, fallback: fallback}
}

// Embed returns the embedding matrix for texts. A primary failure is logged
// and recovered through the fallback provider.
func (s *Service) Embed(ctx context.Context, texts []string) (*Result, error) {
	if len(texts) == 0 {
		return nil, ErrNoTexts
	}

	if s.primary != nil {
		vectors, err := s.primary.Embed(ctx, texts)
		if err == nil {
			err = validate(vectors, len(texts))
		}
		if err == nil {
			return &Result{Strategy: s.primary.Name(), Vectors: vectors, Dim: len(vectors[0])}, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("embed with %s: %w", s.primary.Name(), ctx.Err())
		}
		log.Warn().Err(err).
			Str("provider", string(s.primary.Name())).
			Str("fallback", string(s.fallback.Name())).
			Msg("Embedding provider unavailable, falling back")
	}

	vectors, err := s.fallback.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed with %s: %w", s.fallback.Name(), err)
	}
	if err := validate(vectors, len(texts)); err != nil {
		return nil, fmt.Errorf("embed with %s: %w", s.fallback.Name(), err)
	}
	return &Result{
		Strategy: s.fallback.Name(),
		Vectors:  vectors,
		Dim:      len(vectors[0]),
		Degraded: s.primary != nil,
	}, nil
}

func validate(vectors [][]float64, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("got %d vectors for %d texts: %w", len(vectors), want, ErrDimensionMismatch)
	}
	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("empty vector: %w", ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("row %d has %d values, want %d: %w", i, len(v), dim, ErrDimensionMismatch)
		}
	}
	return nil
}
