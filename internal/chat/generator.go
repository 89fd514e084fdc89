package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultGeminiModel is the generation model used when none is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// historyTurns is how many prior messages are replayed to the generator.
const historyTurns = 3

// Message is one turn of chat history. Role is "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator turns a prompt plus history into prose.
type Generator interface {
	Generate(ctx context.Context, history []Message, prompt string) (string, error)
}

// GeminiGenerator generates answers through the Gemini API with retries on
// rate limits and server errors.
type GeminiGenerator struct {
	client     *genai.Client
	model      string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	timeout    time.Duration
}

// NewGeminiGenerator creates a Gemini client for apiKey.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key not set")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{
		client:     client,
		model:      model,
		maxRetries: 2,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   4 * time.Second,
		timeout:    60 * time.Second,
	}, nil
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, history []Message, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, historyTurns+1)
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	for _, h := range history {
		role := genai.Role(genai.RoleModel)
		if h.Role == "user" {
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(h.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(0.3)),
		TopP:            genai.Ptr(float32(0.95)),
		TopK:            genai.Ptr(float32(40)),
		MaxOutputTokens: 2500,
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			delay := min(g.baseDelay<<(attempt-1), g.maxDelay)
			log.Debug().Int("attempt", attempt).Dur("delay", delay).Msg("Retrying generation")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", fmt.Errorf("generate: %w", ctx.Err())
			}
		}

		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
		if err == nil {
			text := resp.Text()
			if strings.TrimSpace(text) == "" {
				return "", fmt.Errorf("generate: empty response")
			}
			return text, nil
		}
		lastErr = err
		if !retryable(err) {
			return "", fmt.Errorf("generate: %w", err)
		}
	}
	return "", fmt.Errorf("generate: retries exhausted: %w", lastErr)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "EOF")
}
