package embedding

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/goatcheese98/career-constellation/pkg/models"
)

// DefaultGeminiModel is the embedding model used when none is configured.
const DefaultGeminiModel = "gemini-embedding-001"

const geminiBatchSize = 100

// maxGeminiChars caps the characters sent per text.
const maxGeminiChars = 10000

// geminiInput trims t and caps it at maxGeminiChars characters.
func geminiInput(t string) string {
	return models.Truncate(strings.TrimSpace(t), maxGeminiChars)
}

// GeminiProvider embeds through the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini client for apiKey.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
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
	return &GeminiProvider{client: client, model: model}, nil
}

// Name implements Provider.
func (p *GeminiProvider) Name() Strategy { return StrategyGemini }

// Embed implements Provider.
func (p *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += geminiBatchSize {
		end := min(start+geminiBatchSize, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, t := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(geminiInput(t), genai.RoleUser))
		}

		resp, err := p.client.Models.EmbedContent(ctx, p.model, contents, nil)
		if err != nil {
			return nil, fmt.Errorf("gemini embed content: %w", err)
		}
		if resp == nil || len(resp.Embeddings) != len(contents) {
			return nil, fmt.Errorf("gemini returned an unexpected number of embeddings")
		}
		for _, e := range resp.Embeddings {
			v := make([]float64, len(e.Values))
			for i, x := range e.Values {
				v[i] = float64(x)
			}
			out = append(out, v)
		}
	}
	return out, nil
}
