package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize   = 32
	defaultConcurrency = 4
)

// HTTPProvider calls a sentence-embedding server speaking the
// text-embeddings-inference wire format: POST /embed {"inputs": [...]}
// answered by a JSON array of float arrays.
type HTTPProvider struct {
	client      *resty.Client
	batchSize   int
	concurrency int
}

// NewHTTPProvider creates a provider for the server at baseURL.
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Content-Type", "application/json")
	return &HTTPProvider{client: client, batchSize: defaultBatchSize, concurrency: defaultConcurrency}
}

// Name implements Provider.
func (p *HTTPProvider) Name() Strategy { return StrategyHTTP }

// Embed implements Provider. Batches are sent concurrently and reassembled
// in input order.
func (p *HTTPProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))
		g.Go(func() error {
			vectors, err := p.embedBatch(ctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], vectors)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *HTTPProvider) embedBatch(ctx context.Context, batch []string) ([][]float64, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"inputs": batch, "normalize": true}).
		Post("/embed")
	if err != nil {
		return nil, fmt.Errorf("post embed batch: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("embed server returned %d: %s", resp.StatusCode(), resp.String())
	}

	rows := gjson.ParseBytes(resp.Body()).Array()
	if len(rows) != len(batch) {
		return nil, fmt.Errorf("embed server returned %d vectors for %d texts", len(rows), len(batch))
	}
	vectors := make([][]float64, len(rows))
	for i, row := range rows {
		values := row.Array()
		v := make([]float64, len(values))
		for j, x := range values {
			v[j] = x.Float()
		}
		vectors[i] = v
	}
	return vectors, nil
}
