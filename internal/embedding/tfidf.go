package embedding

import (
	"context"
	"errors"

	"github.com/goatcheese98/career-constellation/internal/tfidf"
)

// TFIDFProvider fits a bag-of-words vectorizer on exactly the batch it is
// given. Its vector space is not portable across calls.
type TFIDFProvider struct {
	opts tfidf.Options
}

// NewTFIDFProvider returns the fallback with 100 features, English stop words
// and a document-frequency floor of 2.
func NewTFIDFProvider() *TFIDFProvider {
	return &TFIDFProvider{opts: tfidf.Options{
		NGramMin:    1,
		NGramMax:    1,
		MaxFeatures: 100,
		MinDF:       2,
		StopWords:   true,
	}}
}

// Name implements Provider.
func (p *TFIDFProvider) Name() Strategy { return StrategyTFIDF }

// Embed implements Provider. If the floor prunes every term, the batch is
// refit with a floor of 1.
func (p *TFIDFProvider) Embed(_ context.Context, texts []string) ([][]float64, error) {
	vec := tfidf.New(p.opts)
	rows, err := vec.FitTransform(texts)
	if errors.Is(err, tfidf.ErrEmptyVocabulary) && p.opts.MinDF > 1 {
		relaxed := p.opts
		relaxed.MinDF = 1
		vec = tfidf.New(relaxed)
		rows, err = vec.FitTransform(texts)
	}
	if err != nil {
		return nil, err
	}

	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = row.Dense(vec.Dim())
	}
	return out, nil
}
