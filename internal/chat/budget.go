package chat

import (
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"
)

// DefaultContextTokens caps the retrieved context sent to the generator.
const DefaultContextTokens = 6000

// Budget measures and trims text in model tokens. Without a codec it
// estimates four bytes per token.
type Budget struct {
	codec tokenizer.Codec
	max   int
}

// NewBudget creates a budget of limit tokens using the cl100k encoding.
func NewBudget(limit int) *Budget {
	if limit <= 0 {
		limit = DefaultContextTokens
	}
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		log.Warn().Err(err).Msg("Tokenizer unavailable, estimating token counts")
		codec = nil
	}
	return &Budget{codec: codec, max: limit}
}

// Max returns the token limit.
func (b *Budget) Max() int { return b.max }

// Count returns the number of tokens in s.
func (b *Budget) Count(s string) int {
	if b.codec != nil {
		if ids, _, err := b.codec.Encode(s); err == nil {
			return len(ids)
		}
	}
	return (len(s) + 3) / 4
}

// Truncate cuts s to at most n tokens.
func (b *Budget) Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if b.codec != nil {
		ids, _, err := b.codec.Encode(s)
		if err == nil {
			if len(ids) <= n {
				return s
			}
			if out, err := b.codec.Decode(ids[:n]); err == nil {
				return out
			}
		}
	}
	if len(s) <= n*4 {
		return s
	}
	return strings.ToValidUTF8(s[:n*4], "")
}
