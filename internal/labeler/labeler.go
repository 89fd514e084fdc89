// Package labeler names clusters from the phrases shared by their titles.
package labeler

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/goatcheese98/career-constellation/pkg/similarity"
)

const (
	// MinDocFreq is the number of titles a phrase must appear in.
	MinDocFreq = 2
	// MaxTitleLabel caps the fallback label length in characters.
	MaxTitleLabel = 40
)

// DomainStopWords are generic posting tokens never used in labels.
var DomainStopWords = []string{
	"methanex", "proman",
	"job", "posting", "position", "role", "internal",
	"temporary", "temp", "contract", "term", "assignment", "secondment",
	"docx", "jd", "ad", "locations",
	"senior", "sr", "junior", "jr", "ii", "iii",
}

// Labeler derives a label from a multiset of titles.
// It is safe for concurrent use.
type Labeler struct {
	stop map[string]bool
}

// New creates a labeler excluding DomainStopWords plus extra.
func New(extra ...string) *Labeler {
	stop := make(map[string]bool, len(DomainStopWords)+len(extra))
	for _, w := range DomainStopWords {
		stop[w] = true
	}
	for _, w := range extra {
		stop[strings.ToLower(w)] = true
	}
	return &Labeler{stop: stop}
}

// Phrase is a candidate n-gram with its counts.
type Phrase struct {
	Text     string
	Count    int
	DocCount int
	order    int
}

// Phrases returns the n-grams of length n found in titles, in first-seen order.
func (l *Labeler) Phrases(titles []string, n int) []Phrase {
	index := make(map[string]int)
	var out []Phrase
	for _, t := range titles {
		tokens := similarity.ContentTokens(t, l.stop)
		seen := make(map[string]bool)
		for _, g := range similarity.NGrams(tokens, n, n) {
			i, ok := index[g]
			if !ok {
				i = len(out)
				index[g] = i
				out = append(out, Phrase{Text: g, order: i})
			}
			out[i].Count++
			if !seen[g] {
				seen[g] = true
				out[i].DocCount++
			}
		}
	}
	return out
}

// best returns the most frequent phrase meeting the document floor. Equal
// counts keep the phrase seen first.
func best(phrases []Phrase) (Phrase, bool) {
	var top Phrase
	found := false
	for _, p := range phrases {
		if p.DocCount < MinDocFreq {
			continue
		}
		if !found || p.Count > top.Count {
			top, found = p, true
		}
	}
	return top, found
}

// Label picks the top bigram, else the top unigram, else the first title cut
// to MaxTitleLabel characters. It returns "" for an empty title list.
func (l *Labeler) Label(titles []string) string {
	caser := cases.Title(language.English)
	if p, ok := best(l.Phrases(titles, 2)); ok {
		return caser.String(p.Text)
	}
	if p, ok := best(l.Phrases(titles, 1)); ok {
		return caser.String(p.Text)
	}
	for _, t := range titles {
		if t = strings.TrimSpace(t); t != "" {
			return caser.String(truncate(t, MaxTitleLabel))
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
