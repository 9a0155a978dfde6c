// Package retrieval exposes the knowledge base as an opaque ranked-snippet
// source. The classifier treats it as optional enrichment; a failing or empty
// retriever never blocks classification.
package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Snippet is one ranked knowledge excerpt.
type Snippet struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// Retriever is the narrow contract the classifier consumes.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Snippet, error)
}

// MemoryRetriever ranks seeded documents by token overlap. It stands in for
// the vector-similarity subsystem behind the same interface.
type MemoryRetriever struct {
	mu   sync.RWMutex
	docs []document
}

type document struct {
	text   string
	source string
	tokens map[string]struct{}
}

// NewMemoryRetriever creates an empty retriever.
func NewMemoryRetriever() *MemoryRetriever {
	return &MemoryRetriever{}
}

// Add seeds one document.
func (r *MemoryRetriever) Add(text, source string) {
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tokens[tok] = struct{}{}
	}

	r.mu.Lock()
	r.docs = append(r.docs, document{text: text, source: source, tokens: tokens})
	r.mu.Unlock()
}

// Retrieve returns up to k snippets ordered by descending overlap score.
func (r *MemoryRetriever) Retrieve(_ context.Context, query string, k int) ([]Snippet, error) {
	if k <= 0 {
		return nil, nil
	}

	queryTokens := strings.Fields(strings.ToLower(query))
	if len(queryTokens) == 0 {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var ranked []Snippet
	for _, doc := range r.docs {
		hits := 0
		for _, tok := range queryTokens {
			if _, ok := doc.tokens[tok]; ok {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		ranked = append(ranked, Snippet{
			Text:   doc.text,
			Source: doc.source,
			Score:  float64(hits) / float64(len(queryTokens)),
		})
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked, nil
}
