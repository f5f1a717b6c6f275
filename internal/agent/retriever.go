package agent

import (
	"context"
	"fmt"

	"github.com/vtc-digital/rag-orchestrator/internal/model"
)

// RetrieverConfig holds the Document Retriever's tunables.
type RetrieverConfig struct {
	TopK                int
	SimilarityThreshold float64
}

// Retriever vector-searches the document collection for candidate
// passages. It performs no ranking of its own — that is the Grader's job.
type Retriever struct {
	embedder embedder
	search   documentSearcher
	cfg      RetrieverConfig
}

// NewRetriever builds a Retriever.
func NewRetriever(emb embedder, search documentSearcher, cfg RetrieverConfig) *Retriever {
	return &Retriever{embedder: emb, search: search, cfg: cfg}
}

// Retrieve returns the topK nearest document passages to question. If any
// candidate clears the similarity floor, only those are returned;
// otherwise the full topK set is returned and left for the Grader to
// filter. An error here is a retrieval failure the caller should route to
// the Not-Enough-Info responder.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]model.SearchCandidate, error) {
	vec, err := r.embedder.EmbedOne(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("agent.Retriever: embed question: %w", err)
	}

	candidates, err := r.search.SearchDocuments(ctx, vec, r.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("agent.Retriever: search documents: %w", err)
	}

	var above []model.SearchCandidate
	for _, c := range candidates {
		if c.SimilarityScore >= r.cfg.SimilarityThreshold {
			above = append(above, c)
		}
	}
	if len(above) > 0 {
		return above, nil
	}
	return candidates, nil
}
