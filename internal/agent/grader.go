package agent

import (
	"context"
	"fmt"

	"github.com/vtc-digital/rag-orchestrator/internal/model"
)

// GraderConfig holds the Grader's dual thresholds.
type GraderConfig struct {
	RerankThreshold     float64
	SimilarityThreshold float64
}

// Grader reranks document candidates with the cross-encoder and keeps only
// those that clear both the rerank and similarity floors.
type Grader struct {
	rerank reranker
	cfg    GraderConfig
}

// NewGrader builds a Grader.
func NewGrader(rerank reranker, cfg GraderConfig) *Grader {
	return &Grader{rerank: rerank, cfg: cfg}
}

// Grade reranks candidates against question and returns the subset
// satisfying both thresholds (SUFFICIENT when non-empty, INSUFFICIENT
// otherwise — the caller interprets an empty slice as INSUFFICIENT). A
// reranker failure is fatal and propagates.
func (g *Grader) Grade(ctx context.Context, question string, candidates []model.SearchCandidate) ([]model.RankedCandidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	passages := make([]string, len(candidates))
	for i, c := range candidates {
		passages[i] = truncateRunes(c.PayloadText, 500)
	}

	scores, err := g.rerank.Score(ctx, question, passages)
	if err != nil {
		return nil, fmt.Errorf("agent.Grader: reranker failed: %w", err)
	}

	var qualified []model.RankedCandidate
	for i, c := range candidates {
		if scores[i] >= g.cfg.RerankThreshold && c.SimilarityScore >= g.cfg.SimilarityThreshold {
			qualified = append(qualified, model.RankedCandidate{
				SearchCandidate: c,
				RerankScore:     scores[i],
			})
		}
	}
	return qualified, nil
}
