package agent

import (
	"context"

	"github.com/vtc-digital/rag-orchestrator/internal/model"
)

// completer is the subset of llmclient.Client used for single-shot prompts
// (rewrites, classification, scripted responders, FAQ synthesis).
type completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// streamer is the subset of llmclient.Client used by the Generator.
type streamer interface {
	Stream(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, <-chan error)
}

// llmClient is the full LLM surface an agent may need.
type llmClient interface {
	completer
	streamer
}

// livenessProber reports whether the vector store is currently reachable.
type livenessProber interface {
	IsLive(ctx context.Context) bool
}

// documentSearcher searches the document collection.
type documentSearcher interface {
	SearchDocuments(ctx context.Context, queryVec []float32, topK int) ([]model.SearchCandidate, error)
}

// faqSearcher searches the FAQ collection.
type faqSearcher interface {
	SearchFAQ(ctx context.Context, queryVec []float32, topK int) ([]model.SearchCandidate, error)
}

// store is the full vector-store surface the workflow needs.
type store interface {
	livenessProber
	documentSearcher
	faqSearcher
}

// embedder turns text into a query vector.
type embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// reranker scores (query, passage) pairs, one score per passage in order.
type reranker interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}
