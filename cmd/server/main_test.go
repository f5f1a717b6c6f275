package main

import (
	"os"
	"testing"

	"github.com/vtc-digital/rag-orchestrator/internal/config"
	"github.com/vtc-digital/rag-orchestrator/internal/embedclient"
	"github.com/vtc-digital/rag-orchestrator/internal/rerankclient"
)

func TestGetPort_FromConfig(t *testing.T) {
	os.Unsetenv("PORT")
	cfg := &config.Config{Port: 9090}
	if got := getPort(cfg); got != "9090" {
		t.Errorf("getPort() = %q, want %q", got, "9090")
	}
}

func TestGetPort_EnvOverridesConfig(t *testing.T) {
	t.Setenv("PORT", "3000")
	cfg := &config.Config{Port: 9090}
	if got := getPort(cfg); got != "3000" {
		t.Errorf("getPort() = %q, want %q", got, "3000")
	}
}

func TestVersion(t *testing.T) {
	if Version == "" {
		t.Error("Version must not be empty")
	}
}

func TestBuildWorkflow_WiresAllAgentsWithoutPanicking(t *testing.T) {
	cfg := &config.Config{
		LLMBaseURL:                  "http://localhost:8000/v1",
		LLMModel:                    "test-model",
		EmbeddingBaseURL:            "http://localhost:8001",
		EmbeddingModel:              "test-embed",
		EmbeddingDimension:          8,
		RerankerBaseURL:             "http://localhost:8002",
		RerankerModel:               "test-rerank",
		RerankerMaxInputLength:      512,
		RerankerBatchSize:           8,
		TopK:                        5,
		FAQTopK:                     5,
		SimilarityThreshold:         0.2,
		FAQVectorThreshold:          0.5,
		FAQRerankThreshold:          0.6,
		FAQRerankDirectThreshold:    0.75,
		FAQSimilarityForceThreshold: 0.85,
		FAQWeightQuestion:           0.5,
		FAQWeightQuestionAnswer:     0.3,
		FAQWeightAnswer:             0.2,
		FAQConsistencyThreshold:     0.6,
		FAQConsistencyBonus:         1.1,
		DocumentRerankThreshold:     0.6,
		SupportPhone:                "1900-xxxx",
	}

	reranker := rerankclient.New(cfg.RerankerBaseURL, cfg.RerankerModel, cfg.RerankerMaxInputLength, cfg.RerankerBatchSize)
	embedder := embedclient.New(cfg.EmbeddingBaseURL, cfg.EmbeddingModel)
	wf := buildWorkflow(cfg, nil, nil, reranker, embedder)
	if wf == nil {
		t.Fatal("expected a non-nil workflow from buildWorkflow")
	}
}
