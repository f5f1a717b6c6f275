// Package config loads service configuration from the process environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment
// variables. It is immutable after Load() returns.
type Config struct {
	Port        int
	Environment string

	DatabaseURL         string
	DatabaseMaxConns    int
	VectorDocumentTable string
	VectorFAQTable      string

	LLMBaseURL string
	LLMModel   string

	EmbeddingBaseURL   string
	EmbeddingModel     string
	EmbeddingDimension int
	EmbeddingFailFast  bool

	SimilarityThreshold float64
	TopK                int
	FAQTopK             int

	FAQVectorThreshold          float64
	FAQRerankThreshold          float64
	FAQRerankDirectThreshold    float64
	FAQSimilarityForceThreshold float64
	FAQWeightQuestion           float64
	FAQWeightQuestionAnswer     float64
	FAQWeightAnswer             float64
	FAQConsistencyThreshold     float64
	FAQConsistencyBonus         float64

	DocumentRerankThreshold float64

	RerankerBaseURL        string
	RerankerModel          string
	RerankerMaxInputLength int
	RerankerBatchSize      int
	RerankerFailFast       bool

	SupportPhone string

	CacheBackend        string
	RedisURL            string
	ClassifierCacheSize int

	FrontendURL            string
	ShutdownTimeoutSeconds int
}

// Load reads configuration from environment variables. DATABASE_URL is the
// only required variable; everything else has a documented default.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("config.Load: DATABASE_URL is required")
	}

	cfg := &Config{
		Port:        envInt("PORT", 8080),
		Environment: envStr("ENVIRONMENT", "development"),

		DatabaseURL:         dbURL,
		DatabaseMaxConns:    envInt("DATABASE_MAX_CONNS", 10),
		VectorDocumentTable: envStr("VECTOR_STORE_DOCUMENT_COLLECTION", "documents"),
		VectorFAQTable:      envStr("VECTOR_STORE_FAQ_COLLECTION", "faqs"),

		LLMBaseURL: envStr("LLM_BASE_URL", "http://localhost:8000/v1"),
		LLMModel:   envStr("LLM_MODEL", "gpt-4o-mini"),

		EmbeddingBaseURL:   envStr("EMBEDDING_BASE_URL", "http://localhost:8001"),
		EmbeddingModel:     envStr("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimension: envInt("EMBEDDING_DIMENSION", 768),
		EmbeddingFailFast:  envBool("EMBEDDING_FAIL_FAST", true),

		SimilarityThreshold: envFloat("SIMILARITY_THRESHOLD", 0.2),
		TopK:                envInt("TOP_K", 15),
		FAQTopK:             envInt("FAQ_TOP_K", 10),

		FAQVectorThreshold:          envFloat("FAQ_VECTOR_THRESHOLD", 0.5),
		FAQRerankThreshold:          envFloat("FAQ_RERANK_THRESHOLD", 0.6),
		FAQRerankDirectThreshold:    envFloat("FAQ_RERANK_DIRECT_THRESHOLD", 0.75),
		FAQSimilarityForceThreshold: envFloat("FAQ_SIMILARITY_FORCE_THRESHOLD", 0.85),
		FAQWeightQuestion:           envFloat("FAQ_WEIGHT_QUESTION", 0.5),
		FAQWeightQuestionAnswer:     envFloat("FAQ_WEIGHT_QUESTION_ANSWER", 0.3),
		FAQWeightAnswer:             envFloat("FAQ_WEIGHT_ANSWER", 0.2),
		FAQConsistencyThreshold:     envFloat("FAQ_CONSISTENCY_THRESHOLD", 0.6),
		FAQConsistencyBonus:         envFloat("FAQ_CONSISTENCY_BONUS", 1.1),

		DocumentRerankThreshold: envFloat("DOCUMENT_RERANK_THRESHOLD", 0.6),

		RerankerBaseURL:        envStr("RERANKER_BASE_URL", "http://localhost:8002"),
		RerankerModel:          envStr("RERANKER_MODEL", "cross-encoder-vi"),
		RerankerMaxInputLength: envInt("RERANKER_MAX_INPUT_LENGTH", 512),
		RerankerBatchSize:      envInt("RERANKER_BATCH_SIZE", 32),
		RerankerFailFast:       envBool("RERANKER_FAIL_FAST", true),

		SupportPhone: envStr("SUPPORT_PHONE", "1900-xxxx"),

		CacheBackend:        envStr("CACHE_BACKEND", "memory"),
		RedisURL:            envStr("REDIS_URL", ""),
		ClassifierCacheSize: envInt("CLASSIFIER_CACHE_SIZE", 10),

		FrontendURL:            envStr("FRONTEND_URL", "http://localhost:3000"),
		ShutdownTimeoutSeconds: envInt("SHUTDOWN_TIMEOUT_SECONDS", 30),
	}

	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
