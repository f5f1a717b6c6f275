package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/vtc-digital/rag-orchestrator/internal/agent"
	"github.com/vtc-digital/rag-orchestrator/internal/cache"
	"github.com/vtc-digital/rag-orchestrator/internal/config"
	"github.com/vtc-digital/rag-orchestrator/internal/embedclient"
	"github.com/vtc-digital/rag-orchestrator/internal/llmclient"
	"github.com/vtc-digital/rag-orchestrator/internal/middleware"
	"github.com/vtc-digital/rag-orchestrator/internal/rerankclient"
	"github.com/vtc-digital/rag-orchestrator/internal/router"
	"github.com/vtc-digital/rag-orchestrator/internal/vectorstore"
	"github.com/vtc-digital/rag-orchestrator/internal/workflow"
)

const Version = "0.1.0"

func getPort(cfg *config.Config) string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return fmt.Sprintf("%d", cfg.Port)
}

// buildWorkflow wires the nine agents and the leaf HTTP/DB clients they
// depend on into a single Workflow, following the config's tuning fields.
func buildWorkflow(cfg *config.Config, store *vectorstore.Store, rewriteCache *cache.RewriteCache, reranker *rerankclient.Client, embedder *embedclient.Client) *workflow.Workflow {
	llm := llmclient.New(cfg.LLMBaseURL, cfg.LLMModel)

	classifier := agent.NewClassifier(llm, store, rewriteCache)

	faq := agent.NewFAQResponder(embedder, store, reranker, llm, agent.FAQConfig{
		TopK:                     cfg.FAQTopK,
		VectorThreshold:          cfg.FAQVectorThreshold,
		RerankThreshold:          cfg.FAQRerankThreshold,
		RerankDirectThreshold:    cfg.FAQRerankDirectThreshold,
		SimilarityForceThreshold: cfg.FAQSimilarityForceThreshold,
		WeightQuestion:           cfg.FAQWeightQuestion,
		WeightQuestionAnswer:     cfg.FAQWeightQuestionAnswer,
		WeightAnswer:             cfg.FAQWeightAnswer,
		ConsistencyThreshold:     cfg.FAQConsistencyThreshold,
		ConsistencyBonus:         cfg.FAQConsistencyBonus,
	})

	retriever := agent.NewRetriever(embedder, store, agent.RetrieverConfig{
		TopK:                cfg.TopK,
		SimilarityThreshold: cfg.SimilarityThreshold,
	})

	grader := agent.NewGrader(reranker, agent.GraderConfig{
		RerankThreshold:     cfg.DocumentRerankThreshold,
		SimilarityThreshold: cfg.SimilarityThreshold,
	})

	generator := agent.NewGenerator(llm)

	responderCfg := agent.ResponderConfig{SupportPhone: cfg.SupportPhone}
	chatter := agent.NewChatterResponder(llm, responderCfg)
	reporter := agent.NewReporterResponder(llm, responderCfg)
	other := agent.NewOtherResponder(llm)
	notEnoughInfo := agent.NewNotEnoughInfoResponder(llm, responderCfg)

	return workflow.New(classifier, faq, retriever, grader, generator, chatter, reporter, other, notEnoughInfo, workflow.Config{})
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	var logHandler slog.Handler
	if cfg.Environment == "development" {
		logHandler = slog.NewTextHandler(os.Stdout, nil)
	} else {
		logHandler = slog.NewJSONHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(logHandler))

	ctx := context.Background()

	pool, err := vectorstore.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return fmt.Errorf("vectorstore.NewPool: %w", err)
	}
	defer pool.Close()

	store := vectorstore.New(pool, cfg.VectorDocumentTable, cfg.VectorFAQTable, cfg.EmbeddingDimension)
	store.WarmDimensions(ctx)

	var redisClient *redis.Client
	if cfg.CacheBackend == "redis" && cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis.ParseURL: %w", err)
		}
		redisClient = redis.NewClient(opts)
	}
	rewriteCache := cache.New(cfg.ClassifierCacheSize, redisClient)

	reranker := rerankclient.New(cfg.RerankerBaseURL, cfg.RerankerModel, cfg.RerankerMaxInputLength, cfg.RerankerBatchSize)
	if cfg.RerankerFailFast {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := reranker.Ping(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("reranker fail-fast check: %w", err)
		}
	}

	embedder := embedclient.New(cfg.EmbeddingBaseURL, cfg.EmbeddingModel)
	if cfg.EmbeddingFailFast {
		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := embedder.HealthCheck(healthCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("embedding fail-fast check: %w", err)
		}
	}

	wf := buildWorkflow(cfg, store, rewriteCache, reranker, embedder)

	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(reg)

	r := router.New(router.Dependencies{
		Version:     Version,
		FrontendURL: cfg.FrontendURL,
		Store:       store,
		Workflow:    wf,
		Metrics:     metrics,
		MetricsReg:  reg,
	})

	port := getPort(cfg)
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // the chat endpoint streams; it sets its own per-request deadlines.
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("rag-orchestrator starting", "version", Version, "port", port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received signal, shutting down gracefully", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
