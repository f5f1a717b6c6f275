// Package rerankclient calls a cross-encoder reranking model: given a query
// and a batch of candidate passages, it returns one relevance score per
// passage. There is no teacher precedent for this client; it follows the
// same request/retry shape as llmclient and embedclient.
package rerankclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vtc-digital/rag-orchestrator/internal/httpx"
)

// Client scores (query, passage) pairs with a fixed cross-encoder model.
type Client struct {
	baseURL        string
	model          string
	maxInputLength int
	batchSize      int
	httpClient     *http.Client
}

// New creates a Client against baseURL. maxInputLength truncates each
// passage before sending (in runes) and batchSize caps how many pairs go in
// a single request.
func New(baseURL, model string, maxInputLength, batchSize int) *Client {
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		model:          model,
		maxInputLength: maxInputLength,
		batchSize:      batchSize,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type rerankRequest struct {
	Model string   `json:"model"`
	Query string   `json:"query"`
	Docs  []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"relevance_score"`
	} `json:"results"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Ping verifies the reranker is reachable by scoring a single throwaway
// pair. It is used at startup when RERANKER_FAIL_FAST is set, so a
// misconfigured or unreachable reranker aborts process startup instead of
// failing the first real request.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.scoreBatch(ctx, "ping", []string{"ping"})
	if err != nil {
		return fmt.Errorf("rerankclient: ping: %w", err)
	}
	return nil
}

// Score returns one relevance score per passage, in the same order as
// passed in, regardless of the order the upstream model returns results.
// Requests are chunked at batchSize and sent sequentially.
func (c *Client) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	truncated := make([]string, len(passages))
	for i, p := range passages {
		truncated[i] = truncateRunes(p, c.maxInputLength)
	}

	scores := make([]float64, len(passages))
	for start := 0; start < len(truncated); start += c.batchSize {
		end := start + c.batchSize
		if end > len(truncated) {
			end = len(truncated)
		}
		batchScores, err := c.scoreBatch(ctx, query, truncated[start:end])
		if err != nil {
			return nil, fmt.Errorf("rerankclient: batch [%d:%d]: %w", start, end, err)
		}
		copy(scores[start:end], batchScores)
	}
	return scores, nil
}

func (c *Client) scoreBatch(ctx context.Context, query string, docs []string) ([]float64, error) {
	return httpx.WithRetry(ctx, "rerankclient.Score", func() ([]float64, error) {
		return c.doScoreBatch(ctx, query, docs)
	})
}

func (c *Client) doScoreBatch(ctx context.Context, query string, docs []string) ([]float64, error) {
	reqBody, err := json.Marshal(rerankRequest{Model: c.model, Query: query, Docs: docs})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/rerank", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if httpx.IsRetryableStatus(resp.StatusCode) {
		return nil, fmt.Errorf("status %d: rate limited", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Results) != len(docs) {
		return nil, fmt.Errorf("expected %d scores, got %d", len(docs), len(parsed.Results))
	}

	scores := make([]float64, len(docs))
	for _, r := range parsed.Results {
		if r.Index < 0 || r.Index >= len(scores) {
			return nil, fmt.Errorf("result index %d out of range", r.Index)
		}
		scores[r.Index] = r.Score
	}
	return scores, nil
}

func truncateRunes(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
