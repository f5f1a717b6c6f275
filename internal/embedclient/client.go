// Package embedclient calls an embedding model over a plain HTTP POST
// contract: a batch of texts in, a batch of vectors out. It is deliberately
// provider-agnostic — any embedding server that accepts {"model", "input"}
// and returns {"data": [{"embedding": [...]}]} works, matching the
// OpenAI-compatible embeddings shape most self-hosted servers already speak.
package embedclient

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

// Client embeds batches of text against a fixed model.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// New creates a Client against baseURL using model for every request.
func New(baseURL, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed returns one vector per input text, in the same order. Retries up to
// three times on a rate-limit response with 500ms/1000ms/2000ms backoff.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return httpx.WithRetry(ctx, "embedclient.Embed", func() ([][]float32, error) {
		return c.doEmbed(ctx, texts)
	})
}

func (c *Client) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody, err := json.Marshal(embedRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("embedclient: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("embedclient: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	if httpx.IsRetryableStatus(resp.StatusCode) {
		return nil, fmt.Errorf("embedclient: status %d: rate limited", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedclient: status %d: %s", resp.StatusCode, body)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("embedclient: decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("embedclient: API error: %s", parsed.Error.Message)
	}

	out := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

// EmbedOne is a convenience wrapper around Embed for the common single-query
// case (a chat question being embedded for vector search).
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedclient: empty response for single text")
	}
	return vecs[0], nil
}

// HealthCheck validates the embedding service is reachable and responding by
// embedding a single throwaway string. It is used at startup when
// EMBEDDING_FAIL_FAST is set, so a misconfigured or unreachable embedding
// server aborts process startup instead of failing the first real request.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.EmbedOne(ctx, "health check")
	if err != nil {
		return fmt.Errorf("embedclient: health check failed: %w", err)
	}
	return nil
}
