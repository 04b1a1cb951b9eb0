// Package embedding talks to the external embedding collaborator
// referenced by §4.A's embedding_model config and §6's external
// interfaces. No third-party embedding SDK appears anywhere in the
// retrieval pack, so this client is a plain net/http caller against an
// HTTP endpoint returning JSON vectors — the spec itself models the
// embedding service as a thin HTTP/local-process boundary, not a
// library dependency.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mcpenterprise/server/internal/config"
)

// Client embeds text into fixed-dimensionality vectors for the mid-tier
// Memory store (§3). In offline mode it returns a deterministic
// zero-cost fallback vector instead of calling out, so the server can
// run with no embedding endpoint configured.
type Client struct {
	endpoint   string
	dimensions int
	offline    bool
	http       *http.Client
}

// New builds a Client from cfg.
func New(cfg config.EmbeddingModel) *Client {
	return &Client{
		endpoint:   cfg.Endpoint,
		dimensions: cfg.Dimensions,
		offline:    cfg.Offline,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

// Dimensions reports the fixed vector width this client produces.
func (c *Client) Dimensions() int { return c.dimensions }

type embedRequest struct {
	Inputs []string `json:"inputs"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one embedding per input, preserving order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if c.offline || c.endpoint == "" {
		return c.fallbackBatch(texts), nil
	}

	body, err := json.Marshal(embedRequest{Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding: unexpected status %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding: expected %d vectors, got %d", len(texts), len(out.Embeddings))
	}
	return out.Embeddings, nil
}

// fallbackBatch produces a deterministic hash-based pseudo-embedding so
// offline deployments still exercise the mid-tier pipeline end to end,
// without claiming any semantic quality.
func (c *Client) fallbackBatch(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = hashEmbed(text, c.dimensions)
	}
	return out
}

func hashEmbed(text string, dims int) []float32 {
	if dims <= 0 {
		dims = 384
	}
	v := make([]float32, dims)
	h := uint32(2166136261)
	for i := 0; i < len(text); i++ {
		h ^= uint32(text[i])
		h *= 16777619
		v[int(h)%dims] += 1
	}
	return v
}
