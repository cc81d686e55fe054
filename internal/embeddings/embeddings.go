// Package embeddings computes text embeddings through an OpenAI-compatible
// API: a local Ollama endpoint by default, or the hosted OpenAI API.
package embeddings

import (
	"context"
	"fmt"
	"math"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/medullahq/medulla/internal/config"
)

const localBaseURL = "http://localhost:11434/v1"

// Embedder turns text into a vector. Implementations must be safe for
// concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Client is an Embedder backed by an OpenAI-compatible embeddings endpoint.
type Client struct {
	api   *openai.Client
	model string
}

// New builds a client from the project config. Returns nil (no error) when
// embeddings are disabled.
func New(cfg config.Embeddings) (*Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Provider {
	case "local", "":
		base := cfg.BaseURL
		if base == "" {
			base = localBaseURL
		}
		c := openai.DefaultConfig("ollama")
		c.BaseURL = base
		return &Client{api: openai.NewClientWithConfig(c), model: cfg.Model}, nil
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("embeddings provider %q requires OPENAI_API_KEY", cfg.Provider)
		}
		if cfg.BaseURL != "" {
			c := openai.DefaultConfig(key)
			c.BaseURL = cfg.BaseURL
			return &Client{api: openai.NewClientWithConfig(c), model: cfg.Model}, nil
		}
		return &Client{api: openai.NewClient(key), model: cfg.Model}, nil
	}
	return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Provider)
}

func (c *Client) Model() string { return c.model }

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response empty for model %s", c.model)
	}
	return resp.Data[0].Embedding, nil
}

// Cosine returns the cosine similarity of two vectors, 0 when either is
// empty or lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
