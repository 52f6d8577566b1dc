package embedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/blueberrycongee/embedd/internal/config"
	apperrors "github.com/blueberrycongee/embedd/pkg/errors"
)

// OpenAI calls an OpenAI-compatible /embeddings endpoint (vLLM, LocalAI,
// llama.cpp server and the like).
type OpenAI struct {
	remote
}

type openAIRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	EncodingFormat string   `json:"encoding_format"`
}

type openAIResponse struct {
	Data []openAIEmbedding `json:"data"`
}

type openAIEmbedding struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// NewOpenAI creates an OpenAI-compatible backend.
func NewOpenAI(cfg config.ModelConfig, apiKey string, client *http.Client) *OpenAI {
	return &OpenAI{remote: newRemote(cfg.Name, config.BackendOpenAI, cfg.BaseURL, apiKey, cfg.Dimension, client)}
}

// Encode implements Model. Results are placed by their index field, which
// servers are not required to return in order.
func (o *OpenAI) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var resp openAIResponse
	req := openAIRequest{Model: o.info.Name, Input: texts, EncodingFormat: "float"}
	if err := o.postJSON(ctx, "/embeddings", req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, apperrors.NewBackendError(o.info.Backend, o.info.Name,
			fmt.Sprintf("backend returned %d vectors for %d inputs", len(resp.Data), len(texts)))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) || vectors[d.Index] != nil {
			return nil, apperrors.NewBackendError(o.info.Backend, o.info.Name,
				fmt.Sprintf("backend returned invalid or duplicate index %d", d.Index))
		}
		vectors[d.Index] = d.Embedding
	}
	return o.check(vectors, len(texts))
}
