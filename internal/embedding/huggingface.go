package embedding

import (
	"context"
	"net/http"

	"github.com/blueberrycongee/embedd/internal/config"
)

// HuggingFace calls the feature-extraction pipeline of the Hugging Face
// Inference API. Sentence-transformers models return one pooled vector per
// input.
type HuggingFace struct {
	remote
}

type huggingFaceRequest struct {
	Inputs  []string           `json:"inputs"`
	Options huggingFaceOptions `json:"options"`
}

type huggingFaceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// NewHuggingFace creates a Hugging Face Inference API backend.
func NewHuggingFace(cfg config.ModelConfig, apiKey string, client *http.Client) *HuggingFace {
	return &HuggingFace{remote: newRemote(cfg.Name, config.BackendHuggingFace, cfg.BaseURL, apiKey, cfg.Dimension, client)}
}

// Encode implements Model.
func (h *HuggingFace) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var vectors [][]float32
	req := huggingFaceRequest{
		Inputs:  texts,
		Options: huggingFaceOptions{WaitForModel: true},
	}
	if err := h.postJSON(ctx, "/pipeline/feature-extraction/"+h.info.Name, req, &vectors); err != nil {
		return nil, err
	}
	return h.check(vectors, len(texts))
}
