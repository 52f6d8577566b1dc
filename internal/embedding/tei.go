package embedding

import (
	"context"
	"net/http"

	"github.com/blueberrycongee/embedd/internal/config"
)

// TEI talks to a Hugging Face text-embeddings-inference server. The server
// hosts a single model, so the request does not name it.
type TEI struct {
	remote
}

type teiRequest struct {
	Inputs    []string `json:"inputs"`
	Normalize bool     `json:"normalize"`
	Truncate  bool     `json:"truncate"`
}

// NewTEI creates a TEI backend.
func NewTEI(cfg config.ModelConfig, apiKey string, client *http.Client) *TEI {
	return &TEI{remote: newRemote(cfg.Name, config.BackendTEI, cfg.BaseURL, apiKey, cfg.Dimension, client)}
}

// Encode implements Model.
func (t *TEI) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var vectors [][]float32
	req := teiRequest{Inputs: texts, Normalize: true, Truncate: true}
	if err := t.postJSON(ctx, "/embed", req, &vectors); err != nil {
		return nil, err
	}
	return t.check(vectors, len(texts))
}
