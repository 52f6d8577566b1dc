package api //nolint:revive // package name is intentional

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/blueberrycongee/embedd/internal/embedding"
)

// EmbedRequest is the body of POST /embed. A missing or null texts field is
// an empty batch.
type EmbedRequest struct {
	Texts []string `json:"texts"`
}

var errNotObject = errors.New("request body must be a JSON object")

// decodeEmbedRequest parses body with exact key matching: only "texts" is
// recognized, and every entry must be a JSON string. Struct decoding would
// accept "Texts" and turn null entries into empty strings.
func decodeEmbedRequest(body []byte) (EmbedRequest, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return EmbedRequest{}, errNotObject
	}
	if fields == nil {
		return EmbedRequest{}, errNotObject
	}

	raw, ok := fields["texts"]
	if !ok {
		return EmbedRequest{}, nil
	}

	var entries []*string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return EmbedRequest{}, errors.New("texts must be an array of strings")
	}

	texts := make([]string, len(entries))
	for i, entry := range entries {
		if entry == nil {
			return EmbedRequest{}, fmt.Errorf("texts[%d] must be a string, got null", i)
		}
		texts[i] = *entry
	}
	return EmbedRequest{Texts: texts}, nil
}

// EmbedResponse holds one vector per input text, in input order.
type EmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ModelResponse describes the loaded model.
type ModelResponse = embedding.Info
