// Package embedding owns the pretrained sentence-embedding model the service
// serves. The model runs in an inference runtime reached over HTTP; Load
// connects to it once at startup and the resulting handle is shared by all
// requests.
package embedding

import "context"

// Model encodes a batch of texts into fixed-length vectors.
//
// Encode returns exactly one vector per input, in input order, all with the
// model's dimension. Implementations are safe for concurrent use.
type Model interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Info() Info
	Close() error
}

// Info describes a loaded model.
type Info struct {
	Name      string `json:"name"`
	Backend   string `json:"backend"`
	Dimension int    `json:"dimension"`
}
