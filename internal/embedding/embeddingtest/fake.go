// Package embeddingtest provides a deterministic in-process model for tests.
package embeddingtest

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sync"

	"github.com/blueberrycongee/embedd/internal/embedding"
)

// DefaultDimension matches all-MiniLM-L6-v2.
const DefaultDimension = 384

// Model returns unit vectors derived from a hash of each text, so equal
// texts always map to equal vectors.
type Model struct {
	Name      string
	Dimension int

	mu    sync.Mutex
	err   error
	calls [][]string
}

// New creates a fake model with the default dimension.
func New() *Model {
	return &Model{Name: "sentence-transformers/all-MiniLM-L6-v2", Dimension: DefaultDimension}
}

// FailWith makes every following Encode return err. nil restores success.
func (m *Model) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the batches passed to Encode so far.
func (m *Model) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Encode implements embedding.Model.
func (m *Model) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), texts...))
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = Vector(text, m.Dimension)
	}
	return out, nil
}

// Info implements embedding.Model.
func (m *Model) Info() embedding.Info {
	return embedding.Info{Name: m.Name, Backend: "fake", Dimension: m.Dimension}
}

// Close implements embedding.Model.
func (m *Model) Close() error {
	return nil
}

// Vector is the vector the fake model produces for text.
func Vector(text string, dim int) []float32 {
	v := make([]float32, dim)
	seed := sha256.Sum256([]byte(text))
	block := seed
	var norm float64
	for i := range v {
		if i > 0 && i%8 == 0 {
			block = sha256.Sum256(block[:])
		}
		bits := binary.LittleEndian.Uint32(block[(i%8)*4:])
		f := float64(bits)/float64(math.MaxUint32)*2 - 1
		v[i] = float32(f)
		norm += f * f
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= scale
		}
	}
	return v
}
