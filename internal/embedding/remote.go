package embedding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/blueberrycongee/embedd/internal/httputil"
	apperrors "github.com/blueberrycongee/embedd/pkg/errors"
)

// remote holds what every HTTP backend shares. Dimension is fixed before the
// model starts serving and only read afterwards.
type remote struct {
	info    Info
	baseURL string
	apiKey  string
	client  *http.Client
}

func newRemote(name, backend, baseURL, apiKey string, dimension int, client *http.Client) remote {
	return remote{
		info: Info{
			Name:      name,
			Backend:   backend,
			Dimension: dimension,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (r *remote) Info() Info {
	return r.info
}

func (r *remote) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

func (r *remote) setDimension(dim int) {
	r.info.Dimension = dim
}

// postJSON sends payload to path and decodes a 2xx response into out.
func (r *remote) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewInternalError(r.info.Backend, r.info.Name, "marshal request: "+err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return apperrors.NewInternalError(r.info.Backend, r.info.Name, "create request: "+err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return apperrors.FromTransport(r.info.Backend, r.info.Name, err)
	}
	defer httputil.DrainAndClose(resp.Body)

	data, err := httputil.ReadLimitedBody(resp.Body, httputil.DefaultMaxResponseBodyBytes)
	if err != nil {
		if errors.Is(err, httputil.ErrBodyTooLarge) {
			return apperrors.NewBackendError(r.info.Backend, r.info.Name, "backend response too large")
		}
		return apperrors.FromTransport(r.info.Backend, r.info.Name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.FromStatus(r.info.Backend, r.info.Name, resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.NewBackendError(r.info.Backend, r.info.Name, "decode response: "+err.Error())
	}
	return nil
}

// check verifies one vector per input and a single shared dimension.
func (r *remote) check(vectors [][]float32, inputs int) ([][]float32, error) {
	if len(vectors) != inputs {
		return nil, apperrors.NewBackendError(r.info.Backend, r.info.Name,
			fmt.Sprintf("backend returned %d vectors for %d inputs", len(vectors), inputs))
	}

	dim := r.info.Dimension
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, apperrors.NewBackendError(r.info.Backend, r.info.Name,
				fmt.Sprintf("backend returned an empty vector at index %d", i))
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return nil, apperrors.NewBackendError(r.info.Backend, r.info.Name,
				fmt.Sprintf("vector %d has dimension %d, want %d", i, len(v), dim))
		}
	}
	return vectors, nil
}
