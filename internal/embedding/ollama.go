package embedding

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	ollama "github.com/ollama/ollama/api"

	"github.com/blueberrycongee/embedd/internal/config"
	apperrors "github.com/blueberrycongee/embedd/pkg/errors"
)

// Ollama calls the batch /api/embed endpoint of an Ollama server through the
// official client.
type Ollama struct {
	remote
	api *ollama.Client
}

// NewOllama creates an Ollama backend. An invalid base URL surfaces on the
// first Encode.
func NewOllama(cfg config.ModelConfig, apiKey string, client *http.Client) *Ollama {
	o := &Ollama{remote: newRemote(cfg.Name, config.BackendOllama, cfg.BaseURL, apiKey, cfg.Dimension, client)}

	base, err := url.Parse(o.baseURL)
	if err != nil || base.Scheme == "" {
		return o
	}

	httpClient := client
	if apiKey != "" {
		authed := *client
		authed.Transport = bearerTransport{token: apiKey, next: client.Transport}
		httpClient = &authed
	}
	o.api = ollama.NewClient(base, httpClient)
	return o
}

// Encode implements Model.
func (o *Ollama) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if o.api == nil {
		return nil, apperrors.NewInternalError(o.info.Backend, o.info.Name, "invalid ollama base url: "+o.baseURL)
	}

	resp, err := o.api.Embed(ctx, &ollama.EmbedRequest{Model: o.info.Name, Input: texts})
	if err != nil {
		var statusErr ollama.StatusError
		if errors.As(err, &statusErr) {
			return nil, apperrors.FromStatus(o.info.Backend, o.info.Name, statusErr.StatusCode, []byte(statusErr.ErrorMessage))
		}
		return nil, apperrors.FromTransport(o.info.Backend, o.info.Name, err)
	}
	return o.check(resp.Embeddings, len(texts))
}

type bearerTransport struct {
	token string
	next  http.RoundTripper
}

func (t bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return next.RoundTrip(req)
}
