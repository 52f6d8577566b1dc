package embedding

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/blueberrycongee/embedd/internal/metrics"
	"github.com/blueberrycongee/embedd/internal/observability"
	apperrors "github.com/blueberrycongee/embedd/pkg/errors"
)

type instrumentedModel struct {
	inner  Model
	tracer trace.Tracer
}

// Instrument wraps inner with a span and latency/error metrics per Encode.
// A nil tracer uses the global provider.
func Instrument(inner Model, tracer trace.Tracer) Model {
	if tracer == nil {
		tracer = otel.Tracer(observability.TracerName)
	}
	return &instrumentedModel{inner: inner, tracer: tracer}
}

func (m *instrumentedModel) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	info := m.inner.Info()
	ctx, span := observability.StartEncodeSpan(ctx, m.tracer, observability.EncodeSpanAttributes{
		Backend:   info.Backend,
		Model:     info.Name,
		BatchSize: len(texts),
	})
	defer span.End()

	start := time.Now()
	vectors, err := m.inner.Encode(ctx, texts)
	if err != nil {
		observability.RecordError(span, err)
		errType := apperrors.TypeInternalError
		if e, ok := apperrors.As(err); ok {
			errType = e.Type
		}
		metrics.RecordModelError(info.Backend, errType)
		return nil, err
	}

	metrics.RecordEncode(info.Backend, info.Name, time.Since(start))
	if len(vectors) > 0 {
		span.SetAttributes(attribute.Int("embedding.dimension", len(vectors[0])))
	}
	return vectors, nil
}

func (m *instrumentedModel) Info() Info {
	return m.inner.Info()
}

func (m *instrumentedModel) Close() error {
	return m.inner.Close()
}
