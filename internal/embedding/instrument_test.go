package embedding

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/blueberrycongee/embedd/internal/metrics"
	apperrors "github.com/blueberrycongee/embedd/pkg/errors"
)

type stubModel struct {
	info Info
	out  [][]float32
	err  error
}

func (s *stubModel) Encode(context.Context, []string) ([][]float32, error) { return s.out, s.err }
func (s *stubModel) Info() Info                                          { return s.info }
func (s *stubModel) Close() error                                        { return nil }

func TestInstrument_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

	inner := &stubModel{
		info: Info{Name: "instrument-ok", Backend: "tei", Dimension: 2},
		out:  [][]float32{{1, 0}, {0, 1}},
	}
	m := Instrument(inner, tracer)

	out, err := m.Encode(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, inner.out, out)
	assert.Equal(t, inner.info, m.Info())

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "embedding.encode", spans[0].Name())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestInstrument_RecordsErrors(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

	inner := &stubModel{
		info: Info{Name: "instrument-err", Backend: "instrument-backend"},
		err:  apperrors.NewTimeoutError("instrument-backend", "instrument-err", "slow"),
	}
	m := Instrument(inner, tracer)

	before := testutil.ToFloat64(metrics.ModelErrors.WithLabelValues("instrument-backend", apperrors.TypeTimeout))
	_, err := m.Encode(context.Background(), []string{"a"})
	require.Error(t, err)

	after := testutil.ToFloat64(metrics.ModelErrors.WithLabelValues("instrument-backend", apperrors.TypeTimeout))
	assert.Equal(t, before+1, after)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
