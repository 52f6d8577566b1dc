package healthcheck

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedEncoder struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (e *scriptedEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}

func (e *scriptedEncoder) setErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func TestProber_HealthyBeforeFirstProbe(t *testing.T) {
	p := NewProber(Config{Enabled: true}, &scriptedEncoder{}, nil)
	assert.True(t, p.Status().Healthy)
	assert.NoError(t, p.Ready(context.Background()))
}

func TestProber_FailureThreshold(t *testing.T) {
	enc := &scriptedEncoder{err: errors.New("connection refused")}
	p := NewProber(Config{Enabled: true, FailureThreshold: 2, Timeout: time.Second}, enc, nil)

	p.runOnce(context.Background())
	assert.True(t, p.Status().Healthy, "one failure stays below the threshold")
	assert.Equal(t, 1, p.Status().ConsecutiveFailures)

	p.runOnce(context.Background())
	status := p.Status()
	assert.False(t, status.Healthy)
	assert.Equal(t, "connection refused", status.LastError)

	err := p.Ready(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestProber_SuccessRecovers(t *testing.T) {
	enc := &scriptedEncoder{err: errors.New("down")}
	p := NewProber(Config{Enabled: true, FailureThreshold: 1}, enc, nil)

	p.runOnce(context.Background())
	require.False(t, p.Status().Healthy)

	enc.setErr(nil)
	p.runOnce(context.Background())

	status := p.Status()
	assert.True(t, status.Healthy)
	assert.Zero(t, status.ConsecutiveFailures)
	assert.Empty(t, status.LastError)
	assert.False(t, status.LastChecked.IsZero())
}

func TestProber_StartDisabledDoesNothing(t *testing.T) {
	enc := &scriptedEncoder{}
	p := NewProber(Config{Enabled: false, Interval: time.Millisecond}, enc, nil)

	p.Start(context.Background())
	time.Sleep(20 * time.Millisecond)

	enc.mu.Lock()
	defer enc.mu.Unlock()
	assert.Zero(t, enc.calls)
}

func TestProber_StartProbesUntilCanceled(t *testing.T) {
	enc := &scriptedEncoder{}
	p := NewProber(Config{Enabled: true, Interval: 5 * time.Millisecond}, enc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	p.Start(ctx)

	assert.Eventually(t, func() bool {
		enc.mu.Lock()
		defer enc.mu.Unlock()
		return enc.calls >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()
}
