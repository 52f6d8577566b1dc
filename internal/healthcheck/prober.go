// Package healthcheck provides proactive probing of the model runtime.
package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultProbeInterval    = 30 * time.Second
	defaultProbeTimeout     = 10 * time.Second
	defaultFailureThreshold = 3

	probeText = "healthcheck"
)

// Config controls the proactive health checker behavior.
type Config struct {
	Enabled          bool
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold int // consecutive failures before the model is reported unready
}

// Encoder is the part of the model a probe needs.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// Status is the outcome of the most recent probes.
type Status struct {
	Healthy             bool      `json:"healthy"`
	LastChecked         time.Time `json:"last_checked"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// Prober periodically encodes a probe text and tracks whether the runtime
// behind the model still answers. The model is never reloaded; the prober
// only reports.
type Prober struct {
	cfg     Config
	model   Encoder
	logger  *slog.Logger
	started atomic.Bool

	mu     sync.RWMutex
	status Status
}

// NewProber creates a new health checker. Until the first probe completes
// the model is assumed healthy, since loading it already succeeded.
func NewProber(cfg Config, model Encoder, logger *slog.Logger) *Prober {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultProbeInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultProbeTimeout
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Prober{
		cfg:    cfg,
		model:  model,
		logger: logger,
		status: Status{Healthy: true},
	}
}

// Start begins the probe loop until the context is canceled.
func (p *Prober) Start(ctx context.Context) {
	if p == nil || !p.cfg.Enabled {
		return
	}
	if p.model == nil {
		p.logger.Warn("healthcheck prober missing model")
		return
	}
	if !p.started.CompareAndSwap(false, true) {
		return
	}

	go p.run(ctx)
}

func (p *Prober) run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.runOnce(ctx)
		case <-ctx.Done():
			p.logger.Info("healthcheck prober stopped")
			return
		}
	}
}

func (p *Prober) runOnce(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	err := p.probe(probeCtx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.handleFailure(err)
		return
	}
	p.handleSuccess()
}

func (p *Prober) probe(ctx context.Context) error {
	vectors, err := p.model.Encode(ctx, []string{probeText})
	if err != nil {
		return err
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return errors.New("healthcheck probe returned no vector")
	}
	return nil
}

func (p *Prober) handleFailure(err error) {
	p.mu.Lock()
	p.status.LastChecked = time.Now()
	p.status.LastError = err.Error()
	p.status.ConsecutiveFailures++
	wasHealthy := p.status.Healthy
	if p.status.ConsecutiveFailures >= p.cfg.FailureThreshold {
		p.status.Healthy = false
	}
	failures := p.status.ConsecutiveFailures
	nowHealthy := p.status.Healthy
	p.mu.Unlock()

	if wasHealthy && !nowHealthy {
		p.logger.Error("model runtime marked unready",
			"consecutive_failures", failures,
			"error", err,
		)
		return
	}
	p.logger.Warn("healthcheck probe failed",
		"consecutive_failures", failures,
		"error", err,
	)
}

func (p *Prober) handleSuccess() {
	p.mu.Lock()
	recovered := !p.status.Healthy
	p.status = Status{Healthy: true, LastChecked: time.Now()}
	p.mu.Unlock()

	if recovered {
		p.logger.Info("model runtime recovered")
	}
}

// Status returns a snapshot of the probe state.
func (p *Prober) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Ready returns an error while the runtime is considered down.
func (p *Prober) Ready(context.Context) error {
	s := p.Status()
	if s.Healthy {
		return nil
	}
	return fmt.Errorf("model runtime failing health checks: %s", s.LastError)
}
