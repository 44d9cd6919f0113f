package crawl

import (
	"context"
	"math/rand/v2"
	"runtime"
	"time"
)

// Pacer blocks between records.
type Pacer interface {
	Wait(ctx context.Context)
}

// PacerConfig sets the inter-record delay: a platform baseline plus a uniform
// jitter drawn from [JitterMin, JitterMax).
type PacerConfig struct {
	BaseDarwin time.Duration `mapstructure:"base_darwin"`
	BaseOther  time.Duration `mapstructure:"base_other"`
	JitterMin  time.Duration `mapstructure:"jitter_min"`
	JitterMax  time.Duration `mapstructure:"jitter_max"`
}

// DefaultPacerConfig returns 1.5s on macOS and 2s elsewhere, plus 0.3s to 1s
// of jitter.
func DefaultPacerConfig() PacerConfig {
	return PacerConfig{
		BaseDarwin: 1500 * time.Millisecond,
		BaseOther:  2 * time.Second,
		JitterMin:  300 * time.Millisecond,
		JitterMax:  time.Second,
	}
}

// Base returns the baseline for the platform the binary runs on.
func (c PacerConfig) Base() time.Duration {
	return c.baseFor(runtime.GOOS)
}

func (c PacerConfig) baseFor(goos string) time.Duration {
	if goos == "darwin" {
		return c.BaseDarwin
	}
	return c.BaseOther
}

// JitterPacer sleeps for the platform baseline plus jitter.
type JitterPacer struct {
	cfg  PacerConfig
	rand func() float64
}

// NewPacer creates a JitterPacer.
func NewPacer(cfg PacerConfig) *JitterPacer {
	return &JitterPacer{cfg: cfg, rand: rand.Float64}
}

// Delay returns the next delay without sleeping.
func (p *JitterPacer) Delay() time.Duration {
	d := p.cfg.Base()
	if span := p.cfg.JitterMax - p.cfg.JitterMin; span > 0 {
		d += p.cfg.JitterMin + time.Duration(p.rand()*float64(span))
	} else if p.cfg.JitterMin > 0 {
		d += p.cfg.JitterMin
	}
	return d
}

// Wait sleeps for Delay. It returns early when ctx is done; the orchestrator
// notices the cancellation at the next record boundary.
func (p *JitterPacer) Wait(ctx context.Context) {
	d := p.Delay()
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// NoPacer never waits. The offline provider runs without pacing.
type NoPacer struct{}

// Wait returns immediately.
func (NoPacer) Wait(context.Context) {}
