package utils

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"go-outreach-automation/internal/config"
	"go-outreach-automation/internal/retry"
)

// Pacer spaces out browser actions so the session looks like a person
// working at their own speed. A factor of 0 disables the matching delay.
type Pacer struct {
	stepFactor   float64
	typingFactor float64
	stepDelay    time.Duration
	typingDelay  time.Duration
	nav          *rate.Limiter
}

func NewPacer(cfg config.PacingConfig) *Pacer {
	limit := rate.Inf
	if cfg.NavigationsPerMinute > 0 {
		limit = rate.Limit(cfg.NavigationsPerMinute / 60)
	}
	return &Pacer{
		stepFactor:   cfg.StepFactor,
		typingFactor: cfg.TypingFactor,
		stepDelay:    cfg.StepDelay,
		typingDelay:  cfg.TypingDelay,
		nav:          rate.NewLimiter(limit, 1),
	}
}

// Step pauses for base (or the configured step delay when base is 0)
// scaled by the step factor, with up to 30% random jitter either way.
func (p *Pacer) Step(ctx context.Context, base time.Duration) error {
	if base == 0 {
		base = p.stepDelay
	}
	return retry.Sleep(ctx, jitter(scale(base, p.stepFactor)))
}

// TypingDelay is the per-character delay for text entry.
func (p *Pacer) TypingDelay() time.Duration {
	return jitter(scale(p.typingDelay, p.typingFactor))
}

// Navigation blocks until another page load is allowed.
func (p *Pacer) Navigation(ctx context.Context) error {
	return p.nav.Wait(ctx)
}

func scale(d time.Duration, factor float64) time.Duration {
	if factor <= 0 || d <= 0 {
		return 0
	}
	return time.Duration(float64(d) * factor)
}

// jitter returns d randomized within [0.7d, 1.3d).
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(float64(d) * (0.7 + rand.Float64()*0.6))
}
