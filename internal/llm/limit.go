package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"luna/internal/metrics"
)

// Limited spaces requests to a model to stay under a per-minute quota.
type Limited struct {
	model   Model
	limiter *rate.Limiter
}

func NewLimited(m Model, requestsPerMinute int) *Limited {
	if requestsPerMinute <= 0 {
		return &Limited{model: m, limiter: rate.NewLimiter(rate.Inf, 1)}
	}

	burst := max(1, requestsPerMinute/10)
	return &Limited{
		model:   m,
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst),
	}
}

func (l *Limited) Generate(ctx context.Context, history []Turn) (Reply, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return Reply{}, fmt.Errorf("rate limiter: %w", err)
	}
	return l.model.Generate(ctx, history)
}

// Instrumented records request counts and latency per provider.
type Instrumented struct {
	model    Model
	provider string
	name     string
}

func NewInstrumented(m Model, provider, name string) *Instrumented {
	return &Instrumented{model: m, provider: provider, name: name}
}

func (i *Instrumented) Generate(ctx context.Context, history []Turn) (Reply, error) {
	start := time.Now()
	reply, err := i.model.Generate(ctx, history)
	metrics.ObserveModel(i.provider, i.name, time.Since(start), err)
	return reply, err
}
