package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimitedProvider throttles an upstream Provider to a fixed number of
// requests per minute. Training turns arrive in bursts when several HR
// operators review conversations at once, so the limiter allows a burst up
// to the per-minute budget and then paces callers instead of failing them.
type RateLimitedProvider struct {
	provider Provider
	rpm      int

	mu       sync.Mutex
	budget   int
	lastFill time.Time
}

// NewRateLimitedProvider wraps provider so that at most rpm completions per
// minute reach it. Callers over budget block until a slot frees up or their
// context ends.
func NewRateLimitedProvider(provider Provider, rpm int) Provider {
	if rpm <= 0 {
		return provider
	}
	return &RateLimitedProvider{
		provider: provider,
		rpm:      rpm,
		budget:   rpm,
		lastFill: time.Now(),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}

// acquire takes one request slot, blocking until one is available. Instead
// of polling it computes the exact time the next slot frees up and sleeps
// until then, so a cancelled turn returns promptly.
func (r *RateLimitedProvider) acquire(ctx context.Context) error {
	perSlot := time.Minute / time.Duration(r.rpm)

	for {
		r.mu.Lock()
		now := time.Now()

		refill := int(now.Sub(r.lastFill) / perSlot)
		if refill > 0 {
			r.budget += refill
			if r.budget > r.rpm {
				r.budget = r.rpm
			}
			r.lastFill = r.lastFill.Add(time.Duration(refill) * perSlot)
		}

		if r.budget > 0 {
			r.budget--
			r.mu.Unlock()
			return nil
		}

		wait := perSlot - now.Sub(r.lastFill)
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
