package embedding

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/atsumeru/pkg/utils"
)

// Policy computes the wait before the next retry attempt. attempt is
// 1-based: Delay(1) is the wait after the first failure.
type Policy interface {
	Delay(attempt int) time.Duration
}

// LinearPolicy waits a fixed interval between attempts.
type LinearPolicy struct {
	Interval time.Duration
}

// Delay returns the fixed interval regardless of attempt.
func (p LinearPolicy) Delay(int) time.Duration {
	return p.Interval
}

// ExponentialPolicy doubles a base delay on each attempt, caps it at Max,
// and adds up to 25% random jitter to avoid synchronized retries across
// workers.
type ExponentialPolicy struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns base * 2^(attempt-1) capped at Max, plus jitter.
func (p ExponentialPolicy) Delay(attempt int) time.Duration {
	d := p.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.Max > 0 && d >= p.Max {
			d = p.Max
			break
		}
	}
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	return d + jitter
}

// NewPolicy builds a policy by name: "linear" gives a fixed-delay policy,
// anything else (including "exponential") gives exponential backoff with
// jitter.
func NewPolicy(name string, base, max time.Duration) Policy {
	if name == "linear" {
		return LinearPolicy{Interval: base}
	}
	return ExponentialPolicy{Base: base, Max: max}
}

// RetryingEmbedder wraps an Embedder and retries failed requests up to a
// fixed attempt count. Every failure class is treated as transient; after
// the final attempt there is no sleep and the last error is returned.
type RetryingEmbedder struct {
	inner    Embedder
	attempts int
	policy   Policy
	logger   *zap.Logger
}

var _ Embedder = (*RetryingEmbedder)(nil)

// RetryOption configures a RetryingEmbedder.
type RetryOption func(*RetryingEmbedder)

// WithLogger sets a logger for retry events.
func WithLogger(l *zap.Logger) RetryOption {
	return func(r *RetryingEmbedder) { r.logger = l }
}

// NewRetryingEmbedder wraps inner with retry. attempts < 1 is clamped to 1;
// a nil policy defaults to exponential backoff from one second.
func NewRetryingEmbedder(inner Embedder, attempts int, policy Policy, opts ...RetryOption) *RetryingEmbedder {
	if attempts < 1 {
		attempts = 1
	}
	if policy == nil {
		policy = ExponentialPolicy{Base: time.Second, Max: 30 * time.Second}
	}
	r := &RetryingEmbedder{
		inner:    inner,
		attempts: attempts,
		policy:   policy,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Embed calls the inner embedder, retrying on failure. Context cancellation
// aborts both in-flight waits and further attempts.
func (r *RetryingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		vec, err := r.inner.Embed(ctx, text)
		if err == nil {
			if attempt > 1 && r.logger != nil {
				r.logger.Debug("embedding succeeded after retry", zap.Int("attempt", attempt))
			}
			return vec, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if attempt == r.attempts {
			break
		}
		delay := r.policy.Delay(attempt)
		if r.logger != nil {
			r.logger.Warn("embedding request failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", r.attempts),
				zap.Duration("delay", delay),
				zap.String("text", utils.Truncate(text, 60)),
				zap.Error(err),
			)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

// EmbedBatch embeds each text individually so one bad text does not fail
// the whole batch.
func (r *RetryingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := r.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// Dimensions reports the inner embedder's dimension.
func (r *RetryingEmbedder) Dimensions() int {
	return r.inner.Dimensions()
}

// Close closes the inner embedder.
func (r *RetryingEmbedder) Close() error {
	return r.inner.Close()
}
