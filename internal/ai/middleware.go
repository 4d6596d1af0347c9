package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Pacer wraps a Completer with a shared rate limiter, 429 retries and
// per-task instrumentation. It is safe for concurrent use.
type Pacer struct {
	next    Completer
	limiter *rate.Limiter
	retries int
	backoff func(attempt int) time.Duration
	stats   *Stats
	log     *slog.Logger
}

// NewPacer limits next to rps requests per second and retries rate-limited
// calls up to retries times.
func NewPacer(next Completer, rps float64, retries int, stats *Stats, log *slog.Logger) *Pacer {
	burst := int(rps * 2)
	if burst < 1 {
		burst = 1
	}
	if retries < 0 {
		retries = 0
	}
	return &Pacer{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		retries: retries,
		backoff: rateLimitWait,
		stats:   stats,
		log:     log,
	}
}

func (p *Pacer) Complete(ctx context.Context, req Request) (string, error) {
	log := p.log.With("task", req.Task, "content_len", len(req.Content))
	for attempt := 0; ; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}

		start := time.Now()
		out, err := p.next.Complete(ctx, req)
		elapsed := time.Since(start)
		if err == nil {
			p.stats.RecordLatency(req.Task, elapsed)
			log.Debug("ai call complete", "elapsed_ms", elapsed.Milliseconds(), "output_len", len(out))
			return out, nil
		}

		var re *RetryableError
		if !errors.As(err, &re) || attempt >= p.retries {
			p.stats.RecordFailure(req.Task)
			log.Warn("ai call failed", "attempt", attempt, "elapsed_ms", elapsed.Milliseconds(), "error", err)
			return "", err
		}

		wait := p.backoff(attempt)
		if re.RetryAfter > 0 {
			wait = re.RetryAfter
		}
		p.stats.RecordRateLimitRetry(req.Task)
		log.Warn("rate limited, backing off", "attempt", attempt, "wait", wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}
