package modeladapter

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/cenkalti/backoff.v1"

	"github.com/germanamz/blasko/pkg/chats/chat"
	"github.com/germanamz/blasko/pkg/modeladapter/usage"
	"github.com/germanamz/blasko/pkg/tools/toolbox"
)

var _ Streamer = (*RateLimitedStreamer)(nil)

// RateLimitOpts configures the RateLimitedStreamer.
type RateLimitOpts struct {
	RPM        int           // Requests per minute (0 = no limit).
	Burst      int           // Requests allowed at once (default 1).
	MaxRetries int           // Max retries on 429 (default 3).
	BaseDelay  time.Duration // Initial backoff delay (default 1s).
	MaxDelay   time.Duration // Cap on a single backoff delay (default 30s).
}

// RetryFunc is notified before each 429 retry.
type RetryFunc func(err error, wait time.Duration)

// RateLimitedStreamer wraps a Streamer with proactive request pacing and
// reactive 429 retry. A 429 is only retried if the inner streamer has not
// yet delivered any event, so the caller never sees duplicated output.
type RateLimitedStreamer struct {
	inner           Streamer
	limiter         *rate.Limiter
	opts            RateLimitOpts
	onRetry         RetryFunc
	fallbackTracker usage.Tracker

	nowFunc   func() time.Time
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewRateLimitedStreamer wraps a Streamer with rate limiting.
func NewRateLimitedStreamer(inner Streamer, opts RateLimitOpts) *RateLimitedStreamer {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	r := &RateLimitedStreamer{
		inner:     inner,
		opts:      opts,
		nowFunc:   time.Now,
		sleepFunc: contextSleep,
	}
	if opts.RPM > 0 {
		r.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RPM)), opts.Burst)
	}

	return r
}

// OnRetry registers a callback invoked before each retry.
func (r *RateLimitedStreamer) OnRetry(fn RetryFunc) { r.onRetry = fn }

// SetNowFunc overrides the time source (for testing).
func (r *RateLimitedStreamer) SetNowFunc(fn func() time.Time) { r.nowFunc = fn }

// SetSleepFunc overrides the sleep used for server-advised throttling (for testing).
func (r *RateLimitedStreamer) SetSleepFunc(fn func(ctx context.Context, d time.Duration) error) {
	r.sleepFunc = fn
}

func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retryAfter stretches the next delay to the server's Retry-After hint.
type retryAfter struct {
	backoff.BackOff
	hint time.Duration
}

func (b *retryAfter) NextBackOff() time.Duration {
	d := b.BackOff.NextBackOff()
	if d == backoff.Stop {
		return d
	}
	if b.hint > d {
		d = b.hint
	}
	b.hint = 0
	return d
}

func (r *RateLimitedStreamer) newBackOff(ctx context.Context) (*retryAfter, backoff.BackOffContext) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.opts.BaseDelay
	exp.MaxInterval = r.opts.MaxDelay
	exp.RandomizationFactor = 0.25
	exp.MaxElapsedTime = 0

	ra := &retryAfter{BackOff: backoff.WithMaxTries(exp, uint64(r.opts.MaxRetries))}
	return ra, backoff.WithContext(ra, ctx)
}

// Stream implements Streamer.
func (r *RateLimitedStreamer) Stream(ctx context.Context, c *chat.Chat, tools []toolbox.Tool, fn StreamFunc) error {
	delivered := false
	forward := func(ev StreamEvent) error {
		delivered = true
		return fn(ev)
	}

	ra, b := r.newBackOff(ctx)

	op := func() error {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		err := r.inner.Stream(ctx, c, tools, forward)
		if err == nil {
			return nil
		}

		var rle *RateLimitError
		if delivered || !errors.As(err, &rle) {
			return backoff.Permanent(err)
		}

		ra.hint = rle.RetryAfter
		return err
	}

	if err := backoff.RetryNotify(op, b, backoff.Notify(r.onRetry)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}

	return r.adaptFromServerInfo(ctx)
}

// adaptFromServerInfo sleeps until the provider's reset time when the inner
// streamer reports near-zero remaining capacity.
func (r *RateLimitedStreamer) adaptFromServerInfo(ctx context.Context) error {
	reporter, ok := r.inner.(RateLimitInfoReporter)
	if !ok {
		return nil
	}

	info := reporter.LastRateLimitInfo()
	if info == nil {
		return nil
	}

	now := r.nowFunc()
	var sleepUntil time.Time

	if info.RemainingRequests <= 1 && !info.RequestsReset.IsZero() && info.RequestsReset.After(now) {
		sleepUntil = info.RequestsReset
	}

	if info.RemainingTokens <= 1 && !info.TokensReset.IsZero() && info.TokensReset.After(sleepUntil) && info.TokensReset.After(now) {
		sleepUntil = info.TokensReset
	}

	if sleepUntil.IsZero() {
		return nil
	}

	return r.sleepFunc(ctx, sleepUntil.Sub(now))
}

// UsageTracker forwards to the inner streamer if it implements UsageReporter.
func (r *RateLimitedStreamer) UsageTracker() *usage.Tracker {
	if ur, ok := r.inner.(UsageReporter); ok {
		return ur.UsageTracker()
	}
	return &r.fallbackTracker
}

// ModelMaxTokens forwards to the inner streamer if it implements UsageReporter.
func (r *RateLimitedStreamer) ModelMaxTokens() int {
	if ur, ok := r.inner.(UsageReporter); ok {
		return ur.ModelMaxTokens()
	}
	return 0
}
