package transport

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/chxio/chgo/errs"
)

// RetryPolicy bounds how many times and under what backoff a failed
// request is retried, and which ClientFaultCause values are eligible.
type RetryPolicy struct {
	MaxRetries int
	RetrySet   errs.ClientFaultCause
	// SocketTimeout and ConnectionRequestTimeout bound a single attempt's
	// wall-clock cost; they feed the invariant that total retry wait is
	// bounded by MaxRetries * (SocketTimeout + ConnectionRequestTimeout).
	SocketTimeout            time.Duration
	ConnectionRequestTimeout time.Duration
}

// newBackOff builds the exponential backoff schedule for one logical
// request, capped so the total wait never exceeds the invariant's bound.
func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = p.SocketTimeout + p.ConnectionRequestTimeout
	b.MaxElapsedTime = time.Duration(p.MaxRetries) * (p.SocketTimeout + p.ConnectionRequestTimeout)
	b.Reset()

	return backoff.WithContext(b, ctx)
}

// shouldRetry reports whether err is a TransportError whose cause is in
// the configured retry set and attempts so far are under MaxRetries.
func (p RetryPolicy) shouldRetry(err error, attempt int) bool {
	if attempt >= p.MaxRetries {
		return false
	}

	var te *errs.TransportError

	for e := err; e != nil; {
		if t, ok := e.(*errs.TransportError); ok { //nolint:errorlint
			te = t

			break
		}

		u, ok := e.(interface{ Unwrap() error }) //nolint:errorlint
		if !ok {
			return false
		}

		e = u.Unwrap()
	}

	if te == nil {
		return false
	}

	return te.Retryable(p.RetrySet)
}

// Do runs op up to MaxRetries+1 times, honoring the backoff schedule
// between attempts and stopping as soon as op succeeds or returns a
// non-retryable error.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	b := p.newBackOff(ctx)

	var lastErr error

	for attempt := 0; ; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if !p.shouldRetry(lastErr, attempt) {
			return lastErr
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return lastErr
		}

		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		case <-timer.C:
		}
	}
}
