package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chxio/chgo/errs"
)

func retryPolicy(maxRetries int, set errs.ClientFaultCause) RetryPolicy {
	return RetryPolicy{
		MaxRetries:               maxRetries,
		RetrySet:                 set,
		SocketTimeout:            200 * time.Millisecond,
		ConnectionRequestTimeout: 200 * time.Millisecond,
	}
}

func TestRetrySucceedsWithinBudget(t *testing.T) {
	p := retryPolicy(1, errs.FaultNoResponse)

	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return &errs.TransportError{Cause: errs.FaultNoResponse, Msg: "empty response"}
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetryBudgetExhausted(t *testing.T) {
	p := retryPolicy(0, errs.FaultNoResponse)

	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++

		return &errs.TransportError{Cause: errs.FaultNoResponse, Msg: "empty response"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts, "zero retries means exactly one attempt")

	var te *errs.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, errs.FaultNoResponse, te.Cause)
}

func TestRetrySkipsCausesOutsideSet(t *testing.T) {
	p := retryPolicy(3, errs.FaultNoResponse)

	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++

		return &errs.TransportError{Cause: errs.FaultSocketTimeout, Msg: "deadline"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts, "socket timeout is not in the retry set")
}

func TestRetryNeverRetriesServerErrors(t *testing.T) {
	p := retryPolicy(3, errs.DefaultRetrySet)

	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++

		return &errs.ServerError{Code: 241, Message: "memory limit"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, errs.ErrServer)
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	p := retryPolicy(10, errs.FaultNoResponse)

	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := p.Do(ctx, func(ctx context.Context) error {
		attempts++
		cancel()

		return &errs.TransportError{Cause: errs.FaultNoResponse, Msg: "empty response"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts, "cancellation must stop further attempts")
}

func TestRetryWallClockBound(t *testing.T) {
	p := RetryPolicy{
		MaxRetries:               2,
		RetrySet:                 errs.FaultNoResponse,
		SocketTimeout:            30 * time.Millisecond,
		ConnectionRequestTimeout: 30 * time.Millisecond,
	}

	start := time.Now()
	_ = p.Do(context.Background(), func(ctx context.Context) error {
		return &errs.TransportError{Cause: errs.FaultNoResponse, Msg: "empty response"}
	})

	// Total wait is bounded by maxRetries * (socketTimeout + t_req), plus
	// scheduling slack.
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
