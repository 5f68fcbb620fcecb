package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	val, err := Retry(context.Background(), fastPolicy(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &StatusError{Code: 503, URL: "https://kitchen.test"}
		}
		return "body", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "body", val)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(), func(context.Context) (string, error) {
		calls++
		return "", &StatusError{Code: 404, URL: "https://kitchen.test"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	var retried []int
	p := fastPolicy()
	p.OnRetry = func(attempt int, _ error) { retried = append(retried, attempt) }

	_, err := Retry(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, &StatusError{Code: 429, URL: "https://kitchen.test"}
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, fastPolicy(), func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, &StatusError{Code: 503, URL: "https://kitchen.test"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestTransient(t *testing.T) {
	assert.False(t, Transient(nil))
	assert.False(t, Transient(eris.New("parse failure")))
	assert.True(t, Transient(&StatusError{Code: 503}))
	assert.True(t, Transient(&StatusError{Code: 429}))
	assert.False(t, Transient(&StatusError{Code: 404}))
	assert.True(t, Transient(eris.New("read tcp: connection reset by peer")))
	assert.True(t, Transient(eris.New("dial tcp: i/o timeout")))
}

func TestRetryableStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, RetryableStatus(code), code)
	}
	for _, code := range []int{200, 301, 400, 403, 404, 410} {
		assert.False(t, RetryableStatus(code), code)
	}
}

func TestBackoffCapped(t *testing.T) {
	p := withDefaults(Policy{BaseDelay: time.Second, MaxDelay: 2 * time.Second, Jitter: 0})
	assert.Equal(t, time.Second, backoff(0, p))
	assert.Equal(t, 2*time.Second, backoff(1, p))
	assert.Equal(t, 2*time.Second, backoff(5, p))
}
