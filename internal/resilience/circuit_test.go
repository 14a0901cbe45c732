package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreaker(threshold int, reset time.Duration) (*CircuitBreaker, *time.Time) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: threshold,
		ResetTimeout:     reset,
	})
	cb.nowFunc = func() time.Time { return now }
	return cb, &now
}

func failing(cb *CircuitBreaker) error {
	_, err := ExecuteVal(context.Background(), cb, func(context.Context) (int, error) {
		return 0, eris.New("upstream down")
	})
	return err
}

func succeeding(cb *CircuitBreaker) error {
	_, err := ExecuteVal(context.Background(), cb, func(context.Context) (int, error) {
		return 1, nil
	})
	return err
}

func TestBreakerPassesThroughWhenClosed(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	val, err := ExecuteVal(context.Background(), cb, func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb, _ := testBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.Error(t, failing(cb))
	}
	assert.Equal(t, CircuitOpen, cb.State())

	// Next call is rejected without invoking fn.
	calls := 0
	_, err := ExecuteVal(context.Background(), cb, func(context.Context) (int, error) {
		calls++
		return 0, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb, _ := testBreaker(3, time.Minute)

	require.Error(t, failing(cb))
	require.Error(t, failing(cb))
	require.NoError(t, succeeding(cb))
	require.Error(t, failing(cb))
	require.Error(t, failing(cb))

	assert.Equal(t, CircuitClosed, cb.State())
}

func TestBreakerHalfOpenProbeRecovers(t *testing.T) {
	cb, now := testBreaker(2, time.Minute)

	require.Error(t, failing(cb))
	require.Error(t, failing(cb))
	require.Equal(t, CircuitOpen, cb.State())

	*now = now.Add(2 * time.Minute)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	require.NoError(t, succeeding(cb))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	cb, now := testBreaker(2, time.Minute)

	require.Error(t, failing(cb))
	require.Error(t, failing(cb))

	*now = now.Add(2 * time.Minute)
	require.Error(t, failing(cb))
	assert.Equal(t, CircuitOpen, cb.State())

	// And the open interval restarts from the failed probe.
	_, err := ExecuteVal(context.Background(), cb, func(context.Context) (int, error) {
		return 0, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerShouldTripFilter(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ShouldTrip:       IsTransient,
	})

	// A permanent error does not count toward the threshold.
	_, err := ExecuteVal(context.Background(), cb, func(context.Context) (int, error) {
		return 0, eris.New("bad request")
	})
	require.Error(t, err)
	assert.Equal(t, CircuitClosed, cb.State())

	// A transient one trips it.
	_, err = ExecuteVal(context.Background(), cb, func(context.Context) (int, error) {
		return 0, NewTransientError(eris.New("503"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestBreakerOnStateChange(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+">"+to.String())
		},
	})

	require.Error(t, failing(cb))
	cb.Reset()

	assert.Equal(t, []string{"closed>open", "open>closed"}, transitions)
}

func TestCircuitStateString(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(99).String())
}
