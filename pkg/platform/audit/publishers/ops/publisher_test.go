package ops

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "trustboard/pkg/platform/audit"
	"trustboard/pkg/platform/circuit"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (r *recordingEmitter) Emit(_ context.Context, event audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func cachedHit() audit.Event {
	return audit.Event{Action: string(audit.EventVerificationServedCached), QueryID: "q-1"}
}

func TestPublisher_Emit(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("forwards with the category stamped", func(t *testing.T) {
		next := &recordingEmitter{}
		m := NewMetrics(prometheus.NewRegistry())
		pub := New(next, WithMetrics(m), WithLogger(quiet))

		require.NoError(t, pub.Emit(context.Background(), cachedHit()))
		require.Equal(t, 1, next.count())
		assert.Equal(t, audit.CategoryOperations, next.events[0].Category)
		assert.InDelta(t, 1, testutil.ToFloat64(m.Tracked), 0.001)
	})

	t.Run("sampled out events never reach the emitter", func(t *testing.T) {
		next := &recordingEmitter{}
		m := NewMetrics(prometheus.NewRegistry())
		sampler := NewSampler(1)
		sampler.SetRate(string(audit.EventVerificationServedCached), 0)
		pub := New(next, WithSampler(sampler), WithMetrics(m), WithLogger(quiet))

		for range 5 {
			require.NoError(t, pub.Emit(context.Background(), cachedHit()))
		}
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventVerificationFailed)}))

		assert.Equal(t, 1, next.count())
		assert.InDelta(t, 5, testutil.ToFloat64(m.Sampled), 0.001)
	})

	t.Run("repeated refusals open the circuit and later events are dropped", func(t *testing.T) {
		next := &recordingEmitter{err: errors.New("audit buffer full")}
		m := NewMetrics(prometheus.NewRegistry())
		now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		breaker := circuit.New("audit-ops",
			circuit.WithFailureThreshold(2),
			circuit.WithSuccessThreshold(1),
			circuit.WithCooldown(time.Minute),
			circuit.WithClock(func() time.Time { return now }),
		)
		pub := New(next, WithBreaker(breaker), WithMetrics(m), WithLogger(quiet))

		assert.Error(t, pub.Emit(context.Background(), cachedHit()))
		assert.Error(t, pub.Emit(context.Background(), cachedHit()))
		assert.True(t, breaker.IsOpen())
		assert.InDelta(t, 1, testutil.ToFloat64(m.CircuitBreakerState), 0.001)

		assert.NoError(t, pub.Emit(context.Background(), cachedHit()))
		assert.InDelta(t, 1, testutil.ToFloat64(m.CircuitBreakerDropped), 0.001)
		assert.InDelta(t, 2, testutil.ToFloat64(m.PersistFailures), 0.001)

		next.mu.Lock()
		next.err = nil
		next.mu.Unlock()
		now = now.Add(2 * time.Minute)

		require.NoError(t, pub.Emit(context.Background(), cachedHit()))
		assert.False(t, breaker.IsOpen())
		assert.Zero(t, testutil.ToFloat64(m.CircuitBreakerState))
		assert.Equal(t, 1, next.count())
	})
}
