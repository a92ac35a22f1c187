package compliance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "trustboard/pkg/platform/audit"
	"trustboard/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("outbox unavailable")
}

func TestPublisher_Emit(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("persists a verdict synchronously", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		m := NewMetrics(prometheus.NewRegistry())
		pub := New(store, WithMetrics(m), WithClock(func() time.Time { return now }))

		err := pub.Emit(context.Background(), audit.Event{
			Action:      string(audit.EventVerificationCompleted),
			QueryID:     "q-1",
			RequesterID: "employer-1",
			Decision:    "verified",
		})
		require.NoError(t, err)

		events, err := store.ListByRequester(context.Background(), "employer-1")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, audit.CategoryCompliance, events[0].Category)
		assert.Equal(t, now, events[0].Timestamp)
		assert.InDelta(t, 1, testutil.ToFloat64(m.EventsEmitted), 0.001)
	})

	t.Run("cross-verification verdicts are keyed by request", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := New(store)

		err := pub.Emit(context.Background(), audit.Event{
			Action:      string(audit.EventCrossVerificationCompleted),
			RequestID:   "req-1",
			RequesterID: "employer-1",
		})
		require.NoError(t, err)
	})

	t.Run("rejects events it must not record", func(t *testing.T) {
		pub := New(memory.NewInMemoryStore())
		for name, ev := range map[string]audit.Event{
			"no action":         {QueryID: "q-1"},
			"operations action": {Action: string(audit.EventVerificationServedCached), QueryID: "q-1"},
			"no identifiers":    {Action: string(audit.EventVerificationCompleted)},
		} {
			err := pub.Emit(context.Background(), ev)
			assert.ErrorIs(t, err, ErrInvalidEvent, name)
		}
	})

	t.Run("store failure is returned to the caller", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())
		pub := New(failingStore{}, WithMetrics(m), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

		err := pub.Emit(context.Background(), audit.Event{
			Action:  string(audit.EventVerificationCompleted),
			QueryID: "q-1",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outbox unavailable")
		assert.InDelta(t, 1, testutil.ToFloat64(m.PersistFailures), 0.001)
		assert.Zero(t, testutil.ToFloat64(m.EventsEmitted))
	})
}
