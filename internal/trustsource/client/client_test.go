package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustboard/internal/trustsource/models"
	"trustboard/pkg/platform/circuit"
	"trustboard/pkg/platform/sentinel"
)

func TestClient_ListSources(t *testing.T) {
	var gotPath, gotCategory string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCategory = r.URL.Query().Get("category")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sources": []models.Source{{ID: "src-1", Name: "Licenses", OrganizationID: "org 1"}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	got, err := c.ListSources(context.Background(), "org 1", "licensing")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "src-1", got[0].ID)
	assert.Equal(t, "/v1/organizations/org 1/sources", gotPath)
	assert.Equal(t, "licensing", gotCategory)
}

func TestClient_SearchRecords(t *testing.T) {
	t.Run("decodes records", func(t *testing.T) {
		var gotQuery string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query().Get("q")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"records": []models.Record{{ID: "r1", SourceID: "src-1", Summary: "John Doe"}},
			})
		}))
		defer srv.Close()

		got, err := New(srv.URL, time.Second).SearchRecords(context.Background(), "src-1", "John Doe & co")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "John Doe & co", gotQuery)
	})

	t.Run("404 means no records", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		got, err := New(srv.URL, time.Second).SearchRecords(context.Background(), "src-x", "john")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("5xx is unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := New(srv.URL, time.Second).SearchRecords(context.Background(), "src-1", "john")
		require.Error(t, err)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("malformed body is corrupted", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}))
		defer srv.Close()

		_, err := New(srv.URL, time.Second).SearchRecords(context.Background(), "src-1", "john")
		assert.ErrorIs(t, err, sentinel.ErrCorrupted)
	})
}

func TestClient_CircuitOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	now := time.Unix(1_700_000_000, 0)
	breaker := circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }))
	c := New(srv.URL, time.Second, WithBreaker(breaker))

	for range 2 {
		_, err := c.ListSources(context.Background(), "org", "")
		require.Error(t, err)
	}
	_, err := c.ListSources(context.Background(), "org", "")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sources":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, WithRateLimit(0.001, 1))
	_, err := c.ListSources(context.Background(), "org", "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.ListSources(ctx, "org", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
