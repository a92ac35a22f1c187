package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustboard/internal/platform/config"
	"trustboard/pkg/platform/audit"
	auditmemory "trustboard/pkg/platform/audit/store/memory"
)

func TestBuildAuditPublisher(t *testing.T) {
	store := auditmemory.NewInMemoryStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditor, closeAuditor := buildAuditPublisher(config.Audit{BufferSize: 16, CachedSampleRate: 0}, store, log)

	ctx := context.Background()
	require.NoError(t, auditor.Emit(ctx, audit.Event{Action: string(audit.EventVerificationCompleted), QueryID: "q-1", RequesterID: "acme"}))
	require.NoError(t, auditor.Emit(ctx, audit.Event{Action: string(audit.EventVerificationServedCached), QueryID: "q-1", RequesterID: "acme"}))
	require.NoError(t, auditor.Emit(ctx, audit.Event{Action: string(audit.EventVerificationFailed), QueryID: "q-2", RequesterID: "acme"}))

	// compliance writes are synchronous
	events, err := store.ListByRequester(ctx, "acme")
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, string(audit.EventVerificationCompleted), events[0].Action)

	closeAuditor()
	events, err = store.ListByRequester(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, events, 2, "cached hit is sampled out at rate 0")
	assert.Equal(t, audit.CategoryOperations, events[1].Category)

	err = auditor.Emit(ctx, audit.Event{Action: string(audit.EventVerificationFailed), QueryID: "q-3"})
	assert.Error(t, err, "ops events after close are refused, not panicking")
}
