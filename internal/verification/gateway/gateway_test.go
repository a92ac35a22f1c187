package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustboard/internal/platform/config"
	tsmodels "trustboard/internal/trustsource/models"
	"trustboard/internal/trustsource/store"
)

type failingRegistry struct{ err error }

func (f failingRegistry) ListSources(context.Context, string, string) ([]tsmodels.Source, error) {
	return nil, f.err
}

func (f failingRegistry) SearchRecords(context.Context, string, string) ([]tsmodels.Record, error) {
	return nil, f.err
}

func seededStore(t *testing.T) *store.InMemoryStore {
	t.Helper()
	ctx := context.Background()
	st := store.NewInMemoryStore()
	require.NoError(t, st.PutSource(ctx, tsmodels.Source{
		ID: "src-1", Name: "Licenses", OrganizationID: "org-1", OrganizationName: "Board", BoardID: "b-1", Category: "licensing",
	}))
	require.NoError(t, st.PutRecord(ctx, tsmodels.Record{ID: "r1", SourceID: "src-1", Summary: "John Doe licensed"}))
	return st
}

func TestAdapter_Local(t *testing.T) {
	gw := NewLocal(seededStore(t))
	ctx := context.Background()

	sources := gw.ListSources(ctx, "org-1", "licensing")
	require.True(t, sources.IsOK())
	require.Len(t, sources.Data, 1)
	assert.Equal(t, "b-1", sources.Data[0].BoardID)
	assert.False(t, sources.Data[0].Verified)

	records := gw.SearchRecords(ctx, "src-1", "john doe")
	require.True(t, records.IsOK())
	require.Len(t, records.Data, 1)
	assert.Equal(t, "John Doe licensed", records.Data[0].Summary)

	t.Run("unknown source is empty, not unavailable", func(t *testing.T) {
		res := gw.SearchRecords(ctx, "missing", "john")
		assert.True(t, res.IsOK())
		assert.Empty(t, res.Data)
	})

	t.Run("no sources is ok", func(t *testing.T) {
		res := gw.ListSources(ctx, "org-none", "")
		assert.True(t, res.IsOK())
		assert.Empty(t, res.Data)
	})
}

func TestAdapter_FailuresBecomeUnavailable(t *testing.T) {
	boom := errors.New("registry down")
	gw := NewRemote(failingRegistry{err: boom})

	sources := gw.ListSources(context.Background(), "org-1", "")
	assert.False(t, sources.IsOK())
	assert.ErrorIs(t, sources.Reason, boom)

	records := gw.SearchRecords(context.Background(), "src-1", "john")
	assert.False(t, records.IsOK())
}

func TestNew_SelectsMode(t *testing.T) {
	local := seededStore(t)
	remote := failingRegistry{err: errors.New("x")}

	gw, err := New(config.GatewayLocal, local, remote)
	require.NoError(t, err)
	assert.Equal(t, config.GatewayLocal, gw.Kind())

	gw, err = New(config.GatewayRemote, local, remote)
	require.NoError(t, err)
	assert.Equal(t, config.GatewayRemote, gw.Kind())

	_, err = New(config.GatewayRemote, local, nil)
	require.Error(t, err)

	_, err = New("ftp", local, remote)
	require.Error(t, err)
}
