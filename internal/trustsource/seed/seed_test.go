package seed

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustboard/internal/trustsource/store"
)

func TestLoadFile(t *testing.T) {
	st := store.NewInMemoryStore()
	f, err := LoadFile(context.Background(), filepath.Join("testdata", "registry.yaml"), st)
	require.NoError(t, err)
	assert.Len(t, f.Sources, 3)
	assert.Len(t, f.Records, 3)

	sources, err := st.ListSources(context.Background(), "org-medical-board", "licensing")
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "State Medical Board", sources[0].OrganizationName)

	recs, err := st.SearchRecords(context.Background(), "src-medical-licenses", "ML-1001")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "rec-1001", recs[0].ID)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing org", "sources:\n  - id: a\n", "organization_id"},
		{"duplicate source", "sources:\n  - {id: a, organization_id: o}\n  - {id: a, organization_id: o}\n", "duplicate"},
		{"dangling record", "sources: []\nrecords:\n  - {id: r, source_id: nope}\n", "unknown source"},
		{"unknown field", "source: []\n", "decode seed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Sources)
}
