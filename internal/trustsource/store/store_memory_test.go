package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"trustboard/internal/trustsource/models"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	for _, src := range []models.Source{
		{ID: "src-lic", Name: "License registry", OrganizationID: "org-1", Category: "licensing"},
		{ID: "src-emp", Name: "Employment records", OrganizationID: "org-1", Category: "employment"},
		{ID: "src-other", Name: "Other", OrganizationID: "org-2", Category: "licensing"},
	} {
		s.Require().NoError(s.store.PutSource(s.ctx, src))
	}
	s.Require().NoError(s.store.PutRecord(s.ctx, models.Record{
		ID: "r1", SourceID: "src-lic", Summary: "John Doe holds medical license ML-100",
	}))
	s.Require().NoError(s.store.PutRecord(s.ctx, models.Record{
		ID: "r2", SourceID: "src-lic", Summary: "Jane Roe", Fields: map[string]string{"license": "ML-200"},
	}))
}

func (s *InMemoryStoreSuite) TestListSources() {
	s.Run("filters by organization", func() {
		got, err := s.store.ListSources(s.ctx, "org-1", "")
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal("src-lic", got[0].ID)
		s.Equal("src-emp", got[1].ID)
	})

	s.Run("filters by category case-insensitively", func() {
		got, err := s.store.ListSources(s.ctx, "org-1", "Licensing")
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal("src-lic", got[0].ID)
	})

	s.Run("unknown organization is empty", func() {
		got, err := s.store.ListSources(s.ctx, "org-9", "")
		s.Require().NoError(err)
		s.Empty(got)
	})
}

func (s *InMemoryStoreSuite) TestSearchRecords() {
	s.Run("all terms must match", func() {
		got, err := s.store.SearchRecords(s.ctx, "src-lic", "John Doe license")
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal("r1", got[0].ID)
	})

	s.Run("fields are searchable", func() {
		got, err := s.store.SearchRecords(s.ctx, "src-lic", "jane ml-200")
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal("r2", got[0].ID)
	})

	s.Run("no match is empty", func() {
		got, err := s.store.SearchRecords(s.ctx, "src-lic", "Richard Roe")
		s.Require().NoError(err)
		s.Empty(got)
	})

	s.Run("blank filter matches nothing", func() {
		got, err := s.store.SearchRecords(s.ctx, "src-lic", " is a ")
		s.Require().NoError(err)
		s.Empty(got)
	})

	s.Run("unknown source", func() {
		_, err := s.store.SearchRecords(s.ctx, "missing", "john")
		s.ErrorIs(err, ErrNotFound)
	})
}

func TestInMemoryStore_PutRecordRequiresSource(t *testing.T) {
	st := NewInMemoryStore()
	err := st.PutRecord(context.Background(), models.Record{ID: "r", SourceID: "nope"})
	require.ErrorIs(t, err, ErrNotFound)
}
