package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"trustboard/internal/trustsource/models"
)

// InMemoryStore keeps sources and records in maps.
type InMemoryStore struct {
	mu      sync.RWMutex
	sources map[string]models.Source
	order   []string
	records map[string][]models.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sources: make(map[string]models.Source),
		records: make(map[string][]models.Record),
	}
}

// PutSource inserts or replaces a source.
func (s *InMemoryStore) PutSource(_ context.Context, src models.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[src.ID]; !ok {
		s.order = append(s.order, src.ID)
	}
	s.sources[src.ID] = src
	return nil
}

// PutRecord adds a record to an existing source.
func (s *InMemoryStore) PutRecord(_ context.Context, rec models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[rec.SourceID]; !ok {
		return ErrNotFound
	}
	s.records[rec.SourceID] = append(s.records[rec.SourceID], rec)
	return nil
}

// ListSources returns an organization's sources in insertion order. An empty
// category matches every source.
func (s *InMemoryStore) ListSources(_ context.Context, organizationID, category string) ([]models.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Source
	for _, id := range s.order {
		src := s.sources[id]
		if src.OrganizationID != organizationID {
			continue
		}
		if category != "" && !strings.EqualFold(src.Category, category) {
			continue
		}
		out = append(out, src)
	}
	return out, nil
}

// SearchRecords returns the records in a source containing every filter term.
func (s *InMemoryStore) SearchRecords(_ context.Context, sourceID, filter string) ([]models.Record, error) {
	terms := searchTerms(filter)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.sources[sourceID]; !ok {
		return nil, ErrNotFound
	}
	if len(terms) == 0 {
		return nil, nil
	}
	var out []models.Record
	for _, rec := range s.records[sourceID] {
		text := rec.SearchText()
		if !slices.ContainsFunc(terms, func(t string) bool { return !strings.Contains(text, t) }) {
			out = append(out, rec)
		}
	}
	return out, nil
}
