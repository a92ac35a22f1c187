package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"trustboard/internal/trustsource/models"
	"trustboard/pkg/platform/tx"
)

// PostgresStore persists sources and records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// PutSource upserts a source.
func (s *PostgresStore) PutSource(ctx context.Context, src models.Source) error {
	query := `
		INSERT INTO trust_sources (id, name, organization_id, organization_name, board_id, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			organization_id = EXCLUDED.organization_id,
			organization_name = EXCLUDED.organization_name,
			board_id = EXCLUDED.board_id,
			category = EXCLUDED.category
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		src.ID, src.Name, src.OrganizationID, src.OrganizationName, src.BoardID, src.Category)
	if err != nil {
		return fmt.Errorf("put source: %w", err)
	}
	return nil
}

// PutRecord upserts a record.
func (s *PostgresStore) PutRecord(ctx context.Context, rec models.Record) error {
	query := `
		INSERT INTO trust_records (id, source_id, summary, search_text)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			source_id = EXCLUDED.source_id,
			summary = EXCLUDED.summary,
			search_text = EXCLUDED.search_text
	`
	_, err := s.execer(ctx).ExecContext(ctx, query, rec.ID, rec.SourceID, rec.Summary, rec.SearchText())
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// ListSources returns an organization's sources. An empty category matches every source.
func (s *PostgresStore) ListSources(ctx context.Context, organizationID, category string) ([]models.Source, error) {
	query := `
		SELECT id, name, organization_id, organization_name, board_id, category
		FROM trust_sources
		WHERE organization_id = $1 AND ($2 = '' OR lower(category) = lower($2))
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, organizationID, category)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []models.Source
	for rows.Next() {
		var src models.Source
		if err := rows.Scan(&src.ID, &src.Name, &src.OrganizationID, &src.OrganizationName, &src.BoardID, &src.Category); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return out, nil
}

// SearchRecords returns the records in a source containing every filter term.
func (s *PostgresStore) SearchRecords(ctx context.Context, sourceID, filter string) ([]models.Record, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM trust_sources WHERE id = $1)`, sourceID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check source: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	terms := searchTerms(filter)
	if len(terms) == 0 {
		return nil, nil
	}
	patterns := make([]string, len(terms))
	for i, t := range terms {
		patterns[i] = "%" + escapeLike(t) + "%"
	}

	query := `
		SELECT id, source_id, summary
		FROM trust_records
		WHERE source_id = $1 AND search_text ILIKE ALL ($2::text[])
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, sourceID, pq.Array(patterns))
	if err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var rec models.Record
		if err := rows.Scan(&rec.ID, &rec.SourceID, &rec.Summary); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}
	return out, nil
}

// Import writes sources and records in a single transaction.
func (s *PostgresStore) Import(ctx context.Context, sources []models.Source, records []models.Record) error {
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		for _, src := range sources {
			if err := s.PutSource(ctx, src); err != nil {
				return err
			}
		}
		for _, rec := range records {
			if err := s.PutRecord(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
