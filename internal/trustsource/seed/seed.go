// Package seed loads trust sources and records from a YAML file.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"trustboard/internal/trustsource/models"
)

// File is the on-disk seed layout.
type File struct {
	Sources []models.Source `yaml:"sources"`
	Records []models.Record `yaml:"records"`
}

// Importer is implemented by both record stores.
type Importer interface {
	PutSource(ctx context.Context, src models.Source) error
	PutRecord(ctx context.Context, rec models.Record) error
}

// BulkImporter writes everything in one go.
type BulkImporter interface {
	Import(ctx context.Context, sources []models.Source, records []models.Record) error
}

// Parse decodes and validates a seed document.
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile reads path and imports its contents into dst.
func LoadFile(ctx context.Context, path string, dst Importer) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer fh.Close()

	f, err := Parse(fh)
	if err != nil {
		return nil, err
	}
	if err := Apply(ctx, f, dst); err != nil {
		return nil, err
	}
	return f, nil
}

// Apply writes f into dst, in one transaction when dst supports it.
func Apply(ctx context.Context, f *File, dst Importer) error {
	if bulk, ok := dst.(BulkImporter); ok {
		return bulk.Import(ctx, f.Sources, f.Records)
	}
	for _, src := range f.Sources {
		if err := dst.PutSource(ctx, src); err != nil {
			return fmt.Errorf("seed source %s: %w", src.ID, err)
		}
	}
	for _, rec := range f.Records {
		if err := dst.PutRecord(ctx, rec); err != nil {
			return fmt.Errorf("seed record %s: %w", rec.ID, err)
		}
	}
	return nil
}

func (f *File) validate() error {
	known := make(map[string]struct{}, len(f.Sources))
	for i, src := range f.Sources {
		if src.ID == "" || src.OrganizationID == "" {
			return fmt.Errorf("seed source %d: id and organization_id are required", i)
		}
		if _, dup := known[src.ID]; dup {
			return fmt.Errorf("seed source %s: duplicate id", src.ID)
		}
		known[src.ID] = struct{}{}
	}
	for i, rec := range f.Records {
		if rec.ID == "" {
			return fmt.Errorf("seed record %d: id is required", i)
		}
		if _, ok := known[rec.SourceID]; !ok {
			return fmt.Errorf("seed record %s: unknown source %q", rec.ID, rec.SourceID)
		}
	}
	return nil
}
