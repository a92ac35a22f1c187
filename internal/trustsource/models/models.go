// Package models holds the trust-source registry's own records. The
// verification engine only sees them through the gateway.
package models

import (
	"strings"
)

// Source is a registered trust source owned by an organization.
type Source struct {
	ID               string `json:"id" yaml:"id"`
	Name             string `json:"name" yaml:"name"`
	OrganizationID   string `json:"organization_id" yaml:"organization_id"`
	OrganizationName string `json:"organization_name" yaml:"organization_name"`
	BoardID          string `json:"board_id,omitempty" yaml:"board_id"`
	Category         string `json:"category,omitempty" yaml:"category"`
}

// Record is a searchable fact held by a source.
type Record struct {
	ID       string            `json:"id" yaml:"id"`
	SourceID string            `json:"source_id" yaml:"source_id"`
	Summary  string            `json:"summary" yaml:"summary"`
	Fields   map[string]string `json:"fields,omitempty" yaml:"fields"`
}

// SearchText is the lowercased text a filter is matched against.
func (r Record) SearchText() string {
	parts := make([]string, 0, len(r.Fields)+1)
	parts = append(parts, r.Summary)
	for _, v := range r.Fields {
		parts = append(parts, v)
	}
	return strings.ToLower(strings.Join(parts, " "))
}
