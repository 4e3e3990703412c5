// Package audit records who did what to which resource. Writes are
// best-effort from the caller's point of view: a failed audit write is
// logged, never surfaced to the user.
package audit

import (
	"context"
	"time"
)

// Actions recorded by the analysis pipeline
const (
	ActionAnalysisCreate = "analysis.create"
	ActionAnalysisRead   = "analysis.read"
	ActionAnalysisExport = "analysis.export"
	ActionAnalysisDelete = "analysis.delete"
)

// ResourceAnalysis is the resource type of analysis records
const ResourceAnalysis = "analysis"

// Entry is one audit log row.
type Entry struct {
	ID           int64     `json:"id,omitempty"`
	Actor        string    `json:"actor"`                 // client identifier, "anonymous" when unknown
	Action       string    `json:"action"`                // e.g. analysis.create
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id,omitempty"`
	Details      string    `json:"details,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store defines the interface for audit log storage.
type Store interface {
	// Record appends an entry and fills in its ID and CreatedAt.
	Record(ctx context.Context, entry *Entry) error

	// List returns entries newest first with pagination.
	List(ctx context.Context, limit, offset int) ([]*Entry, error)

	// Count returns the total number of entries.
	Count(ctx context.Context) (int64, error)

	// Close closes the store and releases resources.
	Close() error
}

func normalize(entry *Entry) {
	if entry.Actor == "" {
		entry.Actor = "anonymous"
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
}
