// Package store persists flow documents so a registry can be rebuilt
// without a flows directory. Executions are never stored.
package store

import (
	"context"
	"time"

	"github.com/rendis/authflow/pkg/schema"
)

// Store defines the document catalog contract.
// All implementations must be safe for concurrent use.
type Store interface {
	SaveDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, name string) (*Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]*Document, error)
	DeleteDocument(ctx context.Context, name string) error

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}

// Document is a stored flow document. Name is the catalog key; FlowID is
// taken from Definition.
type Document struct {
	Name       string               `json:"name"`
	FlowID     string               `json:"flow_id"`
	Definition *schema.FlowDocument `json:"definition"`
	Source     string               `json:"source,omitempty"` // where it was imported from
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// DocumentFilter narrows ListDocuments.
type DocumentFilter struct {
	FlowID string
	Limit  int
}
