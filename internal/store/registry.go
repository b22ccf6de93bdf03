package store

import (
	"context"

	"github.com/rendis/authflow/internal/builder"
	"github.com/rendis/authflow/internal/loader"
	"github.com/rendis/authflow/pkg/schema"
)

// Definitions returns the stored flow documents in name order.
func Definitions(ctx context.Context, s Store) ([]*schema.FlowDocument, error) {
	stored, err := s.ListDocuments(ctx, DocumentFilter{})
	if err != nil {
		return nil, err
	}
	docs := make([]*schema.FlowDocument, 0, len(stored))
	for _, d := range stored {
		docs = append(docs, d.Definition)
	}
	return docs, nil
}

// LoadRegistry applies every stored document to b. Documents are validated
// when imported, not here.
func LoadRegistry(ctx context.Context, s Store, a *loader.Applier, b *builder.Builder) error {
	docs, err := Definitions(ctx, s)
	if err != nil {
		return err
	}
	return a.Apply(ctx, b, docs)
}

// Configurer adapts LoadRegistry to builder.Configurer.
type Configurer struct {
	Store   Store
	Applier *loader.Applier
}

// DoInitialize loads the catalog into b.
func (c *Configurer) DoInitialize(ctx context.Context, b *builder.Builder) error {
	return LoadRegistry(ctx, c.Store, c.Applier, b)
}

var _ builder.Configurer = (*Configurer)(nil)
