package loader

import (
	"context"

	"github.com/rendis/authflow/internal/builder"
	"github.com/rendis/authflow/pkg/schema"
)

// Configurer is a builder.Configurer applying flow documents. When
// Documents is nil they are loaded from Dir.
type Configurer struct {
	Dir       string
	Documents []*schema.FlowDocument
	Loader    *Loader
	Applier   *Applier
}

// DoInitialize loads and applies the documents.
func (c *Configurer) DoInitialize(ctx context.Context, b *builder.Builder) error {
	docs := c.Documents
	if docs == nil && c.Dir != "" {
		loaded, err := c.Loader.LoadDir(c.Dir)
		if err != nil {
			return err
		}
		docs = loaded
	}
	return c.Applier.Apply(ctx, b, docs)
}

var _ builder.Configurer = (*Configurer)(nil)
