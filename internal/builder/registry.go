package builder

import (
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/internal/logging"
)

// MergeIntoLoginRegistry registers every flow of source into the builder's
// registry in source order. Existing IDs are overwritten. Returns the
// overwritten IDs.
func (b *Builder) MergeIntoLoginRegistry(source *flow.Registry) []string {
	if source == nil || source == b.registry {
		b.log.Debug("nothing to merge")
		return nil
	}

	overwritten := b.registry.Merge(source)
	for _, id := range overwritten {
		b.log.Debug("flow definition overwritten", logging.KeyFlowID, id)
	}
	b.metrics.FlowsMerged(source.Len(), len(overwritten))
	b.log.Debug("registry merged", "flows", source.Len(), "overwritten", len(overwritten))
	return overwritten
}
