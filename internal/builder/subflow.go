package builder

import (
	"strings"

	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/internal/logging"
	"github.com/rendis/authflow/pkg/schema"
)

// CreateMapperToSubflowState builds an ordered mapper. Nil mappings are skipped.
func (b *Builder) CreateMapperToSubflowState(mappings ...*flow.Mapping) *flow.Mapper {
	return flow.NewMapper(mappings...)
}

// mappingKeywords are constant sources, never read as variable paths.
var mappingKeywords = map[string]any{"true": true, "false": false, "nil": nil, "null": nil}

// CreateMappingToSubflowState creates a mapping assigning the value of
// value to the variable path name, coerced to typ. true, false, nil and
// null are constants. Any other plain dotted path in value reads the source
// scope directly; anything else is parsed as an expression.
func (b *Builder) CreateMappingToSubflowState(name, value string, required bool, typ expressions.Type) (*flow.Mapping, error) {
	target, err := expressions.ParsePath(name)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "invalid mapping target %q", name).WithCause(err)
	}

	var source expressions.Expression
	raw := strings.TrimSpace(value)
	if c, ok := mappingKeywords[raw]; ok {
		source = expressions.Constant(raw, c, typ)
	} else if p, perr := expressions.ParsePath(value); perr == nil {
		source = p
	} else {
		if b.parser == nil {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "mapping source %q is not a path", value)
		}
		if source, err = b.parser.Parse(value, typ); err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "invalid mapping source %q", value).WithCause(err)
		}
	}

	return &flow.Mapping{Source: source, Target: target, Required: required, Type: typ}, nil
}

// CreateSubflowAttributeMapper pairs an input and output mapper. Either may be nil.
func (b *Builder) CreateSubflowAttributeMapper(input, output *flow.Mapper) *flow.AttributeMapper {
	return &flow.AttributeMapper{Input: input, Output: output}
}

// BindSubflowMapper sets the attribute mapper of a subflow state.
func (b *Builder) BindSubflowMapper(state *flow.State, mapper *flow.AttributeMapper) error {
	if state == nil {
		return schema.NewError(schema.ErrCodeValidation, "cannot bind mapper to nil state")
	}
	if !state.Is(schema.StateKindSubflow) || state.Subflow == nil {
		return schema.NewErrorf(schema.ErrCodeStateKindMismatch,
			"%s state %q is not a subflow state", state.Kind, state.ID).WithState(state.ID)
	}
	state.Subflow.Mapper = mapper

	var inputs, outputs int
	if mapper != nil {
		inputs, outputs = mapper.Input.Len(), mapper.Output.Len()
	}
	b.log.Debug("subflow mapper bound",
		logging.KeyFlowID, state.FlowID, logging.KeyStateID, state.ID,
		"inputs", inputs, "outputs", outputs)
	return nil
}
