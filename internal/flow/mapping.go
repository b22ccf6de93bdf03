package flow

import (
	"context"

	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/pkg/schema"
)

// Mapping copies one value across a flow boundary: Source is evaluated
// against the source data, coerced to Type and assigned at Target.
type Mapping struct {
	Source   expressions.Expression
	Target   *expressions.PathExpression
	Required bool
	Type     expressions.Type
}

// Apply evaluates the mapping. Failures of a required mapping return a
// MAPPING_FAILED error; failures of an optional one report applied=false.
func (m *Mapping) Apply(ctx context.Context, source, target map[string]any) (applied bool, err error) {
	fail := func(reason string, cause error) (bool, error) {
		if !m.Required {
			return false, nil
		}
		e := schema.NewErrorf(schema.ErrCodeMappingFailed,
			"required mapping %s -> %s failed: %s", m.Source, m.Target, reason).
			WithDetails(map[string]any{"source": m.Source.String(), "target": m.Target.String()})
		if cause != nil {
			e = e.WithCause(cause)
		}
		return false, e
	}

	val, err := m.Source.Evaluate(ctx, source)
	if err != nil {
		return fail("evaluation error", err)
	}
	if val == nil {
		return fail("no value", nil)
	}
	val, err = expressions.Coerce(val, m.Type)
	if err != nil {
		return fail("type conversion", err)
	}
	if err := m.Target.Assign(target, val); err != nil {
		return fail("assignment", err)
	}
	return true, nil
}

// MappingResult lists target paths applied and skipped by a Mapper.
type MappingResult struct {
	Applied []string
	Skipped []string
}

// Mapper is an ordered list of mappings.
type Mapper struct {
	mappings []*Mapping
}

// NewMapper creates a mapper over mappings, skipping nils.
func NewMapper(mappings ...*Mapping) *Mapper {
	m := &Mapper{}
	for _, mp := range mappings {
		m.Add(mp)
	}
	return m
}

// Add appends a mapping.
func (m *Mapper) Add(mp *Mapping) {
	if mp != nil {
		m.mappings = append(m.mappings, mp)
	}
}

// Mappings returns the mappings in order.
func (m *Mapper) Mappings() []*Mapping {
	if m == nil {
		return nil
	}
	return append([]*Mapping(nil), m.mappings...)
}

// Len returns the number of mappings.
func (m *Mapper) Len() int {
	if m == nil {
		return 0
	}
	return len(m.mappings)
}

// Map applies every mapping in order and stops at the first required failure.
func (m *Mapper) Map(ctx context.Context, source, target map[string]any) (MappingResult, error) {
	var res MappingResult
	if m == nil {
		return res, nil
	}
	for _, mp := range m.mappings {
		ok, err := mp.Apply(ctx, source, target)
		if err != nil {
			return res, err
		}
		if ok {
			res.Applied = append(res.Applied, mp.Target.String())
		} else {
			res.Skipped = append(res.Skipped, mp.Target.String())
		}
	}
	return res, nil
}

// AttributeMapper pairs the input mapper (parent to child) with the output
// mapper (child to parent) of a subflow state.
type AttributeMapper struct {
	Input  *Mapper
	Output *Mapper
}

// CreateSubflowInput builds the initial scope of a subflow. The child sees
// only what the input mapper copies; nothing else crosses the boundary.
func (a *AttributeMapper) CreateSubflowInput(ctx context.Context, parent map[string]any) (map[string]any, MappingResult, error) {
	input := make(map[string]any)
	if a == nil {
		return input, MappingResult{}, nil
	}
	res, err := a.Input.Map(ctx, parent, input)
	if err != nil {
		return nil, res, err
	}
	return input, res, nil
}

// MapSubflowOutput copies child output into the parent scope.
func (a *AttributeMapper) MapSubflowOutput(ctx context.Context, child map[string]any, parent *expressions.Scope) (MappingResult, error) {
	if a == nil || a.Output.Len() == 0 {
		return MappingResult{}, nil
	}
	var res MappingResult
	err := parent.Update(func(vars map[string]any) error {
		var err error
		res, err = a.Output.Map(ctx, child, vars)
		return err
	})
	return res, err
}
