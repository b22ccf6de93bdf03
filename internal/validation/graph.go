package validation

import (
	"fmt"

	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/pkg/schema"
)

// ValidateGraph checks a built flow. Errors: missing start state, targets
// that do not resolve, a wildcard that is not the last transition, subflow
// states without a flow reference or naming a flow absent from reg.
// Warnings: states unreachable from the start state and transitionable
// states without transitions. reg may be nil to skip subflow lookups.
// Cycles are legal.
func ValidateGraph(f *flow.Flow, reg *flow.Registry) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if f == nil {
		result.AddError("/", schema.ErrCodeValidation, "flow is nil")
		return result
	}

	start, err := f.StartState()
	if err != nil {
		result.AddError(f.ID+".start", schema.ErrCodeUnresolvedTarget, err.Error())
	}

	for _, s := range f.States() {
		path := f.ID + "." + s.ID
		if !s.Transitionable() {
			continue
		}
		checkTransitions(f, s, path, result)
		if s.Is(schema.StateKindSubflow) {
			checkSubflow(s, path, reg, result)
		}
	}

	if start != nil {
		reachable := reachableFrom(f, start.ID)
		for _, id := range f.StateIDs() {
			if !reachable[id] {
				result.AddWarning(f.ID+"."+id, schema.ErrCodeValidation,
					fmt.Sprintf("state %q is unreachable from start state %q", id, start.ID))
			}
		}
	}

	return result
}

// ValidateRegistry runs ValidateGraph over every flow in reg.
func ValidateRegistry(reg *flow.Registry) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	for _, id := range reg.IDs() {
		f, err := reg.Get(id)
		if err != nil {
			continue
		}
		result.Merge(ValidateGraph(f, reg))
	}
	return result
}

func checkTransitions(f *flow.Flow, s *flow.State, path string, result *schema.ValidationResult) {
	all := s.Transitions.All()
	if len(all) == 0 {
		result.AddWarning(path, schema.ErrCodeNoMatchingTransition,
			fmt.Sprintf("%s state %q has no outgoing transitions", s.Kind, s.ID))
		return
	}
	for i, t := range all {
		tpath := fmt.Sprintf("%s.transitions[%d]", path, i)
		if t.Criteria.Kind == flow.CriteriaWildcard && i != len(all)-1 {
			result.AddError(tpath, schema.ErrCodeInvalidTransition,
				"wildcard transition must be the last transition")
		}
		if _, err := t.Resolve(f); err != nil {
			result.AddError(tpath, schema.ErrCodeUnresolvedTarget, err.Error())
		}
	}
}

func checkSubflow(s *flow.State, path string, reg *flow.Registry, result *schema.ValidationResult) {
	if s.Subflow == nil || s.Subflow.FlowID == nil {
		result.AddError(path+".subflow", schema.ErrCodeValidation,
			fmt.Sprintf("subflow state %q has no flow reference", s.ID))
		return
	}
	if reg == nil || !expressions.IsLiteral(s.Subflow.FlowID) {
		return
	}
	if id := s.Subflow.FlowID.String(); !reg.Contains(id) {
		result.AddError(path+".subflow", schema.ErrCodeNotFound,
			fmt.Sprintf("subflow %q is not registered", id))
	}
}

// reachableFrom does a BFS over resolvable transition targets.
func reachableFrom(f *flow.Flow, startID string) map[string]bool {
	visited := map[string]bool{startID: true}
	queue := []string{startID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		s, ok := f.State(id)
		if !ok || !s.Transitionable() {
			continue
		}
		for _, t := range s.Transitions.All() {
			if visited[t.Target] || !f.ContainsState(t.Target) {
				continue
			}
			visited[t.Target] = true
			queue = append(queue, t.Target)
		}
	}
	return visited
}
