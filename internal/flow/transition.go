package flow

import (
	"context"

	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/pkg/schema"
)

// CriteriaKind distinguishes how a transition matches an event.
type CriteriaKind int

const (
	CriteriaWildcard CriteriaKind = iota
	CriteriaLiteral
	CriteriaPredicate
)

func (k CriteriaKind) String() string {
	switch k {
	case CriteriaWildcard:
		return "wildcard"
	case CriteriaLiteral:
		return "literal"
	case CriteriaPredicate:
		return "predicate"
	default:
		return "unknown"
	}
}

// Criteria decides whether a transition fires.
type Criteria struct {
	Kind      CriteriaKind
	Outcome   string                 // literal
	Predicate expressions.Expression // predicate
}

// WildcardCriteria matches any event.
func WildcardCriteria() Criteria {
	return Criteria{Kind: CriteriaWildcard, Outcome: schema.WildcardEventID}
}

// LiteralCriteria matches an event whose ID equals outcome exactly.
func LiteralCriteria(outcome string) Criteria {
	if outcome == schema.WildcardEventID {
		return WildcardCriteria()
	}
	return Criteria{Kind: CriteriaLiteral, Outcome: outcome}
}

// PredicateCriteria matches when expr evaluates to true.
func PredicateCriteria(expr expressions.Expression) Criteria {
	return Criteria{Kind: CriteriaPredicate, Predicate: expr}
}

func (c Criteria) String() string {
	if c.Kind == CriteriaPredicate && c.Predicate != nil {
		return c.Predicate.String()
	}
	return c.Outcome
}

// Matches evaluates the criteria for event. Predicates see data; a non-bool
// or nil result does not match.
func (c Criteria) Matches(ctx context.Context, event string, data map[string]any) (bool, error) {
	switch c.Kind {
	case CriteriaWildcard:
		return true, nil
	case CriteriaLiteral:
		return event == c.Outcome, nil
	case CriteriaPredicate:
		if c.Predicate == nil {
			return false, nil
		}
		out, err := c.Predicate.Evaluate(ctx, data)
		if err != nil {
			return false, err
		}
		b, ok := out.(bool)
		return ok && b, nil
	default:
		return false, nil
	}
}

// Transition is a criteria to target edge. Target is a state ID resolved
// lazily against the owning flow.
type Transition struct {
	Criteria   Criteria
	Target     string
	Attributes map[string]any
}

// NewTransition creates a transition.
func NewTransition(c Criteria, target string) *Transition {
	return &Transition{Criteria: c, Target: target}
}

// Resolve looks the target up in f.
func (t *Transition) Resolve(f *Flow) (*State, error) {
	s, ok := f.State(t.Target)
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeUnresolvedTarget,
			"transition on %q targets unknown state %q in flow %q", t.Criteria.String(), t.Target, f.ID).
			WithDetails(map[string]any{"target": t.Target, "flow": f.ID})
	}
	return s, nil
}

// TransitionSet is an ordered set of transitions. At most one wildcard is
// held and it is always last.
type TransitionSet struct {
	items []*Transition
}

// Add inserts t. A wildcard replaces any previous wildcard. A literal or
// predicate whose criteria already exists is ignored. Returns whether the
// set changed.
func (ts *TransitionSet) Add(t *Transition) bool {
	if t == nil {
		return false
	}
	n := len(ts.items)
	hasWildcard := n > 0 && ts.items[n-1].Criteria.Kind == CriteriaWildcard

	if t.Criteria.Kind == CriteriaWildcard {
		if hasWildcard {
			ts.items[n-1] = t
		} else {
			ts.items = append(ts.items, t)
		}
		return true
	}

	for _, existing := range ts.items {
		if existing.Criteria.Kind == t.Criteria.Kind && existing.Criteria.String() == t.Criteria.String() {
			return false
		}
	}

	if hasWildcard {
		wildcard := ts.items[n-1]
		ts.items = append(ts.items[:n-1], t, wildcard)
	} else {
		ts.items = append(ts.items, t)
	}
	return true
}

// Find returns the transition whose literal outcome equals outcome, or the
// wildcard when outcome is "*".
func (ts *TransitionSet) Find(outcome string) (*Transition, bool) {
	for _, t := range ts.items {
		if t.Criteria.Kind != CriteriaPredicate && t.Criteria.Outcome == outcome {
			return t, true
		}
	}
	return nil, false
}

// Wildcard returns the wildcard transition, if any.
func (ts *TransitionSet) Wildcard() (*Transition, bool) {
	if n := len(ts.items); n > 0 && ts.items[n-1].Criteria.Kind == CriteriaWildcard {
		return ts.items[n-1], true
	}
	return nil, false
}

// All returns the transitions in match order.
func (ts *TransitionSet) All() []*Transition {
	return append([]*Transition(nil), ts.items...)
}

// Len returns the number of transitions.
func (ts *TransitionSet) Len() int {
	return len(ts.items)
}

// Select returns the first transition matching event, or nil when none does.
func (ts *TransitionSet) Select(ctx context.Context, event string, data map[string]any) (*Transition, error) {
	for _, t := range ts.items {
		ok, err := t.Criteria.Matches(ctx, event, data)
		if err != nil {
			return nil, err
		}
		if ok {
			return t, nil
		}
	}
	return nil, nil
}
