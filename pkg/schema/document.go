package schema

// FlowDocument is the declarative JSON/YAML definition of a flow.
// Documents sharing an ID extend the same flow.
type FlowDocument struct {
	ID          string            `json:"id" yaml:"id" mapstructure:"id"`
	Start       string            `json:"start,omitempty" yaml:"start,omitempty" mapstructure:"start"`
	Variables   map[string]string `json:"variables,omitempty" yaml:"variables,omitempty" mapstructure:"variables"`
	States      []StateDocument   `json:"states,omitempty" yaml:"states,omitempty" mapstructure:"states"`
	Multifactor []string          `json:"multifactor,omitempty" yaml:"multifactor,omitempty" mapstructure:"multifactor"`
	Metadata    map[string]any    `json:"metadata,omitempty" yaml:"metadata,omitempty" mapstructure:"metadata"`
}

// StateKind enumerates the kinds of states in a flow graph.
type StateKind string

const (
	StateKindAction   StateKind = "action"
	StateKindDecision StateKind = "decision"
	StateKindView     StateKind = "view"
	StateKindEnd      StateKind = "end"
	StateKindSubflow  StateKind = "subflow"
)

// StateDocument describes a single state. Which fields apply depends on Kind.
type StateDocument struct {
	ID          string               `json:"id" yaml:"id" mapstructure:"id"`
	Kind        StateKind            `json:"kind" yaml:"kind" mapstructure:"kind"`
	Actions     []ActionDocument     `json:"actions,omitempty" yaml:"actions,omitempty" mapstructure:"actions"`
	Entry       []ActionDocument     `json:"entry,omitempty" yaml:"entry,omitempty" mapstructure:"entry"`
	View        string               `json:"view,omitempty" yaml:"view,omitempty" mapstructure:"view"`                // literal view id
	ViewExpr    string               `json:"view_expr,omitempty" yaml:"view_expr,omitempty" mapstructure:"view_expr"` // expression yielding the view id
	Test        string               `json:"test,omitempty" yaml:"test,omitempty" mapstructure:"test"`
	Then        string               `json:"then,omitempty" yaml:"then,omitempty" mapstructure:"then"`
	Else        string               `json:"else,omitempty" yaml:"else,omitempty" mapstructure:"else"`
	Subflow     string               `json:"subflow,omitempty" yaml:"subflow,omitempty" mapstructure:"subflow"`
	Input       []MappingDocument    `json:"input,omitempty" yaml:"input,omitempty" mapstructure:"input"`
	Output      []MappingDocument    `json:"output,omitempty" yaml:"output,omitempty" mapstructure:"output"`
	Transitions []TransitionDocument `json:"transitions,omitempty" yaml:"transitions,omitempty" mapstructure:"transitions"`
	Default     string               `json:"default,omitempty" yaml:"default,omitempty" mapstructure:"default"`
}

// ActionDocument references a registered action by name with static params.
type ActionDocument struct {
	Name   string         `json:"name" yaml:"name" mapstructure:"name"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`
}

// TransitionDocument is an outcome to target edge. On may be a literal
// outcome, "*" or an expression prefixed with "expr:", "cel:" or "jq:".
type TransitionDocument struct {
	On string `json:"on" yaml:"on" mapstructure:"on"`
	To string `json:"to" yaml:"to" mapstructure:"to"`
}

// MappingDocument is a single parent/subflow boundary mapping.
type MappingDocument struct {
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
	Value    string `json:"value" yaml:"value" mapstructure:"value"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty" mapstructure:"required"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty" mapstructure:"type"`
}
