package actions

import (
	"github.com/rendis/authflow/internal/flow"
)

// Factory builds flow actions from the static params a flow document
// attaches to an action reference.
type Factory interface {
	Name() string
	Schema() ActionSchema
	Validate(params map[string]any) error
	New(params map[string]any) (flow.Action, error)
}

// ActionSchema describes the params accepted by a factory.
type ActionSchema struct {
	Description string   `json:"description,omitempty"`
	Required    []string `json:"required,omitempty"`
	Optional    []string `json:"optional,omitempty"`
}

// ActionInfo is a summary of a registered factory for listing.
type ActionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
