package flow

import (
	"context"

	"github.com/rendis/authflow/internal/expressions"
)

// View is a rendered user-facing step.
type View struct {
	Name  string         `json:"name"`
	Model map[string]any `json:"model,omitempty"`
}

// ViewFactory produces the view of a view or end state.
type ViewFactory interface {
	ViewID() expressions.Expression
	Render(ctx context.Context, rc *RequestContext) (*View, error)
}
