// Package views creates the view factories bound to view and end states and
// the final-response action that renders an end state's view.
package views

import (
	"context"

	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/pkg/schema"
)

// Creator builds view factories from view ID expressions.
type Creator interface {
	CreateViewFactory(viewID expressions.Expression) (flow.ViewFactory, error)
}

// DefaultCreator renders views whose model is a snapshot of the flow scope
// filtered to ModelKeys (all variables when empty).
type DefaultCreator struct {
	ModelKeys []string
}

// NewCreator returns a DefaultCreator.
func NewCreator(modelKeys ...string) *DefaultCreator {
	return &DefaultCreator{ModelKeys: modelKeys}
}

// CreateViewFactory rejects a nil expression.
func (c *DefaultCreator) CreateViewFactory(viewID expressions.Expression) (flow.ViewFactory, error) {
	if viewID == nil {
		return nil, schema.NewError(schema.ErrCodeStateCreation, "view id expression is required")
	}
	return &Factory{id: viewID, modelKeys: c.ModelKeys}, nil
}

// Factory is the flow.ViewFactory produced by DefaultCreator.
type Factory struct {
	id        expressions.Expression
	modelKeys []string
}

// ViewID returns the view ID expression.
func (f *Factory) ViewID() expressions.Expression {
	return f.id
}

// Render evaluates the view ID against the request and snapshots the model.
func (f *Factory) Render(ctx context.Context, rc *flow.RequestContext) (*flow.View, error) {
	data := rc.Data()
	out, err := f.id.Evaluate(ctx, data)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExecution, "cannot resolve view id %q", f.id.String()).
			WithState(rc.StateID).WithCause(err)
	}
	name, err := expressions.Coerce(out, expressions.TypeString)
	if err != nil || name == nil || name == "" {
		return nil, schema.NewErrorf(schema.ErrCodeExecution, "view id %q resolved to %v", f.id.String(), out).
			WithState(rc.StateID)
	}

	model, _ := data[expressions.KeyFlow].(map[string]any)
	if len(f.modelKeys) > 0 {
		filtered := make(map[string]any, len(f.modelKeys))
		for _, k := range f.modelKeys {
			if v, ok := model[k]; ok {
				filtered[k] = v
			}
		}
		model = filtered
	}
	return &flow.View{Name: name.(string), Model: model}, nil
}

// FinalResponseAction renders an end state's view exactly once, when the
// flow ends, and records it on the request context.
type FinalResponseAction struct {
	Factory flow.ViewFactory
}

// NewFinalResponseAction wraps vf.
func NewFinalResponseAction(vf flow.ViewFactory) *FinalResponseAction {
	return &FinalResponseAction{Factory: vf}
}

func (a *FinalResponseAction) Name() string { return "render" }

func (a *FinalResponseAction) Execute(ctx context.Context, rc *flow.RequestContext) (flow.Event, error) {
	if rc.View != nil {
		return flow.Event{ID: schema.TransitionSuccess}, nil
	}
	v, err := a.Factory.Render(ctx, rc)
	if err != nil {
		return flow.Event{}, err
	}
	rc.View = v
	return flow.Event{ID: schema.TransitionSuccess, Attributes: map[string]any{"view": v.Name}}, nil
}

var (
	_ Creator     = (*DefaultCreator)(nil)
	_ flow.Action = (*FinalResponseAction)(nil)
)
