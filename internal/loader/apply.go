package loader

import (
	"context"
	"errors"
	"sort"

	"github.com/rendis/authflow/internal/actions"
	"github.com/rendis/authflow/internal/builder"
	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/internal/logging"
	"github.com/rendis/authflow/pkg/schema"
)

// Applier turns flow documents into flows on a builder.
type Applier struct {
	actions *actions.Registry
}

// NewApplier creates an Applier resolving action names through reg.
func NewApplier(reg *actions.Registry) *Applier {
	return &Applier{actions: reg}
}

// Apply builds docs in order. Documents sharing a flow ID extend the same
// flow. Flows named in any document's multifactor list are built into
// their own registry and spliced with the multifactor recipe. Failures are
// collected and the remaining documents are still applied.
func (a *Applier) Apply(ctx context.Context, b *builder.Builder, docs []*schema.FlowDocument) error {
	providers := make(map[string]bool)
	for _, doc := range docs {
		for _, id := range doc.Multifactor {
			providers[id] = true
		}
	}

	var errs []error
	providerRegs := make(map[string]*flow.Registry)
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := b
		if providers[doc.ID] {
			reg, ok := providerRegs[doc.ID]
			if !ok {
				reg = flow.NewRegistry()
				providerRegs[doc.ID] = reg
			}
			target = builder.New(reg, b.Parser(), builder.Config{Logger: b.Logger()})
		}
		if err := a.applyDocument(target, doc); err != nil {
			errs = append(errs, err)
		}
	}

	for _, doc := range docs {
		if len(doc.Multifactor) == 0 {
			continue
		}
		f, err := b.EnsureFlow(doc.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, id := range doc.Multifactor {
			if err := b.RegisterMultifactorProviderFlow(f, id, providerRegs[id]); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

func (a *Applier) applyDocument(b *builder.Builder, doc *schema.FlowDocument) error {
	f, err := b.EnsureFlow(doc.ID)
	if err != nil {
		return err
	}
	log := b.Logger().With(logging.KeyFlowID, doc.ID)

	var errs []error
	names := make([]string, 0, len(doc.Variables))
	for name := range doc.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		init, err := b.CreateExpression(doc.Variables[name], expressions.TypeAny)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := f.AddVariable(flow.Variable{Name: name, Initial: init}); err != nil {
			errs = append(errs, err)
		}
	}

	for i := range doc.States {
		if err := a.applyState(b, f, &doc.States[i]); err != nil {
			log.Error("state not applied", logging.KeyStateID, doc.States[i].ID, "error", err)
			errs = append(errs, err)
		}
	}

	if doc.Start != "" {
		if err := b.SetStartState(f, doc.Start); err != nil {
			errs = append(errs, err)
		}
	}
	for k, v := range doc.Metadata {
		f.Attributes[k] = v
	}
	return errors.Join(errs...)
}

func (a *Applier) applyState(b *builder.Builder, f *flow.Flow, sd *schema.StateDocument) error {
	created := !b.ContainsFlowState(f, sd.ID)

	s, err := a.createState(b, f, sd)
	if err != nil {
		return err
	}

	if created {
		entry, err := a.buildActions(sd.Entry)
		if err != nil {
			return err
		}
		s.EntryActions = append(s.EntryActions, entry...)
	}

	if !s.Transitionable() {
		return nil
	}
	var errs []error
	for _, td := range sd.Transitions {
		t, err := b.ParseTransition(td.On, td.To)
		if err == nil {
			err = b.AttachTransition(s, t)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if sd.Default != "" {
		b.AddDefaultTransition(s, sd.Default)
	}
	return errors.Join(errs...)
}

func (a *Applier) createState(b *builder.Builder, f *flow.Flow, sd *schema.StateDocument) (*flow.State, error) {
	switch sd.Kind {
	case schema.StateKindAction:
		acts, err := a.buildActions(sd.Actions)
		if err != nil {
			return nil, err
		}
		return b.CreateActionState(f, sd.ID, acts...)

	case schema.StateKindDecision:
		test, err := b.CreateExpression(sd.Test, expressions.TypeBool)
		if err != nil {
			return nil, err
		}
		return b.CreateDecisionState(f, sd.ID, test, sd.Then, sd.Else)

	case schema.StateKindView:
		if sd.ViewExpr != "" {
			expr, err := b.CreateExpression(sd.ViewExpr, expressions.TypeString)
			if err != nil {
				return nil, err
			}
			return b.CreateViewStateExpr(f, sd.ID, expr)
		}
		return b.CreateViewState(f, sd.ID, sd.View)

	case schema.StateKindEnd:
		created := !b.ContainsFlowState(f, sd.ID)
		var s *flow.State
		var err error
		if sd.ViewExpr != "" {
			expr, perr := b.CreateExpression(sd.ViewExpr, expressions.TypeString)
			if perr != nil {
				return nil, perr
			}
			s, err = b.CreateEndStateExpr(f, sd.ID, expr)
		} else {
			s, err = b.CreateEndState(f, sd.ID, sd.View)
		}
		if err != nil || !created || len(sd.Output) == 0 {
			return s, err
		}
		out, err := a.buildMapper(b, sd.Output)
		if err != nil {
			return nil, err
		}
		s.Output = out
		return s, nil

	case schema.StateKindSubflow:
		s, err := b.CreateSubflowState(f, sd.ID, sd.Subflow, nil)
		if err != nil {
			return nil, err
		}
		if len(sd.Input) == 0 && len(sd.Output) == 0 {
			return s, nil
		}
		in, err := a.buildMapper(b, sd.Input)
		if err != nil {
			return nil, err
		}
		out, err := a.buildMapper(b, sd.Output)
		if err != nil {
			return nil, err
		}
		// a later document extends the mappings of an earlier one
		if cur := s.Subflow.Mapper; cur != nil {
			in = b.CreateMapperToSubflowState(append(cur.Input.Mappings(), in.Mappings()...)...)
			out = b.CreateMapperToSubflowState(append(cur.Output.Mappings(), out.Mappings()...)...)
		}
		return s, b.BindSubflowMapper(s, b.CreateSubflowAttributeMapper(in, out))

	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown state kind %q", sd.Kind).WithState(sd.ID)
	}
}

func (a *Applier) buildActions(docs []schema.ActionDocument) ([]flow.Action, error) {
	acts := make([]flow.Action, 0, len(docs))
	for _, ad := range docs {
		if a.actions == nil {
			return nil, schema.NewErrorf(schema.ErrCodeNotFound, "action %q: no action registry", ad.Name)
		}
		act, err := a.actions.Build(ad.Name, ad.Params)
		if err != nil {
			return nil, err
		}
		acts = append(acts, act)
	}
	return acts, nil
}

func (a *Applier) buildMapper(b *builder.Builder, docs []schema.MappingDocument) (*flow.Mapper, error) {
	mappings := make([]*flow.Mapping, 0, len(docs))
	for _, md := range docs {
		typ, err := expressions.ParseType(md.Type)
		if err != nil {
			return nil, err
		}
		m, err := b.CreateMappingToSubflowState(md.Name, md.Value, md.Required, typ)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return b.CreateMapperToSubflowState(mappings...), nil
}
