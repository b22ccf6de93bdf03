package validation

import (
	"fmt"

	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/pkg/schema"
)

// validateSemantic performs semantic analysis on a flow document.
// Checks: unique state IDs, action names registered, expressions compile,
// mapping paths and types parse. Targets outside the document are only
// warnings because several documents may extend one flow.
func validateSemantic(doc *schema.FlowDocument, lookup ActionLookup, exprs ExpressionChecker) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	stateIDs := make(map[string]bool, len(doc.States))
	for i, s := range doc.States {
		if stateIDs[s.ID] {
			result.AddError(fmt.Sprintf("states[%d].id", i), schema.ErrCodeConflict,
				fmt.Sprintf("duplicate state ID %q", s.ID))
		}
		stateIDs[s.ID] = true
	}

	if doc.Start != "" && !stateIDs[doc.Start] {
		result.AddWarning("start", schema.ErrCodeUnresolvedTarget,
			fmt.Sprintf("start state %q is not declared in this document", doc.Start))
	}

	for name, raw := range doc.Variables {
		if expressions.IsReservedKey(name) {
			result.AddError("variables."+name, schema.ErrCodeValidation,
				fmt.Sprintf("variable %q shadows a reserved evaluation key", name))
			continue
		}
		checkExpression("variables."+name, raw, exprs, result)
	}

	for i := range doc.States {
		path := fmt.Sprintf("states[%d]", i)
		validateStateSemantic(&doc.States[i], path, stateIDs, lookup, exprs, result)
	}

	seen := make(map[string]bool, len(doc.Multifactor))
	for i, id := range doc.Multifactor {
		if seen[id] {
			result.AddWarning(fmt.Sprintf("multifactor[%d]", i), schema.ErrCodeConflict,
				fmt.Sprintf("multifactor provider %q listed more than once", id))
		}
		seen[id] = true
	}

	return result
}

func validateStateSemantic(s *schema.StateDocument, path string, stateIDs map[string]bool, lookup ActionLookup, exprs ExpressionChecker, result *schema.ValidationResult) {
	checkActions(path+".actions", s.Actions, lookup, result)
	checkActions(path+".entry", s.Entry, lookup, result)

	switch s.Kind {
	case schema.StateKindAction:
		if len(s.Actions) == 0 {
			result.AddWarning(path+".actions", schema.ErrCodeValidation,
				"action state has no actions and will always signal success")
		}
	case schema.StateKindDecision:
		checkExpression(path+".test", s.Test, exprs, result)
		checkTarget(path+".then", s.Then, stateIDs, result)
		checkTarget(path+".else", s.Else, stateIDs, result)
	case schema.StateKindView:
		if s.ViewExpr != "" {
			checkExpression(path+".view_expr", s.ViewExpr, exprs, result)
		}
	case schema.StateKindSubflow:
		checkMappings(path+".input", s.Input, result)
		checkMappings(path+".output", s.Output, result)
	}

	if s.Kind != schema.StateKindSubflow && (len(s.Input) > 0 || len(s.Output) > 0) {
		result.AddWarning(path, schema.ErrCodeValidation,
			fmt.Sprintf("%s state ignores input/output mappings", s.Kind))
	}

	for j, t := range s.Transitions {
		tpath := fmt.Sprintf("%s.transitions[%d]", path, j)
		if p, ok := exprs.(*expressions.Parser); ok && p.HasDialect(t.On) {
			checkExpression(tpath+".on", t.On, exprs, result)
		}
		checkTarget(tpath+".to", t.To, stateIDs, result)
	}
	if s.Default != "" {
		checkTarget(path+".default", s.Default, stateIDs, result)
	}
}

func checkActions(path string, actions []schema.ActionDocument, lookup ActionLookup, result *schema.ValidationResult) {
	if lookup == nil {
		return
	}
	for i, a := range actions {
		if !lookup.Has(a.Name) {
			result.AddError(fmt.Sprintf("%s[%d].name", path, i), schema.ErrCodeNotFound,
				fmt.Sprintf("action %q not registered", a.Name))
		}
	}
}

func checkExpression(path, raw string, exprs ExpressionChecker, result *schema.ValidationResult) {
	if exprs == nil {
		return
	}
	if err := exprs.Check(raw); err != nil {
		result.AddError(path, schema.ErrCodeExpression, err.Error())
	}
}

func checkTarget(path, target string, stateIDs map[string]bool, result *schema.ValidationResult) {
	if target == "" || stateIDs[target] {
		return
	}
	result.AddWarning(path, schema.ErrCodeUnresolvedTarget,
		fmt.Sprintf("target %q is not declared in this document", target))
}

func checkMappings(path string, mappings []schema.MappingDocument, result *schema.ValidationResult) {
	for i, m := range mappings {
		mpath := fmt.Sprintf("%s[%d]", path, i)
		if _, err := expressions.ParsePath(m.Name); err != nil {
			result.AddError(mpath+".name", schema.ErrCodeValidation, err.Error())
		}
		if _, err := expressions.ParsePath(m.Value); err != nil {
			result.AddError(mpath+".value", schema.ErrCodeValidation, err.Error())
		}
		if _, err := expressions.ParseType(m.Type); err != nil {
			result.AddError(mpath+".type", schema.ErrCodeValidation, err.Error())
		}
	}
}
