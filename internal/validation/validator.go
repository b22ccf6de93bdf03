package validation

import (
	"github.com/rendis/authflow/pkg/schema"
)

// Validator validates flow documents.
type Validator interface {
	Validate(doc *schema.FlowDocument) *schema.ValidationResult
}

// ActionLookup reports whether an action name is registered.
type ActionLookup interface {
	Has(name string) bool
}

// ExpressionChecker compiles an expression without evaluating it.
type ExpressionChecker interface {
	Check(expression string) error
}

// DocumentValidator orchestrates the two-stage document pipeline:
// 1. Structural (JSON Schema)
// 2. Semantic (per-kind fields, action refs, expressions, local targets)
//
// Graph-level checks need the built flow and live in ValidateGraph.
type DocumentValidator struct {
	jsonSchema *JSONSchemaValidator
	actions    ActionLookup
	exprs      ExpressionChecker
}

// NewDocumentValidator creates a DocumentValidator. actions and exprs may be
// nil to skip those checks.
func NewDocumentValidator(actions ActionLookup, exprs ExpressionChecker) (*DocumentValidator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &DocumentValidator{jsonSchema: jsv, actions: actions, exprs: exprs}, nil
}

// ValidateRaw runs the structural stage on a generically decoded document.
// Loaders call this before decoding into schema.FlowDocument.
func (v *DocumentValidator) ValidateRaw(raw any) *schema.ValidationResult {
	return validateStructural(v.jsonSchema, raw)
}

// Validate runs both stages on a decoded document. Structural errors
// short-circuit the semantic stage.
func (v *DocumentValidator) Validate(doc *schema.FlowDocument) *schema.ValidationResult {
	if doc == nil {
		r := &schema.ValidationResult{}
		r.AddError("/", schema.ErrCodeValidation, "flow document is nil")
		return r
	}

	result := validateStructural(v.jsonSchema, doc)
	if !result.Valid() {
		return result
	}
	result.Merge(validateSemantic(doc, v.actions, v.exprs))
	return result
}

func validateStructural(v *JSONSchemaValidator, doc any) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	violations, err := v.Violations(doc)
	if err != nil {
		result.AddError("", schema.ErrCodeValidation, err.Error())
		return result
	}
	for _, x := range violations {
		result.AddError(x.Path, schema.ErrCodeValidation, x.Message)
	}
	return result
}
