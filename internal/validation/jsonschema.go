package validation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/authflow/pkg/schema"
)

const flowSchemaURL = "https://authflow.dev/schemas/flow.json"

//go:embed flow.schema.json
var flowSchemaJSON []byte

// Violation is one leaf failure reported by the flow document schema.
// Path uses the same notation as semantic issues: "states[2].kind".
type Violation struct {
	Path    string
	Message string
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + ": " + v.Message
}

// JSONSchemaValidator checks the shape of flow documents against a Draft
// 2020-12 schema. Safe for concurrent use.
type JSONSchemaValidator struct {
	flowSchema *jsonschema.Schema
}

func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(flowSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("flow schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource(flowSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("flow schema: %w", err)
	}
	compiled, err := c.Compile(flowSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("flow schema: %w", err)
	}
	return &JSONSchemaValidator{flowSchema: compiled}, nil
}

// Violations lists every schema failure of doc, a *schema.FlowDocument or a
// map decoded from JSON or YAML. A nil slice means the document conforms.
func (v *JSONSchemaValidator) Violations(doc any) ([]Violation, error) {
	if doc == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "flow document is nil")
	}
	// round-trip so numbers reach the validator as json.Number
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "flow document is not serializable").WithCause(err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "flow document is not serializable").WithCause(err)
	}

	err = v.flowSchema.Validate(inst)
	var verr *jsonschema.ValidationError
	switch {
	case err == nil:
		return nil, nil
	case errors.As(err, &verr):
		return leafViolations(verr, nil), nil
	default:
		return []Violation{{Message: err.Error()}}, nil
	}
}

func leafViolations(verr *jsonschema.ValidationError, out []Violation) []Violation {
	if len(verr.Causes) == 0 {
		return append(out, Violation{Path: instancePath(verr.InstanceLocation), Message: verr.Error()})
	}
	for _, c := range verr.Causes {
		out = leafViolations(c, out)
	}
	return out
}

// instancePath turns ["states","2","kind"] into "states[2].kind".
func instancePath(loc []string) string {
	var b strings.Builder
	for _, seg := range loc {
		if _, err := strconv.Atoi(seg); err == nil {
			b.WriteString("[" + seg + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}
