package expressions

import (
	"strings"

	"github.com/rendis/authflow/pkg/schema"
	"github.com/spf13/cast"
)

// Type is the expected result type of an expression or mapping.
type Type string

const (
	TypeAny         Type = ""
	TypeString      Type = "string"
	TypeBool        Type = "bool"
	TypeInt         Type = "int"
	TypeInt64       Type = "int64"
	TypeFloat       Type = "float"
	TypeDuration    Type = "duration"
	TypeStringSlice Type = "[]string"
	TypeMap         Type = "map"
)

var typeAliases = map[string]Type{
	"":         TypeAny,
	"any":      TypeAny,
	"object":   TypeAny,
	"string":   TypeString,
	"bool":     TypeBool,
	"boolean":  TypeBool,
	"int":      TypeInt,
	"integer":  TypeInt,
	"int64":    TypeInt64,
	"long":     TypeInt64,
	"float":    TypeFloat,
	"float64":  TypeFloat,
	"double":   TypeFloat,
	"duration": TypeDuration,
	"[]string": TypeStringSlice,
	"list":     TypeStringSlice,
	"map":      TypeMap,
}

// ParseType resolves a type name, accepting common aliases ("boolean", "long", "double").
func ParseType(name string) (Type, error) {
	t, ok := typeAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return TypeAny, schema.NewErrorf(schema.ErrCodeValidation, "unknown type %q", name)
	}
	return t, nil
}

// Coerce converts v to the target type. Nil stays nil for every type; the
// caller decides whether a missing value is acceptable.
func Coerce(v any, t Type) (any, error) {
	if v == nil || t == TypeAny {
		return v, nil
	}

	var (
		out any
		err error
	)
	switch t {
	case TypeString:
		out, err = cast.ToStringE(v)
	case TypeBool:
		out, err = cast.ToBoolE(v)
	case TypeInt:
		out, err = cast.ToIntE(v)
	case TypeInt64:
		out, err = cast.ToInt64E(v)
	case TypeFloat:
		out, err = cast.ToFloat64E(v)
	case TypeDuration:
		out, err = cast.ToDurationE(v)
	case TypeStringSlice:
		out, err = cast.ToStringSliceE(v)
	case TypeMap:
		out, err = cast.ToStringMapE(v)
	default:
		return nil, schema.NewErrorf(schema.ErrCodeCoercion, "unsupported target type %q", t)
	}
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeCoercion,
			"cannot convert %T to %s", v, t).
			WithCause(err).
			WithDetails(map[string]any{"type": string(t)})
	}
	return out, nil
}
