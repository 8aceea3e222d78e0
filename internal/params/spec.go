// Package params holds the parameter registry: the static catalogue of
// extractable financial parameters, their categories, expected types and
// validation predicates. The registry is assembled once at startup and
// read-only afterwards, so concurrent per-parameter extractions can
// consult it without locking.
package params

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry operations.
var (
	// ErrUnknownParameter is returned when no spec exists for an id.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrDuplicateParameter is returned when registering an id twice.
	ErrDuplicateParameter = errors.New("duplicate parameter")

	// ErrSealed is returned when registering after the registry is sealed.
	ErrSealed = errors.New("registry is sealed")
)

// Category classifies how a parameter is extracted. It is fixed data on
// the spec, never inferred per call.
type Category int

const (
	// Direct parameters map to a single pre-computed report field.
	Direct Category = iota
	// Flag parameters are boolean keyword checks over account remarks.
	Flag
	// Derived parameters are computed from the full report.
	Derived
	// NotApplicable parameters are policy values absent from documents.
	NotApplicable
)

// String returns the wire form of the category.
func (c Category) String() string {
	switch c {
	case Direct:
		return "direct"
	case Flag:
		return "flag"
	case Derived:
		return "derived"
	case NotApplicable:
		return "not_applicable"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// ValueType is the expected Go type of an extracted value.
type ValueType int

const (
	// TypeNull is used by NotApplicable parameters: the value is always nil.
	TypeNull ValueType = iota
	// TypeInt expects an int value.
	TypeInt
	// TypeFloat expects a float64 value.
	TypeFloat
	// TypeBool expects a bool value.
	TypeBool
)

// String returns the wire form of the value type.
func (t ValueType) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Matches reports whether v (nil, int, float64 or bool) conforms to the
// expected type. Nil matches every type: absence is always representable.
func (t ValueType) Matches(v any) bool {
	if v == nil {
		return true
	}
	switch t {
	case TypeInt:
		_, ok := v.(int)
		return ok
	case TypeFloat:
		_, ok := v.(float64)
		return ok
	case TypeBool:
		_, ok := v.(bool)
		return ok
	case TypeNull:
		return false // non-nil never matches null
	default:
		return false
	}
}

// Validator is a custom predicate applied to a non-nil value after the
// type check passes.
type Validator func(v any) bool

// Spec describes a single extractable parameter. Specs are immutable
// once registered.
type Spec struct {
	ID             string
	Name           string
	Description    string
	Category       Category
	Type           ValueType
	AllowedSources []string
	Validator      Validator
}

// Validate checks a candidate value against the spec: nil is always
// valid, otherwise the type must match and the custom predicate (when
// present) must accept the value.
func (s *Spec) Validate(v any) bool {
	if v == nil {
		return true
	}
	if !s.Type.Matches(v) {
		return false
	}
	if s.Validator != nil && !s.Validator(v) {
		return false
	}
	return true
}

// Query returns the retrieval query string built from the parameter's
// name and description.
func (s *Spec) Query() string {
	return s.Name + ": " + s.Description
}
