// Package schema builds the JSON Schema documents sent to providers as
// structured-output contracts.
//
// Builders are fluent and compose by nesting:
//
//	s := schema.Object().
//	    Field("verdict", schema.String().Enum("A", "B").Required()).
//	    Field("logs", schema.Array(schema.String())).
//	    MustBuild()
//
// Object builders remember the order fields were added and emit it as
// "propertyOrdering", which Gemini uses to order generated keys.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Builder is the interface implemented by all schema builders.
type Builder interface {
	// Build serializes the schema to json.RawMessage.
	// Returns an error if the schema is invalid.
	Build() (json.RawMessage, error)

	// MustBuild is like Build but panics on error.
	MustBuild() json.RawMessage

	// schema returns the internal representation for composition.
	schema() *schemaNode
}

// schemaNode is the internal representation of a JSON Schema.
type schemaNode struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Enum        []any  `json:"enum,omitempty"`

	Minimum *float64 `json:"minimum,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`

	Items    *schemaNode `json:"items,omitempty"`
	MinItems *int        `json:"minItems,omitempty"`
	MaxItems *int        `json:"maxItems,omitempty"`

	Properties       map[string]*schemaNode `json:"properties,omitempty"`
	Required         []string               `json:"required,omitempty"`
	PropertyOrdering []string               `json:"propertyOrdering,omitempty"`
}

// Sentinel errors for schema validation.
var (
	// ErrInvalidRange is returned when min exceeds max.
	ErrInvalidRange = errors.New("schema: minimum exceeds maximum")

	// ErrNilItems is returned when an array has no items schema.
	ErrNilItems = errors.New("schema: array requires items schema")
)

// ValidationError represents a schema validation failure.
type ValidationError struct {
	Field   string // The field name (for objects)
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema: field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("schema: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (s *schemaNode) validate() error {
	switch s.Type {
	case "integer", "number":
		if s.Minimum != nil && s.Maximum != nil && *s.Minimum > *s.Maximum {
			return &ValidationError{Message: "minimum exceeds maximum", Err: ErrInvalidRange}
		}

	case "array":
		if s.Items == nil {
			return &ValidationError{Message: "array requires items schema", Err: ErrNilItems}
		}
		if s.MinItems != nil && s.MaxItems != nil && *s.MinItems > *s.MaxItems {
			return &ValidationError{Message: "minItems exceeds maxItems", Err: ErrInvalidRange}
		}
		if err := s.Items.validate(); err != nil {
			return &ValidationError{Message: fmt.Sprintf("invalid items schema: %v", err), Err: err}
		}

	case "object":
		for _, name := range s.PropertyOrdering {
			if err := s.Properties[name].validate(); err != nil {
				return &ValidationError{Field: name, Message: err.Error(), Err: err}
			}
		}
	}
	return nil
}

func build(n *schemaNode) (json.RawMessage, error) {
	if err := n.validate(); err != nil {
		return nil, err
	}
	return json.Marshal(n)
}

func mustBuild(n *schemaNode) json.RawMessage {
	data, err := build(n)
	if err != nil {
		panic(err)
	}
	return data
}

func ptr[T any](v T) *T {
	return &v
}
